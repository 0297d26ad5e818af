// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hostfs provides a filesystem backed by one directory on the host.
//
// Every file operation is a single host syscall on a file descriptor; names
// are resolved relative to the root directory's descriptor and never follow
// symlinks, so a user program cannot escape the root.
package hostfs

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/fs"
)

const (
	// retryInterval and maxRetries bound how long a host call interrupted
	// by EINTR or EAGAIN is retried.
	retryInterval = time.Millisecond
	maxRetries    = 5

	// fileMode is the permission of files created on the host.
	fileMode = 0o644
)

// Filesystem is an fs.Filesystem rooted at a host directory.
type Filesystem struct {
	// dirfd is a descriptor for the root directory. It is
	// immutable until Close.
	dirfd int

	root string
}

var _ fs.Filesystem = (*Filesystem)(nil)

// New opens the host directory root.
func New(root string) (*Filesystem, error) {
	var fd int
	err := retry(context.Background(), func() (err error) {
		fd, err = unix.Open(root, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Infof("hostfs: serving files from %q", root)
	return &Filesystem{dirfd: fd, root: root}, nil
}

// Root returns the host path of the root directory.
func (hfs *Filesystem) Root() string {
	return hfs.root
}

// Close releases the root directory. Open files remain usable.
func (hfs *Filesystem) Close() error {
	return unix.Close(hfs.dirfd)
}

// Create implements fs.Filesystem.Create.
func (hfs *Filesystem) Create(ctx context.Context, name string, length int64) error {
	if err := fs.ValidateName(name); err != nil {
		return err
	}
	if length < 0 {
		return linuxerr.EINVAL
	}
	var fd int
	err := retry(ctx, func() (err error) {
		fd, err = unix.Openat(hfs.dirfd, name, unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, fileMode)
		return err
	})
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	if err := retry(ctx, func() error { return unix.Ftruncate(fd, length) }); err != nil {
		// Don't leave a file of the wrong length behind.
		_ = unix.Unlinkat(hfs.dirfd, name, 0)
		return err
	}
	return nil
}

// Remove implements fs.Filesystem.Remove.
func (hfs *Filesystem) Remove(ctx context.Context, name string) error {
	if err := fs.ValidateName(name); err != nil {
		return err
	}
	return retry(ctx, func() error { return unix.Unlinkat(hfs.dirfd, name, 0) })
}

// Open implements fs.Filesystem.Open.
func (hfs *Filesystem) Open(ctx context.Context, name string) (fs.File, error) {
	if err := fs.ValidateName(name); err != nil {
		return nil, err
	}
	var fd int
	err := retry(ctx, func() (err error) {
		fd, err = unix.Openat(hfs.dirfd, name, unix.O_RDWR|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	var st unix.Stat_t
	if err := retry(ctx, func() error { return unix.Fstat(fd, &st) }); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		unix.Close(fd)
		return nil, linuxerr.EISDIR
	}
	return fs.NewFile(&inode{fd: fd}), nil
}

// retry runs op, retrying transient host errors. The returned error is
// translated to a linuxerr where one exists.
func retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), maxRetries), ctx)
	err := backoff.Retry(func() error {
		err := op()
		if err == unix.EINTR || err == unix.EAGAIN {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, b)
	if errno, ok := err.(unix.Errno); ok {
		return linuxerr.ErrorFromUnix(errno)
	}
	return err
}
