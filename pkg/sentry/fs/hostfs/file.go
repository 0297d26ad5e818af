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

package hostfs

import (
	"context"

	"golang.org/x/sys/unix"
)

// inode is one open host file descriptor. The descriptor is owned by the
// handle that created it.
type inode struct {
	fd int
}

// ReadAt implements fs.Inode.ReadAt.
func (in *inode) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	done := 0
	for done < len(dst) {
		var n int
		err := retry(ctx, func() (err error) {
			n, err = unix.Pread(in.fd, dst[done:], off+int64(done))
			return err
		})
		if err != nil {
			return done, err
		}
		if n == 0 {
			break
		}
		done += n
	}
	return done, nil
}

// WriteAt implements fs.Inode.WriteAt.
func (in *inode) WriteAt(ctx context.Context, src []byte, off int64) (int, error) {
	done := 0
	for done < len(src) {
		var n int
		err := retry(ctx, func() (err error) {
			n, err = unix.Pwrite(in.fd, src[done:], off+int64(done))
			return err
		})
		if err != nil {
			return done, err
		}
		if n == 0 {
			break
		}
		done += n
	}
	return done, nil
}

// Length implements fs.Inode.Length.
func (in *inode) Length(ctx context.Context) (int64, error) {
	var st unix.Stat_t
	if err := retry(ctx, func() error { return unix.Fstat(in.fd, &st) }); err != nil {
		return 0, err
	}
	return st.Size, nil
}

// Release implements fs.Inode.Release.
func (in *inode) Release() error {
	return unix.Close(in.fd)
}
