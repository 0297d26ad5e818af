// Copyright 2018 The gVisor Authors.
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

package fs

import (
	"context"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sync"
)

// Inode is the storage behind an open file. Implementations must be safe for
// concurrent use; the position is tracked by the handle, not the inode.
type Inode interface {
	// ReadAt reads into dst from offset off. It returns fewer bytes than
	// len(dst) only at the end of the file.
	ReadAt(ctx context.Context, dst []byte, off int64) (int, error)

	// WriteAt writes src at offset off. Callers never write past Length.
	WriteAt(ctx context.Context, src []byte, off int64) (int, error)

	// Length returns the file length.
	Length(ctx context.Context) (int64, error)

	// Release is called exactly once by each handle over the inode, when
	// that handle is closed.
	Release() error
}

// file is the File implementation shared by all filesystems.
type file struct {
	inode Inode

	// mu serializes position updates with the transfers that depend on
	// them.
	mu sync.Mutex

	// +checklocks:mu
	pos int64

	// +checklocks:mu
	closed bool
}

// NewFile returns a handle on inode positioned at 0. Closing the handle
// releases the inode.
func NewFile(inode Inode) File {
	return &file{inode: inode}
}

// Read implements File.Read.
func (f *file) Read(ctx context.Context, dst []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, linuxerr.EBADF
	}
	n, err := f.clampLocked(ctx, len(dst))
	if err != nil || n == 0 {
		return 0, err
	}
	n, err = f.inode.ReadAt(ctx, dst[:n], f.pos)
	f.pos += int64(n)
	return n, err
}

// Write implements File.Write.
func (f *file) Write(ctx context.Context, src []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, linuxerr.EBADF
	}
	n, err := f.clampLocked(ctx, len(src))
	if err != nil || n == 0 {
		return 0, err
	}
	n, err = f.inode.WriteAt(ctx, src[:n], f.pos)
	f.pos += int64(n)
	return n, err
}

// clampLocked returns how many of want bytes lie between the position and
// the end of the file.
//
// Precondition: f.mu is locked.
func (f *file) clampLocked(ctx context.Context, want int) (int, error) {
	length, err := f.inode.Length(ctx)
	if err != nil {
		return 0, err
	}
	if f.pos >= length {
		return 0, nil
	}
	if rem := length - f.pos; int64(want) > rem {
		return int(rem), nil
	}
	return want, nil
}

// Seek implements File.Seek.
func (f *file) Seek(pos int64) {
	if pos < 0 {
		pos = 0
	}
	f.mu.Lock()
	f.pos = pos
	f.mu.Unlock()
}

// Tell implements File.Tell.
func (f *file) Tell() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// Length implements File.Length.
func (f *file) Length(ctx context.Context) (int64, error) {
	return f.inode.Length(ctx)
}

// Close implements File.Close.
func (f *file) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return linuxerr.EBADF
	}
	f.closed = true
	return f.inode.Release()
}
