// Copyright 2018 Google LLC
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

package kernel

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sync"
)

// FirstFD is the lowest descriptor an FDTable hands out. Descriptors 0 and 1
// are the console and never live in the table.
const FirstFD = userprog.STDOUT_FILENO + 1

// descriptor holds the details about a file descriptor.
//
// Note that this is immutable and can only be changed via operations on the
// FDTable.
type descriptor struct {
	file fs.File
}

// FDTable maps a process's descriptors to open files.
//
// Each present descriptor denotes a file opened by, and owned by, exactly
// this process. The table never closes files: whoever removes a file from
// the table is responsible for closing it.
type FDTable struct {
	// mu serializes mutations. It is held only while slots change, never
	// across filesystem calls.
	mu sync.Mutex

	// slots[i] holds descriptor FirstFD+i. The slice itself is immutable;
	// slots may be read atomically without holding mu, but not written.
	slots []atomic.Pointer[descriptor]

	// used contains the number of non-nil entries. It may be read
	// atomically without holding mu (but not written).
	used atomic.Int32
}

// NewFDTable returns an empty table with descriptors FirstFD through maxFD
// inclusive.
func NewFDTable(maxFD int32) *FDTable {
	n := int(maxFD - FirstFD + 1)
	if n < 0 {
		n = 0
	}
	return &FDTable{slots: make([]atomic.Pointer[descriptor], n)}
}

// slot returns the slot holding fd, or nil if fd is out of range.
func (f *FDTable) slot(fd int32) *atomic.Pointer[descriptor] {
	i := int64(fd) - FirstFD
	if i < 0 || i >= int64(len(f.slots)) {
		return nil
	}
	return &f.slots[i]
}

// Capacity returns the number of descriptors the table can hold.
func (f *FDTable) Capacity() int {
	return len(f.slots)
}

// Size returns the number of descriptors currently in use.
func (f *FDTable) Size() int {
	return int(f.used.Load())
}

// Insert installs file at the lowest free descriptor and returns it. It
// returns EMFILE if the table is full.
func (f *FDTable) Insert(file fs.File) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.slots {
		if f.slots[i].Load() == nil {
			f.slots[i].Store(&descriptor{file: file})
			f.used.Add(1)
			return int32(i) + FirstFD, nil
		}
	}
	return -1, linuxerr.EMFILE
}

// Get returns the file for fd, or nil if fd is out of range or unused.
func (f *FDTable) Get(fd int32) fs.File {
	s := f.slot(fd)
	if s == nil {
		return nil
	}
	if d := s.Load(); d != nil {
		return d.file
	}
	return nil
}

// Remove removes fd and returns its file, or nil if fd was not in use. The
// file is not closed.
func (f *FDTable) Remove(fd int32) fs.File {
	s := f.slot(fd)
	if s == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d := s.Swap(nil)
	if d == nil {
		return nil
	}
	f.used.Add(-1)
	return d.file
}

// RemoveAll empties the table and returns the files it held, in descriptor
// order. The files are not closed.
func (f *FDTable) RemoveAll() []fs.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	var files []fs.File
	for i := range f.slots {
		if d := f.slots[i].Swap(nil); d != nil {
			files = append(files, d.file)
		}
	}
	f.used.Store(0)
	return files
}

// GetFDs returns the descriptors in use, in ascending order.
func (f *FDTable) GetFDs() []int32 {
	fds := make([]int32, 0, f.Size())
	for i := range f.slots {
		if f.slots[i].Load() != nil {
			fds = append(fds, int32(i)+FirstFD)
		}
	}
	return fds
}

// String is a stringer for FDTable.
func (f *FDTable) String() string {
	var b bytes.Buffer
	for _, fd := range f.GetFDs() {
		b.WriteString(fmt.Sprintf("\tfd:%d\n", fd))
	}
	return b.String()
}
