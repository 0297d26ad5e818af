// Copyright 2018 Google Inc.
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

// Package ramfs provides an in-memory filesystem.
package ramfs

import (
	"context"
	"sort"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sync"
)

// Filesystem is an in-memory fs.Filesystem.
type Filesystem struct {
	// mu protects files.
	mu sync.Mutex

	// files maps names to inodes. An unlinked inode stays alive for as long
	// as handles reference it.
	//
	// +checklocks:mu
	files map[string]*inode
}

var _ fs.Filesystem = (*Filesystem)(nil)

// New returns an empty filesystem.
func New() *Filesystem {
	return &Filesystem{files: make(map[string]*inode)}
}

// Add creates a file holding data. The file's length is len(data).
func (rfs *Filesystem) Add(name string, data []byte) error {
	if err := fs.ValidateName(name); err != nil {
		return err
	}
	rfs.mu.Lock()
	defer rfs.mu.Unlock()
	if _, ok := rfs.files[name]; ok {
		return linuxerr.EEXIST
	}
	rfs.files[name] = &inode{data: append([]byte(nil), data...)}
	return nil
}

// Create implements fs.Filesystem.Create.
func (rfs *Filesystem) Create(ctx context.Context, name string, length int64) error {
	if length < 0 {
		return linuxerr.EINVAL
	}
	if length > maxFileSize {
		return linuxerr.EFBIG
	}
	return rfs.Add(name, make([]byte, length))
}

// Remove implements fs.Filesystem.Remove.
func (rfs *Filesystem) Remove(ctx context.Context, name string) error {
	if err := fs.ValidateName(name); err != nil {
		return err
	}
	rfs.mu.Lock()
	defer rfs.mu.Unlock()
	if _, ok := rfs.files[name]; !ok {
		return linuxerr.ENOENT
	}
	delete(rfs.files, name)
	return nil
}

// Open implements fs.Filesystem.Open.
func (rfs *Filesystem) Open(ctx context.Context, name string) (fs.File, error) {
	if err := fs.ValidateName(name); err != nil {
		return nil, err
	}
	rfs.mu.Lock()
	defer rfs.mu.Unlock()
	in, ok := rfs.files[name]
	if !ok {
		return nil, linuxerr.ENOENT
	}
	return fs.NewFile(in), nil
}

// Names returns the names of all files, sorted.
func (rfs *Filesystem) Names() []string {
	rfs.mu.Lock()
	defer rfs.mu.Unlock()
	names := make([]string, 0, len(rfs.files))
	for name := range rfs.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
