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

// Package fs defines the filesystem seen by user processes.
//
// The filesystem is flat: every file lives in one root directory and is named
// by a single path component. A file's length is fixed when it is created;
// writes never extend it. Removing a file unlinks its name, but handles that
// are already open keep working until they are closed.
//
// Specific filesystem implementations (ramfs, hostfs) implement Filesystem
// and Inode. This package supplies the open file handle (file.go), which owns
// the file position.
//
// Lock ordering:
//
//	file.mu
//	  Locks in Inode implementations
package fs

import (
	"context"
	"strings"

	"usergate.dev/usergate/pkg/errors/linuxerr"
)

// NameMax is the maximum length of a file name, in bytes.
const NameMax = 14

// Filesystem is a flat namespace of fixed-length files.
type Filesystem interface {
	// Create creates a zero-filled file of the given length. It fails with
	// EEXIST if name is already taken.
	Create(ctx context.Context, name string, length int64) error

	// Remove unlinks name. Open handles to the file remain usable.
	Remove(ctx context.Context, name string) error

	// Open returns a new handle positioned at offset 0. Each call returns an
	// independent handle.
	Open(ctx context.Context, name string) (File, error)
}

// File is an open file handle. It is safe for concurrent use.
type File interface {
	// Read reads from the current position and advances it. Reading at or
	// past the end of the file returns 0 bytes and no error.
	Read(ctx context.Context, dst []byte) (int, error)

	// Write writes at the current position and advances it. Bytes that
	// would fall past the end of the file are not written.
	Write(ctx context.Context, src []byte) (int, error)

	// Seek sets the position. A position past the end is allowed; reads and
	// writes there transfer nothing.
	Seek(pos int64)

	// Tell returns the current position.
	Tell() int64

	// Length returns the length of the file in bytes.
	Length(ctx context.Context) (int64, error)

	// Close releases the handle. Other methods must not be called after
	// Close.
	Close() error
}

// ValidateName checks that name is a single path component of acceptable
// length.
func ValidateName(name string) error {
	switch {
	case name == "":
		return linuxerr.ENOENT
	case len(name) > NameMax:
		return linuxerr.ENAMETOOLONG
	case name == "." || name == "..":
		return linuxerr.EISDIR
	case strings.ContainsAny(name, "/\x00"):
		return linuxerr.EINVAL
	}
	return nil
}
