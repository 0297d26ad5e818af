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

package ramfs

import (
	"context"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sync"
)

// maxFileSize is the largest file Create accepts. Files are held in memory,
// so this bounds what a user program can make the kernel allocate.
const maxFileSize = 8 << 20

// inode uses a simple byte slice as storage, and thus should only be used for
// small files. The slice never changes length.
type inode struct {
	// mu protects the contents of data.
	mu sync.RWMutex

	data []byte
}

// ReadAt implements fs.Inode.ReadAt.
func (in *inode) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	if off < 0 {
		return 0, linuxerr.EINVAL
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	if off >= int64(len(in.data)) {
		return 0, nil
	}
	return copy(dst, in.data[off:]), nil
}

// WriteAt implements fs.Inode.WriteAt.
func (in *inode) WriteAt(ctx context.Context, src []byte, off int64) (int, error) {
	if off < 0 {
		return 0, linuxerr.EINVAL
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if off >= int64(len(in.data)) {
		return 0, nil
	}
	return copy(in.data[off:], src), nil
}

// Length implements fs.Inode.Length.
func (in *inode) Length(context.Context) (int64, error) {
	// len(in.data) is immutable.
	return int64(len(in.data)), nil
}

// Release implements fs.Inode.Release.
func (in *inode) Release() error {
	return nil
}
