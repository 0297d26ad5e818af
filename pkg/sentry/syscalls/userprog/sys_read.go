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

package userprog

import (
	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/usermem"
)

// ioFile returns the file a read or write on fd goes to. It returns nil for
// console descriptors and EBADF for descriptors that are not open.
func ioFile(t *kernel.Task, fd int32) (fs.File, error) {
	switch fd {
	case userprog.STDIN_FILENO, userprog.STDOUT_FILENO:
		return nil, nil
	default:
		return getFile(t, fd)
	}
}

// Read implements the read syscall. Reading descriptor 0 takes keystrokes
// from the console, echoing each one. Descriptor 1 cannot be read.
func Read(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	if fd == userprog.STDOUT_FILENO {
		return 0, nil, linuxerr.EBADF
	}
	file, err := ioFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	if size == 0 {
		return 0, nil, nil
	}

	buf := make([]byte, size)
	var n int
	if file == nil {
		n, err = t.Kernel().Console().Read(buf)
	} else {
		n, err = file.Read(t.Context(), buf)
	}
	if n > 0 {
		if _, cerr := usermem.CopyOut(t.MemoryManager(), addr, buf[:n]); cerr != nil {
			return 0, nil, cerr
		}
	}
	if err != nil && n == 0 {
		return 0, nil, err
	}
	return uintptr(n), nil, nil
}

// Write implements the write syscall. Writing descriptor 1 displays the
// whole buffer on the console in one piece. Descriptor 0 cannot be written.
func Write(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	if fd == userprog.STDIN_FILENO {
		return 0, nil, linuxerr.EBADF
	}
	file, err := ioFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	if size == 0 {
		return 0, nil, nil
	}

	buf := make([]byte, size)
	if _, err := usermem.CopyIn(t.MemoryManager(), addr, buf); err != nil {
		return 0, nil, err
	}
	var n int
	if file == nil {
		n, err = t.Kernel().Console().Write(buf)
	} else {
		n, err = file.Write(t.Context(), buf)
	}
	if err != nil && n == 0 {
		return 0, nil, err
	}
	return uintptr(n), nil, nil
}
