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
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/usermem"
)

// copyInPath copies in the NUL-terminated string at addr. The dispatcher has
// already verified that the string is mapped.
func copyInPath(t *kernel.Task, addr hostarch.Addr) (string, error) {
	return usermem.CopyInString(t.MemoryManager(), addr, hostarch.PageSize)
}

// getFile returns the open file fd refers to, or EBADF.
func getFile(t *kernel.Task, fd int32) (fs.File, error) {
	file := t.FDTable().Get(fd)
	if file == nil {
		return nil, linuxerr.EBADF
	}
	return file, nil
}

// boolReturn converts a success flag to the 1/0 return of create and remove.
func boolReturn(t *kernel.Task, op string, err error) uintptr {
	if err != nil {
		t.Debugf("%s failed: %v", op, err)
		return 0
	}
	return 1
}

// Create implements the create syscall. It returns 1 on success and 0 on
// failure.
func Create(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	length := int64(args[1].SizeT())

	name, err := copyInPath(t, addr)
	if err == nil {
		err = t.Kernel().Filesystem().Create(t.Context(), name, length)
	}
	return boolReturn(t, "create", err), nil, nil
}

// Remove implements the remove syscall. It returns 1 on success and 0 on
// failure. Handles already open keep working.
func Remove(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	name, err := copyInPath(t, addr)
	if err == nil {
		err = t.Kernel().Filesystem().Remove(t.Context(), name)
	}
	return boolReturn(t, "remove", err), nil, nil
}

// Open implements the open syscall.
func Open(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	name, err := copyInPath(t, addr)
	if err != nil {
		return 0, nil, err
	}
	file, err := t.Kernel().Filesystem().Open(t.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	fd, err := t.FDTable().Insert(file)
	if err != nil {
		file.Close()
		return 0, nil, err
	}
	return uintptr(fd), nil, nil
}

// Filesize implements the filesize syscall.
func Filesize(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	length, err := file.Length(t.Context())
	if err != nil {
		return 0, nil, err
	}
	return uintptr(length), nil, nil
}

// Seek implements the seek syscall. A position past the end of the file is
// ignored.
func Seek(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	pos := int64(args[1].SizeT())

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	length, err := file.Length(t.Context())
	if err != nil {
		return 0, nil, err
	}
	if pos > length {
		return 0, nil, linuxerr.EINVAL
	}
	file.Seek(pos)
	return 0, nil, nil
}

// Tell implements the tell syscall.
func Tell(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(file.Tell()), nil, nil
}

// Close implements the close syscall.
func Close(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file := t.FDTable().Remove(fd)
	if file == nil {
		return 0, nil, linuxerr.EBADF
	}
	return 0, nil, file.Close()
}
