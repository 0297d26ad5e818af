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

// Package userprog provides the syscall table of the user program ABI.
package userprog

import (
	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/sentry/syscalls"
)

// TableName is the name Table is registered under.
const TableName = "userprog"

// Table is the syscall table of the user program ABI. Numbers without a
// handler are reserved: their argument counts are known, but calling them
// terminates the caller.
var Table = &kernel.SyscallTable{
	Name: TableName,
	Max:  userprog.SYS_NUMBER_OF_CALLS,
	Table: map[uintptr]kernel.Syscall{
		userprog.SYS_HALT:     syscalls.Supported(userprog.SYS_HALT, kernel.NoPointerArgs, Halt),
		userprog.SYS_EXIT:     syscalls.Supported(userprog.SYS_EXIT, kernel.NoPointerArgs, Exit),
		userprog.SYS_EXEC:     syscalls.Supported(userprog.SYS_EXEC, kernel.PathArg, Exec),
		userprog.SYS_WAIT:     syscalls.Supported(userprog.SYS_WAIT, kernel.NoPointerArgs, Wait),
		userprog.SYS_CREATE:   syscalls.Supported(userprog.SYS_CREATE, kernel.PathArg, Create),
		userprog.SYS_REMOVE:   syscalls.Supported(userprog.SYS_REMOVE, kernel.PathArg, Remove),
		userprog.SYS_OPEN:     syscalls.Supported(userprog.SYS_OPEN, kernel.PathArg, Open),
		userprog.SYS_FILESIZE: syscalls.Supported(userprog.SYS_FILESIZE, kernel.NoPointerArgs, Filesize),
		userprog.SYS_READ:     syscalls.Supported(userprog.SYS_READ, kernel.BufferArg, Read),
		userprog.SYS_WRITE:    syscalls.Supported(userprog.SYS_WRITE, kernel.BufferArg, Write),
		userprog.SYS_SEEK:     syscalls.Supported(userprog.SYS_SEEK, kernel.NoPointerArgs, Seek),
		userprog.SYS_TELL:     syscalls.Supported(userprog.SYS_TELL, kernel.NoPointerArgs, Tell),
		userprog.SYS_CLOSE:    syscalls.Supported(userprog.SYS_CLOSE, kernel.NoPointerArgs, Close),
		userprog.SYS_SLEEP:    syscalls.Supported(userprog.SYS_SLEEP, kernel.NoPointerArgs, Sleep),
		userprog.SYS_PLIST:    syscalls.Supported(userprog.SYS_PLIST, kernel.NoPointerArgs, Plist),
		userprog.SYS_MMAP:     syscalls.Reserved(userprog.SYS_MMAP),
		userprog.SYS_MUNMAP:   syscalls.Reserved(userprog.SYS_MUNMAP),
		userprog.SYS_CHDIR:    syscalls.Reserved(userprog.SYS_CHDIR),
		userprog.SYS_MKDIR:    syscalls.Reserved(userprog.SYS_MKDIR),
		userprog.SYS_READDIR:  syscalls.Reserved(userprog.SYS_READDIR),
		userprog.SYS_ISDIR:    syscalls.Reserved(userprog.SYS_ISDIR),
		userprog.SYS_INUMBER:  syscalls.Reserved(userprog.SYS_INUMBER),
	},
}

func init() {
	kernel.RegisterSyscallTable(Table)
}
