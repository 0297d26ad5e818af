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

// Package userprog contains the constants and types of the user program ABI:
// syscall numbers, argument counts and reserved descriptors.
package userprog

import "fmt"

// Syscall numbers. The order is fixed by the user-side library and must not
// change.
const (
	SYS_HALT = iota
	SYS_EXIT
	SYS_EXEC
	SYS_WAIT
	SYS_CREATE
	SYS_REMOVE
	SYS_OPEN
	SYS_FILESIZE
	SYS_READ
	SYS_WRITE
	SYS_SEEK
	SYS_TELL
	SYS_CLOSE

	SYS_SLEEP
	SYS_PLIST

	// Memory mapping syscalls. Reserved, not implemented.
	SYS_MMAP
	SYS_MUNMAP

	// Directory syscalls. Reserved, not implemented.
	SYS_CHDIR
	SYS_MKDIR
	SYS_READDIR
	SYS_ISDIR
	SYS_INUMBER

	// SYS_NUMBER_OF_CALLS is one past the last valid syscall number.
	SYS_NUMBER_OF_CALLS
)

// Reserved descriptors.
const (
	STDIN_FILENO  = 0
	STDOUT_FILENO = 1
)

// ArgCount is the number of word arguments following the syscall number in
// a request frame, indexed by syscall number. It determines how many words
// are verified, not their types.
var ArgCount = [SYS_NUMBER_OF_CALLS]int{
	SYS_HALT:     0,
	SYS_EXIT:     1,
	SYS_EXEC:     1,
	SYS_WAIT:     1,
	SYS_CREATE:   2,
	SYS_REMOVE:   1,
	SYS_OPEN:     1,
	SYS_FILESIZE: 1,
	SYS_READ:     3,
	SYS_WRITE:    3,
	SYS_SEEK:     2,
	SYS_TELL:     1,
	SYS_CLOSE:    1,
	SYS_SLEEP:    1,
	SYS_PLIST:    0,
	SYS_MMAP:     2,
	SYS_MUNMAP:   1,
	SYS_CHDIR:    1,
	SYS_MKDIR:    1,
	SYS_READDIR:  2,
	SYS_ISDIR:    1,
	SYS_INUMBER:  1,
}

// MaxArgs is the largest value in ArgCount.
const MaxArgs = 3

var names = [SYS_NUMBER_OF_CALLS]string{
	SYS_HALT:     "halt",
	SYS_EXIT:     "exit",
	SYS_EXEC:     "exec",
	SYS_WAIT:     "wait",
	SYS_CREATE:   "create",
	SYS_REMOVE:   "remove",
	SYS_OPEN:     "open",
	SYS_FILESIZE: "filesize",
	SYS_READ:     "read",
	SYS_WRITE:    "write",
	SYS_SEEK:     "seek",
	SYS_TELL:     "tell",
	SYS_CLOSE:    "close",
	SYS_SLEEP:    "sleep",
	SYS_PLIST:    "plist",
	SYS_MMAP:     "mmap",
	SYS_MUNMAP:   "munmap",
	SYS_CHDIR:    "chdir",
	SYS_MKDIR:    "mkdir",
	SYS_READDIR:  "readdir",
	SYS_ISDIR:    "isdir",
	SYS_INUMBER:  "inumber",
}

// returnsValue is the set of syscalls that write the return slot.
var returnsValue = [SYS_NUMBER_OF_CALLS]bool{
	SYS_EXEC:     true,
	SYS_WAIT:     true,
	SYS_CREATE:   true,
	SYS_REMOVE:   true,
	SYS_OPEN:     true,
	SYS_FILESIZE: true,
	SYS_READ:     true,
	SYS_WRITE:    true,
	SYS_TELL:     true,
	SYS_MMAP:     true,
	SYS_CHDIR:    true,
	SYS_MKDIR:    true,
	SYS_READDIR:  true,
	SYS_ISDIR:    true,
	SYS_INUMBER:  true,
}

// ReturnsValue returns true if sysno writes the return slot. Syscalls that
// do not, leave it as the caller had it.
func ReturnsValue(sysno uintptr) bool {
	return Valid(sysno) && returnsValue[sysno]
}

// Valid returns true if sysno names a syscall slot, implemented or not.
func Valid(sysno uintptr) bool {
	return sysno < SYS_NUMBER_OF_CALLS
}

// Name returns the name of sysno.
func Name(sysno uintptr) string {
	if !Valid(sysno) {
		return fmt.Sprintf("sys_%d", sysno)
	}
	return names[sysno]
}
