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

package kernel

import (
	"fmt"

	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sync"
)

// SyscallFn is a syscall implementation.
//
// A handler runs only after the request frame and every pointer argument it
// declares have been verified. Any non-nil error is reported to the caller
// as -1; the process keeps running.
type SyscallFn func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// SyscallControl is returned by syscalls to control the behavior of
// Task.Syscall.
type SyscallControl struct {
	// exit causes the task to exit with the status set by PrepareExit.
	exit bool

	// ignoreReturn is true if the return value should not be written to the
	// return register.
	ignoreReturn bool
}

var (
	// CtrlDoExit is returned by the implementations of the exit and halt
	// syscalls to enter the task exit path.
	CtrlDoExit = &SyscallControl{exit: true, ignoreReturn: true}

	// CtrlIgnoreReturn is returned by a value-returning syscall that wants
	// to leave the return register untouched.
	CtrlIgnoreReturn = &SyscallControl{ignoreReturn: true}
)

// PointerArgs describes which syscall arguments point into user memory and
// must be verified before the handler runs.
type PointerArgs int

const (
	// NoPointerArgs means no argument is dereferenced.
	NoPointerArgs PointerArgs = iota

	// PathArg means argument 0 is a NUL-terminated string.
	PathArg

	// BufferArg means argument 1 is a buffer whose length is argument 2.
	BufferArg
)

// String implements fmt.Stringer.
func (p PointerArgs) String() string {
	switch p {
	case NoPointerArgs:
		return "none"
	case PathArg:
		return "path"
	case BufferArg:
		return "buffer"
	default:
		return fmt.Sprintf("PointerArgs(%d)", int(p))
	}
}

// Syscall includes the syscall implementation and the static facts the
// dispatcher verifies against.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// Args is the number of argument words following the syscall number.
	Args int

	// PointerArgs names the arguments that are user pointers.
	PointerArgs PointerArgs

	// ReturnsValue is true if the syscall writes the return register.
	ReturnsValue bool

	// Fn is the implementation. A nil Fn marks a reserved number with no
	// implementation; calling it terminates the caller.
	Fn SyscallFn
}

// Supported returns true if the syscall has an implementation.
func (s Syscall) Supported() bool {
	return s.Fn != nil
}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Name identifies the table, and thus the ABI it implements.
	Name string

	// Max is one past the largest valid syscall number. Numbers at or above
	// Max are rejected without consulting Table.
	Max uintptr

	// Table is the collection of functions.
	Table map[uintptr]Syscall

	// lookup is a fixed-size array that holds the syscalls (indexed by
	// their numbers). It is used for fast look ups.
	lookup []*Syscall
}

// allSyscallTables contains all known tables.
var (
	allSyscallTablesMu sync.Mutex
	allSyscallTables   []*SyscallTable
)

// SyscallTables returns a read-only slice of registered SyscallTables.
func SyscallTables() []*SyscallTable {
	allSyscallTablesMu.Lock()
	defer allSyscallTablesMu.Unlock()
	return append([]*SyscallTable(nil), allSyscallTables...)
}

// LookupSyscallTable returns the SyscallTable registered under name.
func LookupSyscallTable(name string) (*SyscallTable, bool) {
	allSyscallTablesMu.Lock()
	defer allSyscallTablesMu.Unlock()
	for _, s := range allSyscallTables {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// RegisterSyscallTable registers a new syscall table for use by a Kernel.
func RegisterSyscallTable(s *SyscallTable) {
	s.Init()
	allSyscallTablesMu.Lock()
	defer allSyscallTablesMu.Unlock()
	allSyscallTables = append(allSyscallTables, s)
}

// Init initializes the system call table. It panics on entries that the
// dispatcher could not handle safely.
func (s *SyscallTable) Init() {
	s.lookup = make([]*Syscall, s.Max)
	for num, sc := range s.Table {
		if num >= s.Max {
			panic(fmt.Sprintf("syscall %d (%s) out of range for table %q", num, sc.Name, s.Name))
		}
		if sc.Args < 0 || sc.Args > len(arch.SyscallArguments{}) {
			panic(fmt.Sprintf("syscall %d (%s) has %d arguments", num, sc.Name, sc.Args))
		}
		switch sc.PointerArgs {
		case PathArg:
			if sc.Args < 1 {
				panic(fmt.Sprintf("syscall %d (%s) has a path argument but no arguments", num, sc.Name))
			}
		case BufferArg:
			if sc.Args < 3 {
				panic(fmt.Sprintf("syscall %d (%s) has a buffer argument but %d arguments", num, sc.Name, sc.Args))
			}
		}
		s.lookup[num] = &sc
	}
}

// Lookup returns the syscall for sysno, or nil if sysno is out of range or
// not in the table. Entries for reserved numbers are returned with a nil Fn.
func (s *SyscallTable) Lookup(sysno uintptr) *Syscall {
	if sysno < uintptr(len(s.lookup)) {
		return s.lookup[sysno]
	}
	return nil
}

// mapLookup is an equivalent of Lookup that reads Table directly.
func (s *SyscallTable) mapLookup(sysno uintptr) *Syscall {
	if sc, ok := s.Table[sysno]; ok {
		return &sc
	}
	return nil
}
