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

// Package arch provides the simulated machine's calling conventions: the
// register state saved on a trap, typed access to syscall arguments, and a
// downward-growing user stack.
package arch

import (
	"fmt"

	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/hostarch"
)

// Registers is the register state saved when a task traps into the kernel.
type Registers struct {
	// Esp is the user stack pointer. At a syscall trap it points at the
	// request frame: the syscall number word followed by argument words.
	Esp hostarch.Addr

	// Eax receives the return value of a value-returning syscall.
	Eax uint32
}

// Context provides architecture-dependent information for a specific task.
type Context struct {
	Regs Registers
}

// Stack returns the current stack pointer.
func (c *Context) Stack() hostarch.Addr {
	return c.Regs.Esp
}

// SetStack sets the current stack pointer.
func (c *Context) SetStack(sp hostarch.Addr) {
	c.Regs.Esp = sp
}

// Return returns the return value for a system call.
func (c *Context) Return() uintptr {
	return uintptr(c.Regs.Eax)
}

// SetReturn sets the return value for a system call. Only the low word is
// kept.
func (c *Context) SetReturn(value uintptr) {
	c.Regs.Eax = uint32(value)
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("esp=%#08x eax=%#08x", uint64(c.Regs.Esp), c.Regs.Eax)
}

// SyscallArgument is an argument supplied to a syscall implementation. The
// methods used to access the arguments are named after the C type name and
// they convert to the closest Go type available.
type SyscallArgument struct {
	// Prefer to use accessor methods instead of 'Value' directly.
	Value uintptr
}

// SyscallArguments represents the set of arguments passed to a syscall.
type SyscallArguments [userprog.MaxArgs]SyscallArgument

// Pointer returns the hostarch.Addr representation of a pointer argument.
func (a SyscallArgument) Pointer() hostarch.Addr {
	return hostarch.Addr(a.Value)
}

// Int returns the int32 representation of a 32-bit signed integer argument.
func (a SyscallArgument) Int() int32 {
	return int32(a.Value)
}

// Uint returns the uint32 representation of a 32-bit unsigned integer argument.
func (a SyscallArgument) Uint() uint32 {
	return uint32(a.Value)
}

// SizeT returns the uint representation of a size_t argument.
func (a SyscallArgument) SizeT() uint {
	return uint(uint32(a.Value))
}
