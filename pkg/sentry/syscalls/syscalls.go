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

// Package syscalls is the interface from the application to the kernel.
// Traditionally, syscalls is the interface that is used by applications to
// request services from the kernel of a operating system. We provide a
// simulated kernel that handles those requests on behalf of user programs.
//
// Note that the helpers in this package merely build table entries, not the
// implementations. They make writing syscall tables straightforward.
package syscalls

import (
	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/sentry/kernel"
)

// Supported returns a table entry for an implemented syscall. Its name,
// argument count and return behavior are those the ABI assigns to sysno; p
// names the arguments the dispatcher verifies as user pointers.
func Supported(sysno uintptr, p kernel.PointerArgs, fn kernel.SyscallFn) kernel.Syscall {
	return kernel.Syscall{
		Name:         userprog.Name(sysno),
		Args:         userprog.ArgCount[sysno],
		PointerArgs:  p,
		ReturnsValue: userprog.ReturnsValue(sysno),
		Fn:           fn,
	}
}

// Reserved returns a table entry for a syscall number that has an argument
// count but no implementation. Calling it terminates the caller.
func Reserved(sysno uintptr) kernel.Syscall {
	return kernel.Syscall{
		Name:         userprog.Name(sysno),
		Args:         userprog.ArgCount[sysno],
		ReturnsValue: userprog.ReturnsValue(sysno),
	}
}
