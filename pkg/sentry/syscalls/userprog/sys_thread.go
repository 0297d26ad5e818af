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
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/kernel"
)

// Halt implements the halt syscall. It powers the machine off and
// terminates the caller with status 0.
func Halt(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.Infof("Halt requested")
	t.Kernel().Halt()
	t.PrepareExit(0)
	return 0, kernel.CtrlDoExit, nil
}

// Exit implements the exit syscall.
func Exit(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	status := args[0].Int()
	t.PrepareExit(status)
	return 0, kernel.CtrlDoExit, nil
}

// Exec implements the exec syscall. It starts the program named by the first
// word of the command line as a child of the caller and returns its pid.
func Exec(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	cmdline, err := copyInPath(t, addr)
	if err != nil {
		return 0, nil, err
	}
	child, err := t.Kernel().Exec(t, cmdline)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(child.ThreadID()), nil, nil
}

// Wait implements the wait syscall. It blocks until child pid exits and
// returns its exit status. Each child can be waited on once.
func Wait(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := kernel.ThreadID(args[0].Int())

	status, err := t.Kernel().Processes().Wait(t.Context(), t.ThreadID(), pid)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(status), nil, nil
}

// Plist implements the plist syscall. It displays the process table on the
// console.
func Plist(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	_, err := t.Kernel().Console().Write([]byte(t.Kernel().Processes().String()))
	return 0, nil, err
}
