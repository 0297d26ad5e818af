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

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/usermem"
)

// SyscallState is the progress of a single request through the dispatcher.
type SyscallState int

// Dispatcher states, in order. A request ends in SyscallCompleted or
// SyscallRejected.
const (
	SyscallReceived SyscallState = iota
	SyscallNumberValidated
	SyscallArgsValidated
	SyscallPointerArgsValidated
	SyscallExecuting
	SyscallCompleted
	SyscallRejected
)

var syscallStateNames = [...]string{
	SyscallReceived:             "RECEIVED",
	SyscallNumberValidated:      "NUMBER_VALIDATED",
	SyscallArgsValidated:        "ARGS_VALIDATED",
	SyscallPointerArgsValidated: "POINTER_ARGS_VALIDATED",
	SyscallExecuting:            "EXECUTING",
	SyscallCompleted:            "COMPLETED",
	SyscallRejected:             "REJECTED",
}

// String implements fmt.Stringer.
func (s SyscallState) String() string {
	if s >= 0 && int(s) < len(syscallStateNames) {
		return syscallStateNames[s]
	}
	return fmt.Sprintf("SyscallState(%d)", int(s))
}

// Syscall handles the request whose frame is at the task's stack pointer: a
// syscall number word followed by its argument words.
//
// Every word of the frame and every buffer or string the request names is
// verified before the handler runs. A request that fails verification, or
// names an unknown or unimplemented syscall, performs no operation and
// terminates the task with status -1.
//
// Syscall returns the state the request ended in. If the request terminated
// the task, the task has fully exited when Syscall returns.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Syscall() SyscallState {
	if t.Exited() {
		return SyscallRejected
	}
	if t.k.Halted() {
		t.Debugf("Syscall after halt")
		t.exit(-1)
		return SyscallRejected
	}

	state := SyscallReceived
	sp := t.arch.Stack()
	if !usermem.VerifyFixed(t.mm, sp, hostarch.WordSize) {
		return t.reject(state, sp, "frame at %#x not mapped", sp)
	}
	sysno, _ := usermem.CopyInWord(t.mm, sp)

	sc := t.k.table.Lookup(uintptr(sysno))
	if sc == nil || !sc.Supported() {
		return t.reject(state, sp, "invalid syscall %d", int32(sysno))
	}
	state = SyscallNumberValidated

	// A frame with no arguments may end at UserTop.
	if !usermem.VerifyFixed(t.mm, sp, uint64(1+sc.Args)*hostarch.WordSize) {
		return t.reject(state, sp, "%s: %d argument words at %#x not mapped", sc.Name, sc.Args, sp+hostarch.WordSize)
	}
	argBase := sp + hostarch.WordSize
	var args arch.SyscallArguments
	for i := 0; i < sc.Args; i++ {
		w, _ := usermem.CopyInWord(t.mm, argBase+hostarch.Addr(i*hostarch.WordSize))
		args[i] = arch.SyscallArgument{Value: uintptr(w)}
	}
	state = SyscallArgsValidated

	switch sc.PointerArgs {
	case PathArg:
		if !usermem.VerifyCString(t.mm, args[0].Pointer()) {
			return t.reject(state, sp, "%s: bad string %#x", sc.Name, args[0].Value)
		}
	case BufferArg:
		if !usermem.VerifyFixed(t.mm, args[1].Pointer(), uint64(args[2].Uint())) {
			return t.reject(state, sp, "%s: bad buffer %#x len %d", sc.Name, args[1].Value, args[2].Uint())
		}
	}

	if log.IsLogging(log.Debug) {
		t.Debugf("%s(%s)", sc.Name, formatArgs(args[:sc.Args]))
	}
	rval, ctrl, err := sc.Fn(t, args)

	if err != nil {
		t.Debugf("%s = -1 (errno %d: %v)", sc.Name, linuxerr.ErrnoOf(err), err)
		rval = ^uintptr(0)
	} else {
		t.Debugf("%s = %d", sc.Name, int32(rval))
	}
	if ctrl != nil && ctrl.exit {
		t.exit(t.pendingExit)
		return SyscallCompleted
	}
	if sc.ReturnsValue && (ctrl == nil || !ctrl.ignoreReturn) {
		t.arch.SetReturn(rval)
	}
	return SyscallCompleted
}

// reject terminates the task for a request that failed validation.
func (t *Task) reject(state SyscallState, sp hostarch.Addr, format string, v ...any) SyscallState {
	first := "?"
	if arg := sp + hostarch.WordSize; usermem.VerifyFixed(t.mm, arg, hostarch.WordSize) {
		w, _ := usermem.CopyInWord(t.mm, arg)
		first = fmt.Sprintf("%#x", w)
	}
	t.k.rejectLog.Warningf("%sRejected request in state %v (first argument %s): %s", t.logPrefix, state, first, fmt.Sprintf(format, v...))
	t.exit(-1)
	return SyscallRejected
}

func formatArgs(args []arch.SyscallArgument) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%#x", a.Value)
	}
	return s
}
