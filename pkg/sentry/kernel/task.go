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

package kernel

import (
	"context"
	"sync/atomic"

	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/mm"
	"usergate.dev/usergate/pkg/sync"
)

// Task represents one user process.
//
// Unless noted otherwise, a Task's fields are owned by its task goroutine:
// the goroutine running its Program, and the kernel code that program
// traps into.
type Task struct {
	k *Kernel

	// The following fields are immutable.
	tid       ThreadID
	parent    ThreadID
	name      string
	argv      []string
	program   Program
	mm        *mm.AddressSpace
	fdTable   *FDTable
	logPrefix string

	// arch is the register state exchanged with the program on a trap.
	arch arch.Context

	// pendingExit is the status passed to PrepareExit.
	pendingExit int32

	// exitOnce guards the exit path.
	exitOnce sync.Once

	// exitStatus is the final exit status. It is valid once done is closed.
	exitStatus atomic.Int32

	// done is closed when the task has exited.
	done chan struct{}
}

// Kernel returns the Kernel containing t.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// ThreadID returns t's pid.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Parent returns the pid of t's parent, or NoParent.
func (t *Task) Parent() ThreadID {
	return t.parent
}

// Name returns the program name t was started with.
func (t *Task) Name() string {
	return t.name
}

// Argv returns t's command line split into words.
func (t *Task) Argv() []string {
	return t.argv
}

// Arch returns t's register state.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Arch() *arch.Context {
	return &t.arch
}

// MemoryManager returns t's address space.
func (t *Task) MemoryManager() *mm.AddressSpace {
	return t.mm
}

// FDTable returns t's descriptor table.
func (t *Task) FDTable() *FDTable {
	return t.fdTable
}

// Stack returns a push cursor at t's current stack pointer. Pushes through
// it do not move the stack pointer; callers do that with Arch().SetStack.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Stack() *arch.Stack {
	return &arch.Stack{IO: t.mm, Bottom: t.arch.Stack()}
}

// Context returns a context that is done when the kernel halts. Blocking
// syscalls use it so that halting the machine releases them.
func (t *Task) Context() context.Context {
	return t.k.ctx
}

// Done returns a channel that is closed when t has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Exited returns true if t has exited.
func (t *Task) Exited() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// ExitStatus returns t's exit status.
//
// Preconditions: t has exited.
func (t *Task) ExitStatus() int32 {
	return t.exitStatus.Load()
}

// Debugf logs a debug message prefixed by t's pid.
func (t *Task) Debugf(fmt string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Infof logs an info message prefixed by t's pid.
func (t *Task) Infof(fmt string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Warningf logs a warning prefixed by t's pid.
func (t *Task) Warningf(fmt string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.Log().WarningfAtDepth(1, t.logPrefix+fmt, v...)
	}
}
