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
	"runtime"
	"runtime/debug"
)

// run runs the task goroutine.
func (t *Task) run() {
	defer func() {
		t.k.liveTaskCount.Add(-1)
		t.k.liveTasks.Done()
	}()

	// A program that returns without calling exit exits with its return
	// value; one that panics exits with -1. Tasks terminated inside the
	// kernel have already exited by the time these deferred calls run.
	status := int32(-1)
	defer func() {
		if r := recover(); r != nil {
			t.Warningf("Program %q panicked: %v\n%s", t.name, r, debug.Stack())
		}
		t.exit(status)
	}()
	status = t.program(t, t.argv)
}

// Trap enters the kernel with the request frame at the current stack
// pointer and returns the value of the return register afterwards.
//
// If the request terminated the task, Trap does not return: the task
// goroutine unwinds and exits.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Trap() uint32 {
	t.Syscall()
	if t.Exited() {
		runtime.Goexit()
	}
	return t.arch.Regs.Eax
}
