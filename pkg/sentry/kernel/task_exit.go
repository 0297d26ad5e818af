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

// PrepareExit sets the status the task exits with when a handler returns
// CtrlDoExit.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) PrepareExit(status int32) {
	t.pendingExit = status
}

// exit retires the task. Only the first call has any effect.
//
// The exit status is recorded before the process is removed from the
// process table, so a parent released from Wait always sees it. Open files
// are closed by the task itself; the descriptor table never closes them.
func (t *Task) exit(status int32) {
	t.exitOnce.Do(func() {
		t.Debugf("Exiting with status %d", status)
		pt := t.k.processes
		if err := pt.SetExitStatus(t.tid, status); err != nil {
			// Only possible after the table was purged at shutdown.
			t.Debugf("Exit status lost: %v", err)
		}
		for _, f := range t.fdTable.RemoveAll() {
			if err := f.Close(); err != nil {
				t.Warningf("Closing file at exit: %v", err)
			}
		}
		pt.Remove(t.tid)
		t.exitStatus.Store(status)
		close(t.done)
	})
}
