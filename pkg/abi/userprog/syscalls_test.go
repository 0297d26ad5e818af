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

import "testing"

func TestArgCountWithinMaxArgs(t *testing.T) {
	for sysno, n := range ArgCount {
		if n < 0 || n > MaxArgs {
			t.Errorf("ArgCount[%s] = %d, want in [0, %d]", Name(uintptr(sysno)), n, MaxArgs)
		}
	}
}

func TestNames(t *testing.T) {
	for sysno := uintptr(0); sysno < SYS_NUMBER_OF_CALLS; sysno++ {
		if Name(sysno) == "" {
			t.Errorf("syscall %d has no name", sysno)
		}
	}
	if Valid(SYS_NUMBER_OF_CALLS) {
		t.Errorf("Valid(SYS_NUMBER_OF_CALLS) = true, want false")
	}
	if got, want := Name(SYS_NUMBER_OF_CALLS), "sys_22"; got != want {
		t.Errorf("Name(SYS_NUMBER_OF_CALLS) = %q, want %q", got, want)
	}
}

func TestReturnsValue(t *testing.T) {
	for _, sysno := range []uintptr{SYS_HALT, SYS_EXIT, SYS_SEEK, SYS_CLOSE, SYS_SLEEP, SYS_PLIST, SYS_NUMBER_OF_CALLS} {
		if ReturnsValue(sysno) {
			t.Errorf("ReturnsValue(%s) = true, want false", Name(sysno))
		}
	}
	for _, sysno := range []uintptr{SYS_EXEC, SYS_WAIT, SYS_OPEN, SYS_READ, SYS_WRITE, SYS_TELL} {
		if !ReturnsValue(sysno) {
			t.Errorf("ReturnsValue(%s) = false, want true", Name(sysno))
		}
	}
}
