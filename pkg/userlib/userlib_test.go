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

package userlib

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/sentry/fs/ramfs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	sysuserprog "usergate.dev/usergate/pkg/sentry/syscalls/userprog"
)

type programLoader map[string]kernel.Program

func (l programLoader) Load(_ context.Context, name string) (kernel.Program, error) {
	if p, ok := l[name]; ok {
		return p, nil
	}
	return nil, linuxerr.ENOENT
}

// runProgram runs p as the only process and returns its exit status and
// console output.
func runProgram(t *testing.T, stackPages int, p kernel.Program) (int32, string) {
	t.Helper()
	var out bytes.Buffer
	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		SyscallTable:     sysuserprog.Table,
		Filesystem:       ramfs.New(),
		Console:          kernel.NewConsole(strings.NewReader("xyz"), &out),
		Loader:           programLoader{"p": p},
		MaxFD:            16,
		ProcessTableSize: 4,
		ProcessNameSize:  16,
		StackPages:       stackPages,
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer k.Shutdown(time.Second)
	task, err := k.Exec(nil, "p")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	<-task.Done()
	k.WaitExited()
	return task.ExitStatus(), out.String()
}

func TestStackRestored(t *testing.T) {
	status, out := runProgram(t, 1, func(task *kernel.Task, argv []string) int32 {
		sp := task.Arch().Stack()
		if sp != hostarch.UserTop {
			t.Errorf("initial stack pointer: got %#x, want %#x", sp, hostarch.UserTop)
		}
		for i := 0; i < 100; i++ {
			Printf(task, "%d,", i)
			if got := task.Arch().Stack(); got != sp {
				t.Errorf("stack pointer after call %d: got %#x, want %#x", i, got, sp)
				return -1
			}
		}
		return 0
	})
	if status != 0 {
		t.Errorf("exit status: got %d, want 0", status)
	}
	if !strings.HasPrefix(out, "0,1,2,") || !strings.HasSuffix(out, "99,") {
		t.Errorf("output: got %q", out)
	}
}

func TestReadCopiesBack(t *testing.T) {
	status, out := runProgram(t, 1, func(task *kernel.Task, argv []string) int32 {
		buf := make([]byte, 2)
		if n := Read(task, userprog.STDIN_FILENO, buf); n != 2 || string(buf) != "xy" {
			t.Errorf("Read: got (%d, %q), want (2, %q)", n, buf, "xy")
		}
		return 5
	})
	if status != 5 {
		t.Errorf("exit status: got %d, want 5", status)
	}
	if out != "xy" {
		t.Errorf("echo: got %q, want %q", out, "xy")
	}
}

func TestExitStatus(t *testing.T) {
	status, _ := runProgram(t, 1, func(task *kernel.Task, argv []string) int32 {
		Exit(task, -42)
		t.Errorf("Exit returned")
		return 0
	})
	if status != -42 {
		t.Errorf("exit status: got %d, want -42", status)
	}
}

func TestRawSyscall(t *testing.T) {
	status, _ := runProgram(t, 1, func(task *kernel.Task, argv []string) int32 {
		if got := int32(Syscall(task, userprog.SYS_TELL, 9)); got != -1 {
			t.Errorf("tell on a bad descriptor: got %d, want -1", got)
		}
		Syscall(task, userprog.SYS_NUMBER_OF_CALLS)
		t.Errorf("invalid syscall returned")
		return 0
	})
	if status != -1 {
		t.Errorf("exit status: got %d, want -1", status)
	}
}

func TestStackOverflow(t *testing.T) {
	status, out := runProgram(t, 1, func(task *kernel.Task, argv []string) int32 {
		Write(task, userprog.STDOUT_FILENO, make([]byte, 2*hostarch.PageSize))
		return 0
	})
	if status != -1 {
		t.Errorf("exit status: got %d, want -1", status)
	}
	if out != "" {
		t.Errorf("output: got %q, want nothing", out)
	}
}
