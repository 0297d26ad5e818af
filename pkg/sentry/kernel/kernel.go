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

// Package kernel implements the trusted side of the user/kernel boundary:
// tasks, the syscall dispatcher, and the bookkeeping tables that give
// processes their identity and their open files.
//
// Each user process is a Task running on its own goroutine. A task enters
// the kernel by calling Task.Trap with a request frame on its simulated
// stack; the dispatcher (task_syscall.go) verifies the frame and every
// pointer in it before any handler runs.
//
// Lock order (outermost locks must be taken first):
//
//	ProcessTable.mu
//	FDTable.mu
//	Console.inMu
//	  Console.outMu
//
// No kernel lock is held across a filesystem call or a blocking wait.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/mm"
	"usergate.dev/usergate/pkg/sync"
)

// Program is the user code of a process. It runs on the task goroutine and
// may only reach the kernel through t.Trap. Its return value is the exit
// status of a process that returns without calling exit.
type Program func(t *Task, argv []string) int32

// Loader resolves the program name of an exec command line.
type Loader interface {
	// Load returns the program named name, or ENOENT.
	Load(ctx context.Context, name string) (Program, error)
}

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// SyscallTable is the ABI presented to user programs.
	SyscallTable *SyscallTable

	// Filesystem backs the file syscalls.
	Filesystem fs.Filesystem

	// Console backs descriptors 0 and 1. If nil, input is empty and output
	// is discarded.
	Console *Console

	// Loader resolves exec command lines.
	Loader Loader

	// MaxFD is the largest descriptor a process may hold.
	MaxFD int32

	// ProcessTableSize is the number of process records.
	ProcessTableSize int

	// ProcessNameSize bounds process names to ProcessNameSize-1 bytes.
	ProcessNameSize int

	// StackPages is the size of each process stack.
	StackPages int

	// RejectLogInterval is the minimum interval between logged rejections.
	// Zero logs every rejection.
	RejectLogInterval time.Duration
}

// Kernel is a simulated machine running user processes.
type Kernel struct {
	// ctx is cancelled when the kernel halts. Blocking syscalls select on it.
	ctx    context.Context
	cancel context.CancelFunc

	// All of the following fields are immutable after Init.
	table      *SyscallTable
	fs         fs.Filesystem
	console    *Console
	loader     Loader
	processes  *ProcessTable
	maxFD      int32
	stackPages int

	// rejectLog reports rejected requests. It is rate limited so that a
	// hostile program cannot flood the log.
	rejectLog log.Logger

	// nextTID is the last ThreadID handed out.
	nextTID atomic.Int32

	halted atomic.Bool

	// liveTasks is the number of task goroutines that have not exited.
	liveTasks     sync.WaitGroup
	liveTaskCount atomic.Int32
}

// Init initializes the Kernel with no tasks.
func (k *Kernel) Init(args InitKernelArgs) error {
	if args.SyscallTable == nil {
		return fmt.Errorf("SyscallTable is nil")
	}
	if args.Filesystem == nil {
		return fmt.Errorf("Filesystem is nil")
	}
	if args.Loader == nil {
		return fmt.Errorf("Loader is nil")
	}
	if args.MaxFD < FirstFD {
		return fmt.Errorf("MaxFD %d leaves no descriptors above %d", args.MaxFD, FirstFD-1)
	}
	if args.ProcessTableSize <= 0 {
		return fmt.Errorf("ProcessTableSize is %d", args.ProcessTableSize)
	}
	if args.ProcessNameSize <= 1 {
		return fmt.Errorf("ProcessNameSize is %d", args.ProcessNameSize)
	}
	if args.StackPages <= 0 {
		return fmt.Errorf("StackPages is %d", args.StackPages)
	}
	if args.Console == nil {
		args.Console = NewConsole(nil, nil)
	}

	k.ctx, k.cancel = context.WithCancel(context.Background())
	k.table = args.SyscallTable
	k.fs = args.Filesystem
	k.console = args.Console
	k.loader = args.Loader
	k.processes = NewProcessTable(args.ProcessTableSize, args.ProcessNameSize)
	k.maxFD = args.MaxFD
	k.stackPages = args.StackPages
	k.rejectLog = log.BasicRateLimitedLogger(args.RejectLogInterval)
	return nil
}

// Exec admits a new process running cmdline and starts it. The program is
// the first word of cmdline; the words after it are its arguments. A nil
// parent admits a process with NoParent.
//
// The process record exists before the program runs, so a parent can always
// wait on a pid returned by Exec.
func (k *Kernel) Exec(parent *Task, cmdline string) (*Task, error) {
	argv := strings.Fields(cmdline)
	if len(argv) == 0 {
		return nil, linuxerr.ENOENT
	}
	if k.Halted() {
		return nil, linuxerr.ESRCH
	}
	program, err := k.loader.Load(k.ctx, argv[0])
	if err != nil {
		return nil, err
	}
	t, err := k.newTask(parent, argv, program)
	if err != nil {
		return nil, err
	}
	log.Infof("EXEC: %d %v (parent %d)", t.tid, argv, t.parent)

	k.liveTasks.Add(1)
	k.liveTaskCount.Add(1)
	go t.run()
	return t, nil
}

// newTask admits a process and builds its task without starting it.
func (k *Kernel) newTask(parent *Task, argv []string, program Program) (*Task, error) {
	as := mm.NewAddressSpace()
	if _, err := as.MapStack(k.stackPages); err != nil {
		return nil, err
	}

	parentTID := NoParent
	if parent != nil {
		parentTID = parent.tid
	}
	tid := ThreadID(k.nextTID.Add(1))
	if _, err := k.processes.Insert(tid, argv[0], parentTID); err != nil {
		return nil, err
	}

	t := &Task{
		k:         k,
		tid:       tid,
		parent:    parentTID,
		name:      argv[0],
		argv:      argv,
		program:   program,
		mm:        as,
		fdTable:   NewFDTable(k.maxFD),
		logPrefix: fmt.Sprintf("[%5d] ", tid),
		done:      make(chan struct{}),
	}
	t.arch.SetStack(hostarch.UserTop)
	return t, nil
}

// Halt powers the machine off. Blocked waits and sleeps are released, and
// every task that enters the kernel afterwards is terminated. Halt does not
// wait for tasks to exit.
func (k *Kernel) Halt() {
	if k.halted.CompareAndSwap(false, true) {
		log.Infof("Kernel halted")
		k.cancel()
	}
}

// Halted returns true once Halt has been called.
func (k *Kernel) Halted() bool {
	return k.halted.Load()
}

// Context returns a context that is cancelled when the kernel halts.
func (k *Kernel) Context() context.Context {
	return k.ctx
}

// WaitExited blocks until all tasks in k have exited.
func (k *Kernel) WaitExited() {
	k.liveTasks.Wait()
}

// Shutdown halts the kernel, waits up to timeout for tasks to exit, and
// purges the process table. It returns an error if tasks were still running
// when the timeout expired; their goroutines are abandoned.
func (k *Kernel) Shutdown(timeout time.Duration) error {
	k.Halt()
	done := make(chan struct{})
	go func() {
		k.liveTasks.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("%d tasks still running after %v", k.liveTaskCount.Load(), timeout)
	}
	k.processes.Purge()
	return err
}

// SyscallTable returns the ABI presented to user programs.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.table
}

// Filesystem returns the filesystem.
func (k *Kernel) Filesystem() fs.Filesystem {
	return k.fs
}

// Console returns the console.
func (k *Kernel) Console() *Console {
	return k.console
}

// Processes returns the process table.
func (k *Kernel) Processes() *ProcessTable {
	return k.processes
}
