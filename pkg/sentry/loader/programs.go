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

package loader

import (
	"strconv"
	"strings"

	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/userlib"
)

// Builtins are the programs every kernel can run.
var Builtins = map[string]kernel.Program{
	"badptr":   badptr,
	"cat":      cat,
	"create":   create,
	"echo":     echo,
	"exit":     exit,
	"halt":     halt,
	"lineup":   lineup,
	"plist":    plist,
	"readkeys": readkeys,
	"rm":       rm,
	"sleep":    sleep,
}

// NewBuiltinRegistry returns a registry holding Builtins.
func NewBuiltinRegistry(filesystem fs.Filesystem) *Registry {
	r := NewRegistry(filesystem)
	for name, p := range Builtins {
		if err := r.Register(name, p); err != nil {
			panic("registering " + name + ": " + err.Error())
		}
	}
	return r
}

// usage prints a usage line and returns the failure status.
func usage(t *kernel.Task, args string) int32 {
	userlib.Printf(t, "usage: %s %s\n", t.Name(), args)
	return -1
}

// echo prints its arguments.
func echo(t *kernel.Task, argv []string) int32 {
	userlib.Puts(t, strings.Join(argv[1:], " ")+"\n")
	return 0
}

// cat prints files.
func cat(t *kernel.Task, argv []string) int32 {
	if len(argv) < 2 {
		return usage(t, "FILE...")
	}
	status := int32(0)
	buf := make([]byte, 64)
	for _, name := range argv[1:] {
		fd := userlib.Open(t, name)
		if fd < 0 {
			userlib.Printf(t, "%s: %s: cannot open\n", argv[0], name)
			status = -1
			continue
		}
		for {
			n := userlib.Read(t, fd, buf)
			if n <= 0 {
				break
			}
			userlib.Write(t, userprog.STDOUT_FILENO, buf[:n])
		}
		userlib.Close(t, fd)
	}
	return status
}

// create creates a file, optionally writing text at its start.
func create(t *kernel.Task, argv []string) int32 {
	if len(argv) < 3 {
		return usage(t, "FILE LENGTH [TEXT...]")
	}
	length, err := strconv.ParseUint(argv[2], 10, 32)
	if err != nil {
		return usage(t, "FILE LENGTH [TEXT...]")
	}
	if !userlib.Create(t, argv[1], uint32(length)) {
		userlib.Printf(t, "%s: %s: cannot create\n", argv[0], argv[1])
		return -1
	}
	if len(argv) == 3 {
		return 0
	}
	fd := userlib.Open(t, argv[1])
	if fd < 0 {
		return -1
	}
	defer userlib.Close(t, fd)
	text := []byte(strings.Join(argv[3:], " "))
	if n := userlib.Write(t, fd, text); n != int32(len(text)) {
		userlib.Printf(t, "%s: %s: wrote %d of %d bytes\n", argv[0], argv[1], n, len(text))
		return -1
	}
	return 0
}

// rm removes files.
func rm(t *kernel.Task, argv []string) int32 {
	if len(argv) < 2 {
		return usage(t, "FILE...")
	}
	status := int32(0)
	for _, name := range argv[1:] {
		if !userlib.Remove(t, name) {
			userlib.Printf(t, "%s: %s: cannot remove\n", argv[0], name)
			status = -1
		}
	}
	return status
}

// exit exits with the given status.
func exit(t *kernel.Task, argv []string) int32 {
	status := int64(0)
	if len(argv) > 1 {
		var err error
		if status, err = strconv.ParseInt(argv[1], 10, 32); err != nil {
			return usage(t, "[STATUS]")
		}
	}
	userlib.Exit(t, int32(status))
	panic("exit returned")
}

// halt powers the machine off.
func halt(t *kernel.Task, argv []string) int32 {
	userlib.Halt(t)
	panic("halt returned")
}

// plist prints the process table.
func plist(t *kernel.Task, argv []string) int32 {
	userlib.Plist(t)
	return 0
}

// sleep sleeps for the given number of milliseconds.
func sleep(t *kernel.Task, argv []string) int32 {
	if len(argv) != 2 {
		return usage(t, "MS")
	}
	ms, err := strconv.ParseInt(argv[1], 10, 32)
	if err != nil {
		return usage(t, "MS")
	}
	userlib.Sleep(t, int32(ms))
	return 0
}

// readkeys reads keystrokes from the console and returns how many it got.
func readkeys(t *kernel.Task, argv []string) int32 {
	if len(argv) != 2 {
		return usage(t, "COUNT")
	}
	count, err := strconv.ParseUint(argv[1], 10, 16)
	if err != nil {
		return usage(t, "COUNT")
	}
	return userlib.Read(t, userprog.STDIN_FILENO, make([]byte, count))
}

// lineup starts COUNT copies of a command line, waits for each in turn and
// prints their exit statuses. It returns the number of children that could
// not be started or waited on.
func lineup(t *kernel.Task, argv []string) int32 {
	if len(argv) < 3 {
		return usage(t, "COUNT COMMAND...")
	}
	count, err := strconv.ParseUint(argv[1], 10, 16)
	if err != nil {
		return usage(t, "COUNT COMMAND...")
	}
	cmdline := strings.Join(argv[2:], " ")

	pids := make([]int32, 0, count)
	failed := int32(0)
	for i := uint64(0); i < count; i++ {
		pid := userlib.Exec(t, cmdline)
		if pid < 0 {
			userlib.Printf(t, "%s: cannot start %q\n", argv[0], cmdline)
			failed++
			continue
		}
		pids = append(pids, pid)
	}
	for _, pid := range pids {
		status := userlib.Wait(t, pid)
		userlib.Printf(t, "%s: child %d exited with %d\n", argv[0], pid, status)
	}
	return failed
}

// badptr makes a request the kernel must refuse. It returns only if the
// kernel let the request through.
func badptr(t *kernel.Task, argv []string) int32 {
	const modes = "frame|number|reserved|string|buffer|kernel"
	if len(argv) != 2 {
		return usage(t, modes)
	}
	// Find the unmapped page just below the stack.
	var unmapped uint32
	for addr := (t.Arch().Stack() - 1).RoundDown(); ; addr -= hostarch.PageSize {
		if _, ok := t.MemoryManager().Translate(addr); !ok {
			unmapped = uint32(addr)
			break
		}
	}

	switch argv[1] {
	case "frame":
		t.Arch().SetStack(hostarch.Addr(unmapped))
		t.Trap()
	case "number":
		userlib.Syscall(t, userprog.SYS_NUMBER_OF_CALLS, 0)
	case "reserved":
		userlib.Syscall(t, userprog.SYS_MMAP, 0, 0)
	case "string":
		userlib.Syscall(t, userprog.SYS_OPEN, 0)
	case "buffer":
		// The buffer starts in the unmapped page and ends in the stack.
		userlib.Syscall(t, userprog.SYS_READ, userprog.STDIN_FILENO, unmapped+hostarch.PageSize-8, 16)
	case "kernel":
		userlib.Syscall(t, userprog.SYS_WRITE, userprog.STDOUT_FILENO, uint32(hostarch.UserTop), 1)
	default:
		return usage(t, modes)
	}
	userlib.Printf(t, "%s: %s: survived\n", argv[0], argv[1])
	return 0
}
