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

// Package userlib is the user side of the syscall ABI. Each function builds
// a request frame on the calling task's stack, with any strings or buffers
// the request names, and traps into the kernel.
//
// All functions must be called on the task goroutine, i.e. from within a
// kernel.Program.
package userlib

import (
	"fmt"

	"usergate.dev/usergate/pkg/abi/userprog"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/usermem"
)

// request is a request frame under construction.
type request struct {
	t  *kernel.Task
	st *arch.Stack
	sp hostarch.Addr
}

func newRequest(t *kernel.Task) *request {
	return &request{t: t, st: t.Stack(), sp: t.Arch().Stack()}
}

// push copies b onto the stack and returns its address. A program that
// overflows its stack panics, which terminates it.
func (r *request) push(b []byte) uint32 {
	addr, err := r.st.Push(b)
	if err != nil {
		panic(fmt.Sprintf("user stack overflow pushing %d bytes: %v", len(b), err))
	}
	return uint32(addr)
}

func (r *request) pushString(s string) uint32 {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return r.push(b)
}

// trap pushes the frame, enters the kernel and restores the stack pointer.
// It does not return if the request terminates the task.
func (r *request) trap(sysno uint32, args ...uint32) uint32 {
	r.st.Align(hostarch.WordSize)
	sp, err := r.st.PushFrame(sysno, args...)
	if err != nil {
		panic(fmt.Sprintf("user stack overflow pushing %s frame: %v", userprog.Name(uintptr(sysno)), err))
	}
	defer r.t.Arch().SetStack(r.sp)
	r.t.Arch().SetStack(sp)
	return r.t.Trap()
}

// Syscall traps with a raw frame. The arguments are passed as given, with no
// strings or buffers copied.
func Syscall(t *kernel.Task, sysno uint32, args ...uint32) uint32 {
	return newRequest(t).trap(sysno, args...)
}

// Halt powers the machine off. It does not return.
func Halt(t *kernel.Task) {
	newRequest(t).trap(userprog.SYS_HALT)
}

// Exit terminates the caller with status. It does not return.
func Exit(t *kernel.Task, status int32) {
	newRequest(t).trap(userprog.SYS_EXIT, uint32(status))
}

// Exec starts cmdline as a child and returns its pid, or -1.
func Exec(t *kernel.Task, cmdline string) int32 {
	r := newRequest(t)
	return int32(r.trap(userprog.SYS_EXEC, r.pushString(cmdline)))
}

// Wait waits for child pid and returns its exit status, or -1.
func Wait(t *kernel.Task, pid int32) int32 {
	return int32(newRequest(t).trap(userprog.SYS_WAIT, uint32(pid)))
}

// Create creates a file of the given length.
func Create(t *kernel.Task, name string, length uint32) bool {
	r := newRequest(t)
	return r.trap(userprog.SYS_CREATE, r.pushString(name), length) != 0
}

// Remove removes a file.
func Remove(t *kernel.Task, name string) bool {
	r := newRequest(t)
	return r.trap(userprog.SYS_REMOVE, r.pushString(name)) != 0
}

// Open opens a file and returns its descriptor, or -1.
func Open(t *kernel.Task, name string) int32 {
	r := newRequest(t)
	return int32(r.trap(userprog.SYS_OPEN, r.pushString(name)))
}

// Filesize returns the length of the open file fd, or -1.
func Filesize(t *kernel.Task, fd int32) int32 {
	return int32(newRequest(t).trap(userprog.SYS_FILESIZE, uint32(fd)))
}

// Read reads up to len(buf) bytes from fd into buf and returns the number
// read, or -1.
func Read(t *kernel.Task, fd int32, buf []byte) int32 {
	r := newRequest(t)
	addr := r.push(make([]byte, len(buf)))
	n := int32(r.trap(userprog.SYS_READ, uint32(fd), addr, uint32(len(buf))))
	if n > 0 {
		if _, err := usermem.CopyIn(t.MemoryManager(), hostarch.Addr(addr), buf[:n]); err != nil {
			panic(fmt.Sprintf("reading back %d bytes at %#x: %v", n, addr, err))
		}
	}
	return n
}

// Write writes buf to fd and returns the number of bytes written, or -1.
func Write(t *kernel.Task, fd int32, buf []byte) int32 {
	r := newRequest(t)
	addr := r.push(buf)
	return int32(r.trap(userprog.SYS_WRITE, uint32(fd), addr, uint32(len(buf))))
}

// Puts writes s to the console.
func Puts(t *kernel.Task, s string) {
	Write(t, userprog.STDOUT_FILENO, []byte(s))
}

// Printf formats to the console.
func Printf(t *kernel.Task, format string, v ...any) {
	Puts(t, fmt.Sprintf(format, v...))
}

// Seek moves the position of fd. Positions past the end are ignored.
func Seek(t *kernel.Task, fd int32, pos uint32) {
	newRequest(t).trap(userprog.SYS_SEEK, uint32(fd), pos)
}

// Tell returns the position of fd, or -1.
func Tell(t *kernel.Task, fd int32) int32 {
	return int32(newRequest(t).trap(userprog.SYS_TELL, uint32(fd)))
}

// Close closes fd.
func Close(t *kernel.Task, fd int32) {
	newRequest(t).trap(userprog.SYS_CLOSE, uint32(fd))
}

// Sleep blocks for ms milliseconds.
func Sleep(t *kernel.Task, ms int32) {
	newRequest(t).trap(userprog.SYS_SLEEP, uint32(ms))
}

// Plist displays the process table on the console.
func Plist(t *kernel.Task) {
	newRequest(t).trap(userprog.SYS_PLIST)
}
