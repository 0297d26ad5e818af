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

package arch

import (
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/usermem"
)

// Stack is a simple wrapper around a usermem.Translator and a stack pointer.
// The stack grows down: every push moves Bottom to a lower address.
type Stack struct {
	// IO is the memory the stack lives in.
	IO usermem.Translator

	// Bottom is the lowest address pushed so far, i.e. the stack pointer.
	Bottom hostarch.Addr
}

// Push copies b onto the stack and returns its address.
func (s *Stack) Push(b []byte) (hostarch.Addr, error) {
	sp := s.Bottom - hostarch.Addr(len(b))
	if sp > s.Bottom {
		return 0, linuxerr.EFAULT
	}
	if _, err := usermem.CopyOut(s.IO, sp, b); err != nil {
		return 0, err
	}
	s.Bottom = sp
	return sp, nil
}

// PushString pushes s followed by a NUL terminator and returns the address
// of its first byte.
func (s *Stack) PushString(str string) (hostarch.Addr, error) {
	b := make([]byte, len(str)+1)
	copy(b, str)
	return s.Push(b)
}

// PushWord pushes one little-endian word.
func (s *Stack) PushWord(v uint32) (hostarch.Addr, error) {
	var b [hostarch.WordSize]byte
	hostarch.ByteOrder.PutUint32(b[:], v)
	return s.Push(b[:])
}

// PushFrame pushes a syscall request frame: the number word at the lowest
// address followed by args in order. It returns the frame address, which is
// the stack pointer a trap must present.
func (s *Stack) PushFrame(sysno uint32, args ...uint32) (hostarch.Addr, error) {
	// Push in reverse so that the number ends up lowest.
	for i := len(args) - 1; i >= 0; i-- {
		if _, err := s.PushWord(args[i]); err != nil {
			return 0, err
		}
	}
	return s.PushWord(sysno)
}

// Align aligns the stack to the given alignment, which must be a power of
// two.
func (s *Stack) Align(alignment int) {
	s.Bottom &^= hostarch.Addr(alignment - 1)
}
