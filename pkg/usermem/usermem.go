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

// Package usermem proves that user-supplied memory regions are safe for the
// kernel to touch, and copies data across the user/kernel boundary.
//
// Every routine here consults a Translator for each page it touches, and
// each page at most once per call. Nothing dereferences a page whose mapping
// has not been confirmed present.
package usermem

import (
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
)

// Translator maps user pages to backing memory. It stands in for one
// process's page directory.
type Translator interface {
	// Translate returns the frame backing the page containing addr, or
	// ok == false if that page has no present mapping. A present frame is
	// exactly hostarch.PageSize bytes long.
	Translate(addr hostarch.Addr) (frame []byte, ok bool)
}

// translate looks up the page containing addr. Frames of the wrong size are
// treated as not present.
func translate(tr Translator, addr hostarch.Addr) ([]byte, bool) {
	frame, ok := tr.Translate(addr.RoundDown())
	if !ok || len(frame) != hostarch.PageSize {
		return nil, false
	}
	return frame, true
}

// VerifyFixed returns true iff every byte of [base, base+length) is a
// non-null user address backed by a present mapping.
//
// The range is rejected without any lookup if base is null, the range wraps
// or any part of it lies in kernel space. Otherwise each page touched by the
// range is looked up exactly once, in ascending order, stopping at the first
// page that is not present. An empty range is accepted without probing if
// base is non-null and no higher than UserTop.
func VerifyFixed(tr Translator, base hostarch.Addr, length uint64) bool {
	if base == 0 {
		return false
	}
	if length == 0 {
		return base <= hostarch.UserTop
	}
	ar, ok := base.ToRange(length)
	if !ok || !ar.IsUser() {
		return false
	}
	for page := base.RoundDown(); page < ar.End; page += hostarch.PageSize {
		if _, ok := translate(tr, page); !ok {
			return false
		}
	}
	return true
}

// VerifyCString returns true iff base is a non-null, mapped user address and
// a NUL byte is reachable from it without entering an unmapped page or
// kernel space.
//
// The page containing base is looked up first; afterwards a page is looked up only
// when the scan crosses into it.
func VerifyCString(tr Translator, base hostarch.Addr) bool {
	_, ok := cstringLen(tr, base, -1)
	return ok
}

// cstringLen scans for the NUL terminating the string at base and returns the
// string's length, excluding the NUL. If maxLen is non-negative the scan
// stops with ok == false once maxLen bytes have been read without finding
// the terminator.
func cstringLen(tr Translator, base hostarch.Addr, maxLen int) (n int, ok bool) {
	if base == 0 || !base.IsUserAddr() {
		return 0, false
	}
	page := base.RoundDown()
	frame, ok := translate(tr, page)
	if !ok {
		return 0, false
	}
	for addr := base; ; addr++ {
		if addr.RoundDown() != page {
			// addr only ever increases by one, so leaving user space means
			// addr == UserTop here; the wraparound case cannot be reached.
			if !addr.IsUserAddr() {
				return 0, false
			}
			page = addr.RoundDown()
			if frame, ok = translate(tr, page); !ok {
				return 0, false
			}
		}
		if frame[addr.PageOffset()] == 0 {
			return int(addr - base), true
		}
		if maxLen >= 0 && int(addr-base) >= maxLen {
			return 0, false
		}
	}
}

// userRange validates [addr, addr+length) for a copy.
func userRange(addr hostarch.Addr, length int) (hostarch.AddrRange, error) {
	if length < 0 {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	ar, ok := addr.ToRange(uint64(length))
	if !ok || !ar.IsUser() || (addr == 0 && length > 0) {
		return hostarch.AddrRange{}, linuxerr.EFAULT
	}
	return ar, nil
}

// CopyIn copies len(dst) bytes from user memory starting at addr into dst.
// It returns the number of bytes copied and EFAULT if a page in the range is
// not present; the copy stops at that page.
func CopyIn(tr Translator, addr hostarch.Addr, dst []byte) (int, error) {
	if _, err := userRange(addr, len(dst)); err != nil {
		return 0, err
	}
	done := 0
	for done < len(dst) {
		cur := addr + hostarch.Addr(done)
		frame, ok := translate(tr, cur)
		if !ok {
			return done, linuxerr.EFAULT
		}
		done += copy(dst[done:], frame[cur.PageOffset():])
	}
	return done, nil
}

// CopyOut copies src into user memory starting at addr. It returns the
// number of bytes copied and EFAULT if a page in the range is not present;
// the copy stops at that page.
func CopyOut(tr Translator, addr hostarch.Addr, src []byte) (int, error) {
	if _, err := userRange(addr, len(src)); err != nil {
		return 0, err
	}
	done := 0
	for done < len(src) {
		cur := addr + hostarch.Addr(done)
		frame, ok := translate(tr, cur)
		if !ok {
			return done, linuxerr.EFAULT
		}
		done += copy(frame[cur.PageOffset():], src[done:])
	}
	return done, nil
}

// CopyInWord reads one word from user memory.
func CopyInWord(tr Translator, addr hostarch.Addr) (uint32, error) {
	var b [hostarch.WordSize]byte
	if _, err := CopyIn(tr, addr, b[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint32(b[:]), nil
}

// CopyOutWord writes one word to user memory.
func CopyOutWord(tr Translator, addr hostarch.Addr, v uint32) error {
	var b [hostarch.WordSize]byte
	hostarch.ByteOrder.PutUint32(b[:], v)
	_, err := CopyOut(tr, addr, b[:])
	return err
}

// CopyInString copies a NUL-terminated string from user memory. The string
// may be at most maxLen bytes long, excluding the terminator; longer strings
// return ENAMETOOLONG. Unreadable memory returns EFAULT.
func CopyInString(tr Translator, addr hostarch.Addr, maxLen int) (string, error) {
	n, ok := cstringLen(tr, addr, maxLen)
	if !ok {
		if _, terminated := cstringLen(tr, addr, -1); terminated {
			return "", linuxerr.ENAMETOOLONG
		}
		return "", linuxerr.EFAULT
	}
	buf := make([]byte, n)
	if _, err := CopyIn(tr, addr, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
