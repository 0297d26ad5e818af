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

package usermem

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
)

// countingTranslator is a sparse page map that records every lookup.
type countingTranslator struct {
	pages   map[hostarch.Addr][]byte
	lookups []hostarch.Addr
}

func newCountingTranslator(pages ...hostarch.Addr) *countingTranslator {
	ct := &countingTranslator{pages: make(map[hostarch.Addr][]byte)}
	for _, p := range pages {
		ct.pages[p.RoundDown()] = make([]byte, hostarch.PageSize)
	}
	return ct
}

// Translate implements Translator.Translate.
func (ct *countingTranslator) Translate(addr hostarch.Addr) ([]byte, bool) {
	ct.lookups = append(ct.lookups, addr)
	frame, ok := ct.pages[addr.RoundDown()]
	return frame, ok
}

// fill writes b into mapped memory at addr, bypassing lookup accounting.
func (ct *countingTranslator) fill(addr hostarch.Addr, b []byte) {
	for i, c := range b {
		a := addr + hostarch.Addr(i)
		ct.pages[a.RoundDown()][a.PageOffset()] = c
	}
}

const (
	page1 = hostarch.Addr(0x10000)
	page2 = page1 + hostarch.PageSize
	page3 = page2 + hostarch.PageSize
	page4 = page3 + hostarch.PageSize
)

func TestVerifyFixedSinglePageLooksUpOnce(t *testing.T) {
	for _, tc := range []struct {
		name   string
		base   hostarch.Addr
		length uint64
	}{
		{"whole page", page1, hostarch.PageSize},
		{"one byte", page1 + 100, 1},
		{"tail of page", page1 + 100, hostarch.PageSize - 100},
		{"word", page1 + hostarch.PageSize - 4, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ct := newCountingTranslator(page1)
			if !VerifyFixed(ct, tc.base, tc.length) {
				t.Fatalf("VerifyFixed(%#x, %d) = false, want true", tc.base, tc.length)
			}
			if got := len(ct.lookups); got != 1 {
				t.Errorf("VerifyFixed(%#x, %d) looked up %d pages, want 1", tc.base, tc.length, got)
			}
		})
	}
}

func TestVerifyFixedLooksUpEachPageOnce(t *testing.T) {
	ct := newCountingTranslator(page1, page2, page3, page4)
	base := page1 + 17
	length := uint64(3*hostarch.PageSize + 5)
	if !VerifyFixed(ct, base, length) {
		t.Fatalf("VerifyFixed = false, want true")
	}
	want := []hostarch.Addr{page1, page2, page3, page4}
	if diff := cmp.Diff(want, ct.lookups); diff != "" {
		t.Errorf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyFixedLastByteUnmapped(t *testing.T) {
	ct := newCountingTranslator(page1, page2)
	// The last byte of the range is the first byte of page3.
	if VerifyFixed(ct, page1+10, uint64(2*hostarch.PageSize-10+1)) {
		t.Errorf("VerifyFixed accepted a range whose last byte is unmapped")
	}
	// One byte shorter is fine.
	if !VerifyFixed(ct, page1+10, uint64(2*hostarch.PageSize-10)) {
		t.Errorf("VerifyFixed rejected a fully mapped range")
	}
}

func TestVerifyFixedStopsAtFirstHole(t *testing.T) {
	ct := newCountingTranslator(page1, page3)
	if VerifyFixed(ct, page1, 3*hostarch.PageSize) {
		t.Fatalf("VerifyFixed accepted a range with a hole")
	}
	if diff := cmp.Diff([]hostarch.Addr{page1, page2}, ct.lookups); diff != "" {
		t.Errorf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyFixedFailsClosed(t *testing.T) {
	top := hostarch.UserTop - hostarch.PageSize
	for _, tc := range []struct {
		name   string
		base   hostarch.Addr
		length uint64
	}{
		{"null", 0, 4},
		{"kernel", hostarch.UserTop, 4},
		{"straddles kernel", hostarch.UserTop - 2, 4},
		{"wraps", ^hostarch.Addr(0) - 1, 4},
		{"huge", page1, 1 << 40},
		{"above top", top, hostarch.PageSize + 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ct := newCountingTranslator(page1, top)
			if VerifyFixed(ct, tc.base, tc.length) {
				t.Errorf("VerifyFixed(%#x, %d) = true, want false", tc.base, tc.length)
			}
			if len(ct.lookups) != 0 {
				t.Errorf("VerifyFixed(%#x, %d) looked up %v, want none", tc.base, tc.length, ct.lookups)
			}
		})
	}
}

func TestVerifyFixedEndsAtUserTop(t *testing.T) {
	top := hostarch.UserTop - hostarch.PageSize
	ct := newCountingTranslator(top)
	if !VerifyFixed(ct, hostarch.UserTop-8, 8) {
		t.Errorf("VerifyFixed rejected the last mapped user bytes")
	}
}

func TestVerifyFixedEmpty(t *testing.T) {
	for _, tc := range []struct {
		name string
		base hostarch.Addr
		want bool
	}{
		{"unaligned", page1 + 3, true},
		{"page aligned", page1, true},
		{"user top", hostarch.UserTop, true},
		{"null", 0, false},
		{"kernel", hostarch.UserTop + 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ct := newCountingTranslator()
			if got := VerifyFixed(ct, tc.base, 0); got != tc.want {
				t.Errorf("VerifyFixed(%#x, 0): got %t, want %t", tc.base, got, tc.want)
			}
			if len(ct.lookups) != 0 {
				t.Errorf("VerifyFixed translated an empty range: %v", ct.lookups)
			}
		})
	}
}

func TestVerifyCString(t *testing.T) {
	for _, tc := range []struct {
		name        string
		pages       []hostarch.Addr
		base        hostarch.Addr
		data        []byte
		want        bool
		wantLookups int
	}{
		{
			name:        "within page",
			pages:       []hostarch.Addr{page1},
			base:        page1 + 10,
			data:        []byte("hello\x00"),
			want:        true,
			wantLookups: 1,
		},
		{
			name:        "empty string",
			pages:       []hostarch.Addr{page1},
			base:        page1,
			data:        []byte{0},
			want:        true,
			wantLookups: 1,
		},
		{
			name:        "crosses into mapped page",
			pages:       []hostarch.Addr{page1, page2},
			base:        page2 - 3,
			data:        []byte("abcdef\x00"),
			want:        true,
			wantLookups: 2,
		},
		{
			name:        "crosses into unmapped page",
			pages:       []hostarch.Addr{page1},
			base:        page2 - 3,
			data:        []byte("abc"),
			want:        false,
			wantLookups: 2,
		},
		{
			name:        "terminator is last byte of page",
			pages:       []hostarch.Addr{page1},
			base:        page2 - 3,
			data:        []byte("ab\x00"),
			want:        true,
			wantLookups: 1,
		},
		{
			name:        "start unmapped",
			pages:       nil,
			base:        page1,
			want:        false,
			wantLookups: 1,
		},
		{
			name:        "null",
			pages:       []hostarch.Addr{page1},
			base:        0,
			want:        false,
			wantLookups: 0,
		},
		{
			name:        "kernel",
			pages:       []hostarch.Addr{page1},
			base:        hostarch.UserTop + 5,
			want:        false,
			wantLookups: 0,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ct := newCountingTranslator(tc.pages...)
			// Pages default to zero; fill non-terminated bytes so the scan
			// runs off the end where the test expects it to.
			for _, p := range tc.pages {
				ct.fill(p, bytes.Repeat([]byte{'x'}, hostarch.PageSize))
			}
			ct.fill(tc.base, tc.data)
			if got := VerifyCString(ct, tc.base); got != tc.want {
				t.Errorf("VerifyCString(%#x) = %v, want %v", tc.base, got, tc.want)
			}
			if got := len(ct.lookups); got != tc.wantLookups {
				t.Errorf("VerifyCString(%#x) looked up %d pages (%v), want %d", tc.base, got, ct.lookups, tc.wantLookups)
			}
		})
	}
}

func TestVerifyCStringStopsAtUserTop(t *testing.T) {
	top := hostarch.UserTop - hostarch.PageSize
	ct := newCountingTranslator(top)
	ct.fill(top, bytes.Repeat([]byte{'x'}, hostarch.PageSize))
	if VerifyCString(ct, hostarch.UserTop-4) {
		t.Errorf("VerifyCString ran into kernel space and returned true")
	}
}

func TestCopyInOut(t *testing.T) {
	ct := newCountingTranslator(page1, page2)
	src := []byte("straddles a page boundary")
	addr := page2 - 5
	if n, err := CopyOut(ct, addr, src); err != nil || n != len(src) {
		t.Fatalf("CopyOut: got (%d, %v), want (%d, nil)", n, err, len(src))
	}
	dst := make([]byte, len(src))
	if n, err := CopyIn(ct, addr, dst); err != nil || n != len(src) {
		t.Fatalf("CopyIn: got (%d, %v), want (%d, nil)", n, err, len(src))
	}
	if !bytes.Equal(dst, src) {
		t.Errorf("CopyIn: got %q, want %q", dst, src)
	}
}

func TestCopyInFault(t *testing.T) {
	ct := newCountingTranslator(page1)
	dst := make([]byte, 10)
	n, err := CopyIn(ct, page2-4, dst)
	if n != 4 || !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyIn: got (%d, %v), want (4, EFAULT)", n, err)
	}
	if _, err := CopyIn(ct, 0, dst); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyIn(null): got %v, want EFAULT", err)
	}
}

func TestCopyWords(t *testing.T) {
	ct := newCountingTranslator(page1)
	if err := CopyOutWord(ct, page1+8, 0xdeadbeef); err != nil {
		t.Fatalf("CopyOutWord: %v", err)
	}
	got, err := CopyInWord(ct, page1+8)
	if err != nil || got != 0xdeadbeef {
		t.Errorf("CopyInWord: got (%#x, %v), want (0xdeadbeef, nil)", got, err)
	}
	if b := ct.pages[page1][8:12]; !bytes.Equal(b, []byte{0xef, 0xbe, 0xad, 0xde}) {
		t.Errorf("word stored as %x, want little endian", b)
	}
}

func TestCopyInString(t *testing.T) {
	ct := newCountingTranslator(page1)
	ct.fill(page1, []byte("filename\x00"))
	if s, err := CopyInString(ct, page1, 64); err != nil || s != "filename" {
		t.Errorf("CopyInString: got (%q, %v), want (%q, nil)", s, err, "filename")
	}
	if _, err := CopyInString(ct, page1, 4); !linuxerr.Equals(linuxerr.ENAMETOOLONG, err) {
		t.Errorf("CopyInString with short limit: got %v, want ENAMETOOLONG", err)
	}
	if _, err := CopyInString(ct, page2, 64); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyInString unmapped: got %v, want EFAULT", err)
	}
}
