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

// Package hostarch describes the simulated machine's user address space:
// page geometry, the user/kernel split, and checked address arithmetic.
package hostarch

const (
	// PageShift is the binary log of the page size.
	PageShift = 12

	// PageSize is the page size in bytes.
	PageSize = 1 << PageShift

	// UserTop is the first kernel virtual address. User space is the
	// half-open range [0, UserTop).
	UserTop Addr = 0xc0000000

	// WordSize is the size in bytes of one syscall argument or return slot.
	WordSize = 4
)

// Addr represents a simulated virtual address.
type Addr uintptr

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageSize-1)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

// PageOffset returns the offset of v into the current page.
func (v Addr) PageOffset() uint64 {
	return uint64(v & Addr(PageSize-1))
}

// PageNumber returns the index of the page containing v.
func (v Addr) PageNumber() uint64 {
	return uint64(v >> PageShift)
}

// IsPageAligned returns true if v.PageOffset() == 0.
func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	// The second half of the following check is needed in case uintptr is
	// smaller than 64 bits.
	ok = end >= v && uint64(end-v) == length
	return
}

// IsUserAddr returns true if v lies in user space.
func (v Addr) IsUserAddr() bool {
	return v < UserTop
}

// ToRange returns [v, v+length).
func (v Addr) ToRange(length uint64) (AddrRange, bool) {
	end, ok := v.AddLength(length)
	return AddrRange{v, end}, ok
}

// AddrRange is a half-open range of addresses.
type AddrRange struct {
	Start Addr
	End   Addr
}

// Length returns the length of the range.
func (ar AddrRange) Length() uint64 {
	return uint64(ar.End - ar.Start)
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// IsUser returns true if the whole range lies in user space. An empty range
// is user iff its start is.
func (ar AddrRange) IsUser() bool {
	return ar.WellFormed() && ar.Start < UserTop && ar.End <= UserTop
}

// PageCount returns the number of distinct pages touched by ar.
func (ar AddrRange) PageCount() uint64 {
	if ar.Length() == 0 {
		return 0
	}
	return (ar.End-1).PageNumber() - ar.Start.PageNumber() + 1
}
