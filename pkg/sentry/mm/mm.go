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

// Package mm implements the simulated memory of one user process: a sparse
// page directory mapping page-aligned user addresses to zero-filled frames.
//
// AddressSpace implements usermem.Translator, so it is what the address
// verifier consults before the kernel touches user memory.
package mm

import (
	"github.com/google/btree"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/sync"
)

// pageDegree is the btree degree of the page directory.
const pageDegree = 8

// pte is a present page table entry.
type pte struct {
	// page is the page-aligned user address of the mapping.
	page hostarch.Addr

	// frame is the backing memory. len(frame) == hostarch.PageSize.
	frame []byte
}

func pteLess(a, b pte) bool {
	return a.page < b.page
}

// AddressSpace is a process's page directory.
//
// All methods are safe for concurrent use. Frames returned by Translate stay
// valid after the page is unmapped; they are simply no longer reachable.
type AddressSpace struct {
	mu sync.RWMutex

	// pages is ordered by page address.
	//
	// +checklocks:mu
	pages *btree.BTreeG[pte]
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		pages: btree.NewG[pte](pageDegree, pteLess),
	}
}

// pageRange validates [addr, addr+length) for MapRange and Unmap and returns
// it expanded to page boundaries.
func pageRange(addr hostarch.Addr, length uint64) (hostarch.AddrRange, error) {
	if length == 0 {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	ar, ok := addr.RoundDown().ToRange(length + addr.PageOffset())
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	end, ok := ar.End.RoundUp()
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	ar.End = end
	if !ar.IsUser() {
		return hostarch.AddrRange{}, linuxerr.EFAULT
	}
	return ar, nil
}

// MapRange makes every page touched by [addr, addr+length) present. Pages
// that are already present keep their contents; new pages are zero-filled.
// The null page may be mapped; the verifier rejects address 0 regardless.
func (as *AddressSpace) MapRange(addr hostarch.Addr, length uint64) error {
	ar, err := pageRange(addr, length)
	if err != nil {
		return err
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	for page := ar.Start; page < ar.End; page += hostarch.PageSize {
		if as.pages.Has(pte{page: page}) {
			continue
		}
		as.pages.ReplaceOrInsert(pte{page: page, frame: make([]byte, hostarch.PageSize)})
	}
	return nil
}

// Unmap removes every page touched by [addr, addr+length). Pages that are not
// present are ignored.
func (as *AddressSpace) Unmap(addr hostarch.Addr, length uint64) error {
	ar, err := pageRange(addr, length)
	if err != nil {
		return err
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	var doomed []pte
	as.pages.AscendRange(pte{page: ar.Start}, pte{page: ar.End}, func(p pte) bool {
		doomed = append(doomed, p)
		return true
	})
	for _, p := range doomed {
		as.pages.Delete(p)
	}
	return nil
}

// Translate implements usermem.Translator.Translate.
func (as *AddressSpace) Translate(addr hostarch.Addr) ([]byte, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	p, ok := as.pages.Get(pte{page: addr.RoundDown()})
	if !ok {
		return nil, false
	}
	return p.frame, true
}

// NumPages returns the number of present pages.
func (as *AddressSpace) NumPages() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.pages.Len()
}

// Mappings returns the present pages coalesced into maximal ranges, in
// ascending address order.
func (as *AddressSpace) Mappings() []hostarch.AddrRange {
	as.mu.RLock()
	defer as.mu.RUnlock()
	var ars []hostarch.AddrRange
	as.pages.Ascend(func(p pte) bool {
		if n := len(ars); n > 0 && ars[n-1].End == p.page {
			ars[n-1].End += hostarch.PageSize
		} else {
			ars = append(ars, hostarch.AddrRange{Start: p.page, End: p.page + hostarch.PageSize})
		}
		return true
	})
	return ars
}
