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

package mm

import (
	"fmt"
	"strings"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/hostarch"
	"usergate.dev/usergate/pkg/log"
)

// maxStackPages is the largest supported process stack, in pages.
const maxStackPages = 1024

// MapStack maps the initial process stack: pages pages ending at
// hostarch.UserTop. The stack is mapped up front; it never grows.
func (as *AddressSpace) MapStack(pages int) (hostarch.AddrRange, error) {
	if pages <= 0 {
		return hostarch.AddrRange{}, linuxerr.ENOMEM
	}
	if pages > maxStackPages {
		log.Warningf("Capping stack size from %d pages down to %d.", pages, maxStackPages)
		pages = maxStackPages
	}
	size := uint64(pages) * hostarch.PageSize
	ar := hostarch.AddrRange{Start: hostarch.UserTop - hostarch.Addr(size), End: hostarch.UserTop}
	log.Debugf("Allocating stack with size of %v bytes", size)
	if err := as.MapRange(ar.Start, size); err != nil {
		return hostarch.AddrRange{}, err
	}
	return ar, nil
}

// String renders the present mappings, one range per line, in the style of
// /proc/[pid]/maps.
func (as *AddressSpace) String() string {
	var b strings.Builder
	for _, ar := range as.Mappings() {
		fmt.Fprintf(&b, "%08x-%08x rw-p %d\n", uint64(ar.Start), uint64(ar.End), ar.PageCount())
	}
	return b.String()
}
