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

package kernel

import (
	"testing"

	"usergate.dev/usergate/pkg/sentry/arch"
)

const (
	maxTestSyscall = 100
)

func createSyscallTable() *SyscallTable {
	m := make(map[uintptr]Syscall)
	for i := uintptr(0); i < maxTestSyscall; i++ {
		j := i
		m[i] = Syscall{
			Name: "test",
			Fn: func(*Task, arch.SyscallArguments) (uintptr, *SyscallControl, error) {
				return j, nil, nil
			},
		}
	}
	// One reserved number with no implementation.
	m[maxTestSyscall-1] = Syscall{Name: "reserved"}

	s := &SyscallTable{
		Name:  "test",
		Max:   maxTestSyscall + 1,
		Table: m,
	}

	RegisterSyscallTable(s)
	return s
}

func TestTable(t *testing.T) {
	table := createSyscallTable()
	defer func() {
		// Cleanup registered tables to keep tests separate.
		allSyscallTables = []*SyscallTable{}
	}()

	// Go through all functions and check that they return the right value.
	for i := uintptr(0); i < maxTestSyscall-1; i++ {
		fn := table.Lookup(i)
		if fn == nil || !fn.Supported() {
			t.Errorf("Syscall %v is not supported", i)
			continue
		}

		v, _, _ := fn.Fn(nil, arch.SyscallArguments{})
		if v != i {
			t.Errorf("Wrong return value for syscall %v: expected %v, got %v", i, i, v)
		}
	}

	if fn := table.Lookup(maxTestSyscall - 1); fn == nil || fn.Supported() {
		t.Errorf("Reserved syscall: got %+v, want an unsupported entry", fn)
	}

	// Numbers inside Max without an entry, at Max, and above it.
	for _, sysno := range []uintptr{maxTestSyscall, maxTestSyscall + 1, 1 << 31, ^uintptr(0)} {
		if fn := table.Lookup(sysno); fn != nil {
			t.Errorf("Lookup(%#x): got %+v, want nil", sysno, fn)
		}
	}

	// Lookup agrees with the map.
	for i := uintptr(0); i <= maxTestSyscall+1; i++ {
		a, b := table.Lookup(i), table.mapLookup(i)
		if (a == nil) != (b == nil) || (a != nil && a.Name != b.Name) {
			t.Errorf("Lookup(%d) = %+v, mapLookup(%d) = %+v", i, a, i, b)
		}
	}

	if got, ok := LookupSyscallTable("test"); !ok || got != table {
		t.Errorf("LookupSyscallTable(test) = %p, %t; want %p", got, ok, table)
	}
	if _, ok := LookupSyscallTable("missing"); ok {
		t.Errorf("LookupSyscallTable(missing) succeeded")
	}
	if got := len(SyscallTables()); got != 1 {
		t.Errorf("len(SyscallTables()) = %d, want 1", got)
	}
}

func TestTableInitPanics(t *testing.T) {
	for _, tc := range []struct {
		name  string
		entry Syscall
		num   uintptr
	}{
		{name: "out of range", num: 4, entry: Syscall{Name: "far"}},
		{name: "too many args", num: 0, entry: Syscall{Name: "wide", Args: len(arch.SyscallArguments{}) + 1}},
		{name: "negative args", num: 0, entry: Syscall{Name: "neg", Args: -1}},
		{name: "path without args", num: 0, entry: Syscall{Name: "path", PointerArgs: PathArg}},
		{name: "short buffer", num: 0, entry: Syscall{Name: "buf", Args: 2, PointerArgs: BufferArg}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Init did not panic")
				}
			}()
			s := &SyscallTable{Name: tc.name, Max: 4, Table: map[uintptr]Syscall{tc.num: tc.entry}}
			s.Init()
		})
	}
}

func TestPointerArgsString(t *testing.T) {
	for p, want := range map[PointerArgs]string{
		NoPointerArgs:  "none",
		PathArg:        "path",
		BufferArg:      "buffer",
		PointerArgs(9): "PointerArgs(9)",
	} {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(p), got, want)
		}
	}
}

func BenchmarkTableLookup(b *testing.B) {
	table := createSyscallTable()
	defer func() {
		allSyscallTables = []*SyscallTable{}
	}()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.Lookup(uintptr(i % (maxTestSyscall + 2)))
	}
}
