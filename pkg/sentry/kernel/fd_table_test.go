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

package kernel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sentry/fs"
)

const (
	// maxFD is the largest descriptor of the tables under test.
	maxFD = 32
)

// testFile is an fs.File that only records whether it was closed. Any other
// method panics.
type testFile struct {
	fs.File
	name   string
	closed bool
}

func (f *testFile) Close() error {
	f.closed = true
	return nil
}

func newTestFile(name string) *testFile {
	return &testFile{name: name}
}

func runTest(t testing.TB, fn func(fdTable *FDTable, file fs.File)) {
	t.Helper() // Don't show in stacks.
	fn(NewFDTable(maxFD), newTestFile("test"))
}

// TestFDTableMany fills the table until there is no room, then makes sure
// that removing one descriptor and adding one reuses it.
func TestFDTableMany(t *testing.T) {
	runTest(t, func(fdTable *FDTable, file fs.File) {
		capacity := maxFD - FirstFD + 1
		if fdTable.Capacity() != capacity {
			t.Fatalf("fdTable.Capacity(): got %d, wanted %d", fdTable.Capacity(), capacity)
		}
		for i := 0; i < capacity; i++ {
			fd, err := fdTable.Insert(file)
			if err != nil {
				t.Fatalf("Allocated %v FDs but wanted to allocate %v", i, capacity)
			}
			if want := int32(i) + FirstFD; fd != want {
				t.Fatalf("fdTable.Insert: got fd %d, wanted %d", fd, want)
			}
		}

		if _, err := fdTable.Insert(file); !linuxerr.Equals(linuxerr.EMFILE, err) {
			t.Fatalf("fdTable.Insert in full table: got %v, wanted EMFILE", err)
		}
		if fdTable.Size() != capacity {
			t.Fatalf("fdTable.Size(): got %d, wanted %d", fdTable.Size(), capacity)
		}

		fdTable.Remove(7)
		if fd, err := fdTable.Insert(file); err != nil || fd != 7 {
			t.Fatalf("fdTable.Insert after Remove(7): got (%d, %v), wanted (7, nil)", fd, err)
		}
	})
}

// TestFDTable does a set of simple tests to make sure simple adds, removes
// and lookups work.
func TestFDTable(t *testing.T) {
	runTest(t, func(fdTable *FDTable, file fs.File) {
		fd, err := fdTable.Insert(file)
		if err != nil || fd != FirstFD {
			t.Fatalf("Adding an FD to an empty table: got (%d, %v), want (%d, nil)", fd, err, FirstFD)
		}

		if ref := fdTable.Get(FirstFD); ref != file {
			t.Fatalf("fdTable.Get(%d): got %v, wanted %v", FirstFD, ref, file)
		}

		for _, bad := range []int32{-1, 0, 1, FirstFD + 1, maxFD, maxFD + 1, 1 << 30} {
			if ref := fdTable.Get(bad); ref != nil {
				t.Errorf("fdTable.Get(%d): got %v, wanted nil", bad, ref)
			}
			if ref := fdTable.Remove(bad); ref != nil {
				t.Errorf("fdTable.Remove(%d): got %v, wanted nil", bad, ref)
			}
		}

		ref := fdTable.Remove(FirstFD)
		if ref != file {
			t.Fatalf("fdTable.Remove(%d) for an existing FD: got %v, want %v", FirstFD, ref, file)
		}
		if file.(*testFile).closed {
			t.Fatalf("fdTable.Remove closed the file")
		}

		if ref := fdTable.Remove(FirstFD); ref != nil {
			t.Fatalf("fdTable.Remove(%d) for a removed FD: got success, want failure", FirstFD)
		}
		if fdTable.Size() != 0 {
			t.Fatalf("fdTable.Size(): got %d, wanted 0", fdTable.Size())
		}
	})
}

func TestFDTableRemoveAll(t *testing.T) {
	fdTable := NewFDTable(maxFD)
	a, b, c := newTestFile("a"), newTestFile("b"), newTestFile("c")
	for _, f := range []*testFile{a, b, c} {
		if _, err := fdTable.Insert(f); err != nil {
			t.Fatalf("fdTable.Insert: got %v, wanted nil", err)
		}
	}
	fdTable.Remove(FirstFD + 1)
	if diff := cmp.Diff([]int32{FirstFD, FirstFD + 2}, fdTable.GetFDs()); diff != "" {
		t.Errorf("GetFDs mismatch (-want +got):\n%s", diff)
	}

	got := fdTable.RemoveAll()
	if len(got) != 2 || got[0] != fs.File(a) || got[1] != fs.File(c) {
		t.Fatalf("fdTable.RemoveAll: got %v, wanted [a c]", got)
	}
	for _, f := range []*testFile{a, b, c} {
		if f.closed {
			t.Errorf("fdTable.RemoveAll closed %s", f.name)
		}
	}
	if fdTable.Size() != 0 || len(fdTable.GetFDs()) != 0 {
		t.Errorf("table not empty after RemoveAll: %v", fdTable.GetFDs())
	}
	if fd, err := fdTable.Insert(a); err != nil || fd != FirstFD {
		t.Errorf("fdTable.Insert after RemoveAll: got (%d, %v), wanted (%d, nil)", fd, err, FirstFD)
	}
}

func TestFDTableZeroCapacity(t *testing.T) {
	fdTable := NewFDTable(1)
	if _, err := fdTable.Insert(newTestFile("a")); !linuxerr.Equals(linuxerr.EMFILE, err) {
		t.Errorf("fdTable.Insert into empty table: got %v, wanted EMFILE", err)
	}
}

// TestFDTableConcurrent checks that concurrent inserts never hand out the
// same descriptor twice.
func TestFDTableConcurrent(t *testing.T) {
	fdTable := NewFDTable(maxFD)
	capacity := fdTable.Capacity()
	fds := make([]int32, capacity)
	var g errgroup.Group
	for i := 0; i < capacity; i++ {
		i := i
		g.Go(func() error {
			fd, err := fdTable.Insert(newTestFile("f"))
			fds[i] = fd
			fdTable.Get(fd)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Insert failed: %v", err)
	}
	seen := make(map[int32]bool)
	for _, fd := range fds {
		if seen[fd] {
			t.Fatalf("descriptor %d handed out twice", fd)
		}
		seen[fd] = true
	}
	if fdTable.Size() != capacity {
		t.Errorf("fdTable.Size(): got %d, wanted %d", fdTable.Size(), capacity)
	}
}

func BenchmarkFDLookup(b *testing.B) {
	runTest(b, func(fdTable *FDTable, file fs.File) {
		var fds []int32
		for i := 0; i < 5; i++ {
			fd, err := fdTable.Insert(file)
			if err != nil {
				b.Fatalf("fdTable.Insert: got %v, wanted nil", err)
			}
			fds = append(fds, fd)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			fdTable.Get(fds[i%len(fds)])
		}
	})
}
