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

// Package filetest provides a conformance suite that every fs.Filesystem
// implementation runs from its own tests.
package filetest

import (
	"bytes"
	"context"
	"testing"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/sentry/fs"
)

// Run runs the conformance suite. newFS must return an empty filesystem.
func Run(t *testing.T, newFS func(t *testing.T) fs.Filesystem) {
	for _, tc := range []struct {
		name string
		fn   func(t *testing.T, ctx context.Context, fsys fs.Filesystem)
	}{
		{"CreateOpen", testCreateOpen},
		{"CreateExisting", testCreateExisting},
		{"BadNames", testBadNames},
		{"FixedLength", testFixedLength},
		{"SeekTell", testSeekTell},
		{"IndependentHandles", testIndependentHandles},
		{"RemoveWhileOpen", testRemoveWhileOpen},
		{"RemoveMissing", testRemoveMissing},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, context.Background(), newFS(t))
		})
	}
}

func mustCreateOpen(t *testing.T, ctx context.Context, fsys fs.Filesystem, name string, length int64) fs.File {
	t.Helper()
	if err := fsys.Create(ctx, name, length); err != nil {
		t.Fatalf("Create(%q, %d) failed: %v", name, length, err)
	}
	f, err := fsys.Open(ctx, name)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", name, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func testCreateOpen(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	f := mustCreateOpen(t, ctx, fsys, "a", 10)
	if n, err := f.Length(ctx); err != nil || n != 10 {
		t.Errorf("Length got (%d, %v) want (10, nil)", n, err)
	}
	buf := make([]byte, 16)
	n, err := f.Read(ctx, buf)
	if err != nil || n != 10 {
		t.Fatalf("Read got (%d, %v) want (10, nil)", n, err)
	}
	if !bytes.Equal(buf[:n], make([]byte, 10)) {
		t.Errorf("new file is not zero-filled: %q", buf[:n])
	}
	if _, err := fsys.Open(ctx, "missing"); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("Open(missing) got err %v want ENOENT", err)
	}
}

func testCreateExisting(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	if err := fsys.Create(ctx, "a", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := fsys.Create(ctx, "a", 1); !linuxerr.Equals(linuxerr.EEXIST, err) {
		t.Errorf("second Create got err %v want EEXIST", err)
	}
}

func testBadNames(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	for _, name := range []string{"", "fifteen-chars-x", "a/b", ".", ".."} {
		if err := fsys.Create(ctx, name, 1); err == nil {
			t.Errorf("Create(%q) succeeded", name)
		}
		if _, err := fsys.Open(ctx, name); err == nil {
			t.Errorf("Open(%q) succeeded", name)
		}
	}
	// NameMax bytes is fine.
	if err := fsys.Create(ctx, "fourteen-chars", 1); err != nil {
		t.Errorf("Create of a %d byte name failed: %v", fs.NameMax, err)
	}
}

func testFixedLength(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	f := mustCreateOpen(t, ctx, fsys, "a", 4)
	n, err := f.Write(ctx, []byte("abcdef"))
	if err != nil || n != 4 {
		t.Fatalf("Write got (%d, %v) want (4, nil)", n, err)
	}
	if n, err := f.Write(ctx, []byte("g")); err != nil || n != 0 {
		t.Errorf("Write at end got (%d, %v) want (0, nil)", n, err)
	}
	if l, _ := f.Length(ctx); l != 4 {
		t.Errorf("Write extended the file to %d bytes", l)
	}
	f.Seek(0)
	buf := make([]byte, 8)
	n, err = f.Read(ctx, buf)
	if err != nil || string(buf[:n]) != "abcd" {
		t.Errorf("Read got (%q, %v) want (%q, nil)", buf[:n], err, "abcd")
	}
	if n, err := f.Read(ctx, buf); err != nil || n != 0 {
		t.Errorf("Read at end got (%d, %v) want (0, nil)", n, err)
	}
}

func testSeekTell(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	f := mustCreateOpen(t, ctx, fsys, "a", 8)
	if _, err := f.Write(ctx, []byte("01234567")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := f.Tell(); got != 8 {
		t.Errorf("Tell after write got %d want 8", got)
	}
	f.Seek(5)
	buf := make([]byte, 2)
	if n, _ := f.Read(ctx, buf); string(buf[:n]) != "56" {
		t.Errorf("Read after Seek(5) got %q want %q", buf[:n], "56")
	}
	if got := f.Tell(); got != 7 {
		t.Errorf("Tell got %d want 7", got)
	}
	f.Seek(100)
	if n, err := f.Read(ctx, buf); n != 0 || err != nil {
		t.Errorf("Read past end got (%d, %v) want (0, nil)", n, err)
	}
}

func testIndependentHandles(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	f1 := mustCreateOpen(t, ctx, fsys, "a", 4)
	f2, err := fsys.Open(ctx, "a")
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer f2.Close()
	if _, err := f1.Write(ctx, []byte("wxyz")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := f2.Tell(); got != 0 {
		t.Errorf("second handle position moved to %d", got)
	}
	buf := make([]byte, 4)
	if n, _ := f2.Read(ctx, buf); string(buf[:n]) != "wxyz" {
		t.Errorf("second handle read %q want %q", buf[:n], "wxyz")
	}
}

func testRemoveWhileOpen(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	f := mustCreateOpen(t, ctx, fsys, "a", 3)
	if _, err := f.Write(ctx, []byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fsys.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := fsys.Open(ctx, "a"); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("Open after Remove got err %v want ENOENT", err)
	}
	f.Seek(0)
	buf := make([]byte, 3)
	if n, err := f.Read(ctx, buf); err != nil || string(buf[:n]) != "abc" {
		t.Errorf("Read from removed file got (%q, %v) want (%q, nil)", buf[:n], err, "abc")
	}
	// The name is free again.
	if err := fsys.Create(ctx, "a", 1); err != nil {
		t.Errorf("Create after Remove failed: %v", err)
	}
}

func testRemoveMissing(t *testing.T, ctx context.Context, fsys fs.Filesystem) {
	if err := fsys.Remove(ctx, "missing"); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("Remove(missing) got err %v want ENOENT", err)
	}
}
