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

package log

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if len(tw.lines) != len(expected) {
		t.Fatalf("Writer should have logged %d lines, got: %v, expected: %v", len(expected), tw.lines, expected)
	}
	for i, l := range tw.lines {
		if l != expected[i] {
			t.Fatalf("line %d doesn't match, got: %v, expected: %v", i, l, expected[i])
		}
	}
}

func TestCaller(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{Writer: &Writer{Next: tw}}
	bl := &BasicLogger{
		Emitter: e,
		Level:   Debug,
	}
	bl.Debugf("testing...\n") // Just for file + line.
	if len(tw.lines) != 1 {
		t.Errorf("expected 1 line, got %d", len(tw.lines))
	}
	if !strings.Contains(tw.lines[0], "log_test.go") {
		t.Errorf("expected log_test.go, got %q", tw.lines[0])
	}
}

func TestLevelFiltering(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Info,
	}
	bl.Debugf("hidden\n")
	bl.Infof("shown %d\n", 1)
	bl.Warningf("shown %d\n", 2)
	if got, want := len(tw.lines), 2; got != want {
		t.Fatalf("got %d lines (%q), want %d", got, tw.lines, want)
	}
	if bl.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = true at level Info")
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Warning,
	}
	rl := RateLimitedLogger(bl, time.Hour)
	for i := 0; i < 10; i++ {
		rl.Warningf("flood %d\n", i)
	}
	if got, want := len(tw.lines), 1; got != want {
		t.Errorf("rate limited logger emitted %d lines, want %d", got, want)
	}
}

func TestPatternOpts(t *testing.T) {
	ts := time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)
	opts := PatternOpts{Command: "run", Timestamp: ts}
	for _, tc := range []struct {
		pattern string
		want    string
	}{
		{"/tmp/log.%COMMAND%", "/tmp/log.run"},
		{"/tmp/dir/", "/tmp/dir/usergate.log.20261016-123000.000000.run"},
	} {
		if got := opts.Build(tc.pattern); got != tc.want {
			t.Errorf("Build(%q): got %q, want %q", tc.pattern, got, tc.want)
		}
	}
}
