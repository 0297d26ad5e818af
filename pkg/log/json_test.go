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

package log

import (
	"encoding/json"
	"strings"
	"testing"
)

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	lvs := []Level{Warning, Info, Debug}
	for _, lv := range lvs {
		bs, err := lv.MarshalJSON()
		if err != nil {
			t.Errorf("error marshaling %v: %v", lv, err)
		}
		var lv2 Level
		if err := lv2.UnmarshalJSON(bs); err != nil {
			t.Errorf("error unmarshaling %v: %v", bs, err)
		}
		if lv != lv2 {
			t.Errorf("marshal/unmarshal level got %v wanted %v", lv2, lv)
		}
	}
}

// Tests that the level can be properly unmarshaled from an integer.
func TestUnmarshalFromInt(t *testing.T) {
	tcs := []struct {
		i    int
		want Level
	}{
		{0, Warning},
		{1, Info},
		{2, Debug},
	}

	for _, tc := range tcs {
		j, err := json.Marshal(tc.i)
		if err != nil {
			t.Errorf("error marshaling %v: %v", tc.i, err)
		}
		var lv Level
		if err := lv.UnmarshalJSON(j); err != nil {
			t.Errorf("error unmarshaling %v: %v", j, err)
		}
		if lv != tc.want {
			t.Errorf("marshal/unmarshal %v got %v want %v", tc.i, lv, tc.want)
		}
	}
}

func TestSplitTID(t *testing.T) {
	for _, tc := range []struct {
		in      string
		wantTID int32
		wantMsg string
	}{
		{"[    3] exit(0)", 3, "exit(0)"},
		{"[12345] halt", 12345, "halt"},
		{"no prefix", 0, "no prefix"},
		{"[abc] not a tid", 0, "[abc] not a tid"},
		{"[    0] zero", 0, "[    0] zero"},
		{"[   -4] negative", 0, "[   -4] negative"},
		{"[7]missing space", 0, "[7]missing space"},
		{"[", 0, "["},
	} {
		tid, msg := splitTID(tc.in)
		if tid != tc.wantTID || msg != tc.wantMsg {
			t.Errorf("splitTID(%q) = (%d, %q), want (%d, %q)", tc.in, tid, msg, tc.wantTID, tc.wantMsg)
		}
	}
}

func decodeJSONLine(t *testing.T, line string) jsonLog {
	t.Helper()
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("output %q is not newline terminated", line)
	}
	var got jsonLog
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("output %q is not json: %v", line, err)
	}
	return got
}

func TestJSONEmitter(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: JSONEmitter{&Writer{Next: tw}},
		Level:   Info,
	}
	bl.Infof("pid %d exited", 7)
	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(tw.lines), tw.lines)
	}
	got := decodeJSONLine(t, tw.lines[0])
	if got.Level != Info || got.Msg != "pid 7 exited" || got.TID != 0 {
		t.Errorf("got %+v, want info level message %q with no tid", got, "pid 7 exited")
	}
	if !strings.HasPrefix(got.Caller, "json_test.go:") {
		t.Errorf("caller: got %q, want json_test.go:<line>", got.Caller)
	}
}

func TestJSONEmitterTaskPrefix(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: JSONEmitter{&Writer{Next: tw}},
		Level:   Debug,
	}
	bl.Warningf("[%5d] Rejected request: %s", 42, "bad string")
	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(tw.lines), tw.lines)
	}
	got := decodeJSONLine(t, tw.lines[0])
	if got.TID != 42 || got.Msg != "Rejected request: bad string" || got.Level != Warning {
		t.Errorf("got %+v, want warning from tid 42 with the prefix removed", got)
	}
	if strings.Contains(tw.lines[0], "[") {
		t.Errorf("output %q still carries the task prefix", tw.lines[0])
	}
}
