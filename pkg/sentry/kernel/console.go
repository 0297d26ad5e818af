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

package kernel

import (
	"bufio"
	"errors"
	"io"

	"usergate.dev/usergate/pkg/sync"
)

// Console is the machine's keyboard and display, backing descriptors 0 and
// 1 of every process.
type Console struct {
	// inMu serializes readers so that one read's characters are contiguous.
	inMu sync.Mutex

	// +checklocks:inMu
	in *bufio.Reader

	// outMu makes each Write atomic with respect to other writes.
	outMu sync.Mutex

	// +checklocks:outMu
	out io.Writer
}

// NewConsole returns a console reading keystrokes from in and displaying on
// out. A nil in behaves as an empty keyboard; a nil out discards output.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if in == nil {
		in = eofReader{}
	}
	if out == nil {
		out = io.Discard
	}
	return &Console{in: bufio.NewReader(in), out: out}
}

// Write displays b in one piece.
func (c *Console) Write(b []byte) (int, error) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return c.out.Write(b)
}

// Read reads len(dst) keystrokes, one at a time, echoing each to the display.
// Carriage returns are delivered and echoed as newlines. Read returns fewer
// bytes only if input ends.
func (c *Console) Read(dst []byte) (int, error) {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	for i := range dst {
		ch, err := c.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, err
		}
		if ch == '\r' {
			ch = '\n'
		}
		dst[i] = ch
		if _, err := c.Write(dst[i : i+1]); err != nil {
			return i + 1, err
		}
	}
	return len(dst), nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
