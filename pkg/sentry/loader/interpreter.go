// Copyright 2018 Google Inc.
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

package loader

import (
	"bytes"
	"context"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/fs"
)

const (
	// interpreterScriptMagic identifies an interpreter script.
	interpreterScriptMagic = "#!"

	// interpMaxLineLength is the maximum length for the first line of an
	// interpreter script.
	interpMaxLineLength = 127
)

// parseInterpreterScript returns the interpreter named by the script f and
// the arguments that precede the caller's: the interpreter, its optional
// argument, then the script name.
func parseInterpreterScript(ctx context.Context, filename string, f fs.File) (interp string, prefix []string, err error) {
	line := make([]byte, interpMaxLineLength)
	n, err := f.Read(ctx, line)
	if err != nil {
		return "", nil, err
	}
	line = line[:n]

	if !bytes.HasPrefix(line, []byte(interpreterScriptMagic)) {
		return "", nil, linuxerr.ENOEXEC
	}
	// Ignore #!.
	line = line[2:]

	// Ignore everything after newline. A first line longer than
	// interpMaxLineLength is silently truncated.
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	// Skip any whitespace before the interpreter.
	line = bytes.TrimLeft(line, " \t")

	// Only a space or tab delimits the interpreter and its argument. The
	// entire rest of the line is passed as a single argument.
	interpName := line
	var arg []byte
	if i := bytes.IndexAny(line, " \t"); i >= 0 {
		interpName = line[:i]
		if i+1 < len(line) {
			arg = line[i+1:]
		}
	}

	if len(interpName) == 0 {
		log.Infof("Interpreter script %q contains no interpreter: %q", filename, line)
		return "", nil, linuxerr.ENOEXEC
	}

	// Build the argument list:
	//
	// 1. The interpreter.
	prefix = append(prefix, string(interpName))

	// 2. The optional interpreter argument.
	if len(arg) > 0 {
		prefix = append(prefix, string(arg))
	}

	// 3. The script name, in place of the original argv[0].
	prefix = append(prefix, filename)

	return string(interpName), prefix, nil
}
