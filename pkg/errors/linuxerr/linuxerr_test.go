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

package linuxerr_test

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
	"usergate.dev/usergate/pkg/errors/linuxerr"
)

func TestEquals(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want bool
	}{
		{"same", linuxerr.EBADF, true},
		{"wrapped", fmt.Errorf("close: %w", linuxerr.EBADF), true},
		{"unix", unix.EBADF, true},
		{"other", linuxerr.EMFILE, false},
		{"nil", nil, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := linuxerr.Equals(linuxerr.EBADF, tc.err); got != tc.want {
				t.Errorf("Equals(EBADF, %v): got %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorFromUnixRoundTrip(t *testing.T) {
	for _, e := range []unix.Errno{unix.EBADF, unix.EFAULT, unix.ENOSYS, unix.ECHILD} {
		err := linuxerr.ErrorFromUnix(e)
		if got := linuxerr.ErrnoOf(err); got != e {
			t.Errorf("ErrnoOf(ErrorFromUnix(%v)): got %v", e, got)
		}
	}
	if err := linuxerr.ErrorFromUnix(0); err != nil {
		t.Errorf("ErrorFromUnix(0): got %v, want nil", err)
	}
}

func TestErrnoOfUnknown(t *testing.T) {
	if got := linuxerr.ErrnoOf(fmt.Errorf("opaque")); got != unix.EIO {
		t.Errorf("ErrnoOf(opaque): got %v, want EIO", got)
	}
}
