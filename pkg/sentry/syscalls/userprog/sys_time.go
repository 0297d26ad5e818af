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

package userprog

import (
	"time"

	"usergate.dev/usergate/pkg/sentry/arch"
	"usergate.dev/usergate/pkg/sentry/kernel"
)

// Sleep implements the sleep syscall. It blocks the caller for the given
// number of milliseconds; a non-positive duration returns at once. Halting
// the machine cuts the sleep short.
func Sleep(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	ms := args[0].Int()
	if ms <= 0 {
		return 0, nil, nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return 0, nil, nil
	case <-t.Context().Done():
		return 0, nil, t.Context().Err()
	}
}
