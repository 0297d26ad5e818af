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


package cmd

import (
	"fmt"
	"io"
	"os"

	"usergate.dev/usergate/pkg/config"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/fs/hostfs"
	"usergate.dev/usergate/pkg/sentry/fs/ramfs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/sentry/loader"
	sysuserprog "usergate.dev/usergate/pkg/sentry/syscalls/userprog"
)

// Boot builds a kernel configured by conf, with its console attached to in
// and out. The returned release function must be called once the kernel has
// shut down.
func Boot(conf *config.Config, in io.Reader, out io.Writer) (*kernel.Kernel, func(), error) {
	table, ok := kernel.LookupSyscallTable(sysuserprog.TableName)
	if !ok {
		return nil, nil, fmt.Errorf("syscall table %q not registered", sysuserprog.TableName)
	}

	var (
		filesystem fs.Filesystem
		release    = func() {}
	)
	if conf.RootDir != "" {
		hfs, err := hostfs.New(conf.RootDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening root %q: %w", conf.RootDir, err)
		}
		filesystem = hfs
		release = func() {
			if err := hfs.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "closing root %q: %v\n", conf.RootDir, err)
			}
		}
	} else {
		rfs := ramfs.New()
		for name, data := range conf.Files {
			if err := rfs.Add(name, []byte(data)); err != nil {
				return nil, nil, fmt.Errorf("seeding file %q: %w", name, err)
			}
		}
		filesystem = rfs
	}

	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		SyscallTable:      table,
		Filesystem:        filesystem,
		Console:           kernel.NewConsole(in, out),
		Loader:            loader.NewBuiltinRegistry(filesystem),
		MaxFD:             int32(conf.MaxFD),
		ProcessTableSize:  conf.ProcessTableSize,
		ProcessNameSize:   conf.ProcessNameSize,
		StackPages:        conf.StackPages,
		RejectLogInterval: conf.RejectLogInterval,
	}); err != nil {
		release()
		return nil, nil, err
	}
	return k, release, nil
}
