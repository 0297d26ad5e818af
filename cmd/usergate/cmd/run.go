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
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/subcommands"
	"usergate.dev/usergate/pkg/config"
	"usergate.dev/usergate/pkg/log"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// shutdownTimeout bounds how long tasks may keep running after the
	// machine halts.
	shutdownTimeout time.Duration

	// stdin and stdout back the console. If nil, os.Stdin and os.Stdout
	// are used.
	stdin  io.Reader
	stdout io.Writer
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot the machine and run a program as the initial process"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <program> [args...] - boot the machine, run the program and
wait for it to exit or for the machine to halt.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&r.shutdownTimeout, "shutdown-timeout", 5*time.Second, "how long to wait for processes to exit after the machine halts")
}

// Execute implements subcommands.Command.Execute. It expects the
// configuration and a pointer to the exit status of the initial process.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	status := args[1].(*int32)

	in, out := r.stdin, r.stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	k, release, err := Boot(conf, in, out)
	if err != nil {
		Fatalf("booting: %v", err)
	}
	defer release()

	cmdline := strings.Join(f.Args(), " ")
	t, err := k.Exec(nil, cmdline)
	if err != nil {
		log.Warningf("Exec %q: %v", cmdline, err)
		fmt.Fprintf(out, "%s: exec failed: %v\n", f.Arg(0), err)
		if err := k.Shutdown(r.shutdownTimeout); err != nil {
			log.Warningf("Shutdown: %v", err)
		}
		*status = -1
		return subcommands.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	select {
	case <-t.Done():
	case <-k.Context().Done():
		log.Infof("Machine halted while %q was running", cmdline)
	case <-ctx.Done():
		log.Infof("Interrupted, halting")
	}
	if err := k.Shutdown(r.shutdownTimeout); err != nil {
		log.Warningf("Shutdown: %v", err)
	}

	*status = -1
	if t.Exited() {
		*status = t.ExitStatus()
	}
	fmt.Fprintf(out, "%s: exit(%d)\n", t.Name(), *status)
	return subcommands.ExitSuccess
}
