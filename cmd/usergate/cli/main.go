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


// Package cli is the main entrypoint for usergate.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/subcommands"
	"usergate.dev/usergate/cmd/usergate/cmd"
	"usergate.dev/usergate/pkg/config"
	"usergate.dev/usergate/pkg/log"
)

var configFile = flag.String("config", "", "configuration file (.toml, .yaml or .yml). Flags set on the command line take precedence.")

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	conf, err := loadConfig(flag.CommandLine, *configFile)
	if err != nil {
		cmd.Fatalf("%v", err)
	}

	subcommand := flag.CommandLine.Arg(0)

	// Set up logging.
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	var emitters log.MultiEmitter
	if len(conf.DebugLog) > 0 {
		f, err := log.OpenFile(conf.DebugLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, log.PatternOpts{
			Command:   subcommand,
			Timestamp: time.Now(),
		})
		if err != nil {
			cmd.Fatalf("error opening debug log file in %q: %v", conf.DebugLog, err)
		}
		emitters = append(emitters, newEmitter(conf.DebugLogFormat, f))
	}
	if conf.Debug {
		// Stdout is the console of the machine; debug output goes to
		// stderr.
		emitters = append(emitters, newEmitter(conf.DebugLogFormat, os.Stderr))
	}
	switch len(emitters) {
	case 0:
		log.SetTarget(newEmitter("text", io.Discard))
	case 1:
		log.SetTarget(emitters[0])
	default:
		log.SetTarget(&emitters)
	}

	const delimString = `**************** usergate ****************`
	log.Infof(delimString)
	log.Infof("%s, %s, %d CPUs, %s, PID %d", runtime.Version(), runtime.GOARCH, runtime.NumCPU(), runtime.GOOS, os.Getpid())
	log.Infof("Args: %v", os.Args)
	conf.Log()
	log.Infof(delimString)

	// Call the subcommand and pass in the configuration.
	var status int32
	subcmdCode := subcommands.Execute(context.Background(), conf, &status)
	if subcmdCode == subcommands.ExitSuccess {
		log.Infof("Exiting with status: %d", status)
		os.Exit(int(uint8(status)))
	}
	// Return an error that is unlikely to be used by a program.
	log.Warningf("Failure to execute command, err: %v", subcmdCode)
	os.Exit(128)
}

// loadConfig builds the configuration from the flags of flagSet, layering
// the configuration file at path, if any, under the flags set explicitly.
func loadConfig(flagSet *flag.FlagSet, path string) (*config.Config, error) {
	conf, err := config.NewFromFlags(flagSet)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return conf, nil
	}
	conf, err = config.LoadFile(conf, path)
	if err != nil {
		return nil, err
	}
	if err := conf.ApplyFlags(flagSet); err != nil {
		return nil, fmt.Errorf("applying flags over %q: %w", path, err)
	}
	return conf, nil
}

// forEachCmd invokes the passed callback for each command supported by
// usergate.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")

	cb(new(cmd.Run), "")
	cb(new(cmd.Programs), "")
	cb(new(cmd.Syscalls), "")
}

func newEmitter(format string, logFile io.Writer) log.Emitter {
	switch format {
	case "text":
		return log.GoogleEmitter{Writer: &log.Writer{Next: logFile}}
	case "json":
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	}
	cmd.Fatalf("invalid log format %q, must be 'text' or 'json'", format)
	panic("unreachable")
}
