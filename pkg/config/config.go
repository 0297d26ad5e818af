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

// Package config holds the kernel configuration: flags, configuration files
// and their validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
	"usergate.dev/usergate/pkg/sentry/fs"
)

// Config holds configuration that is not part of the command line of the
// initial program.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with same name and add a description.
//  4. Add any necessary validation into validate().
//  5. If adding a config option that can be set in a file, add the toml and
//     yaml tags too.
type Config struct {
	// MaxFD is the largest descriptor a process may hold.
	MaxFD int `flag:"max-fd" toml:"max-fd" yaml:"max-fd"`

	// ProcessTableSize is the number of process records.
	ProcessTableSize int `flag:"process-table-size" toml:"process-table-size" yaml:"process-table-size"`

	// ProcessNameSize bounds process names to ProcessNameSize-1 bytes.
	ProcessNameSize int `flag:"process-name-size" toml:"process-name-size" yaml:"process-name-size"`

	// StackPages is the number of pages of each process stack.
	StackPages int `flag:"stack-pages" toml:"stack-pages" yaml:"stack-pages"`

	// RootDir is the host directory backing the filesystem. If empty, an
	// in-memory filesystem is used.
	RootDir string `flag:"root" toml:"root" yaml:"root"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug" yaml:"debug"`

	// DebugLog is the path to log debug information to, if not empty.
	DebugLog string `flag:"debug-log" toml:"debug-log" yaml:"debug-log"`

	// DebugLogFormat is the log format for debug: text or json.
	DebugLogFormat string `flag:"debug-log-format" toml:"debug-log-format" yaml:"debug-log-format"`

	// RejectLogInterval is the minimum interval between logged rejected
	// requests.
	RejectLogInterval time.Duration `flag:"reject-log-interval" toml:"reject-log-interval" yaml:"reject-log-interval"`

	// Files seeds the in-memory filesystem: file name to contents. It can
	// only be set in a configuration file.
	Files map[string]string `toml:"files" yaml:"files"`
}

func (c *Config) validate() error {
	if c.MaxFD < 2 {
		return fmt.Errorf("max-fd must be at least 2, got %d", c.MaxFD)
	}
	if c.ProcessTableSize <= 0 {
		return fmt.Errorf("process-table-size must be positive, got %d", c.ProcessTableSize)
	}
	if c.ProcessNameSize <= 1 {
		return fmt.Errorf("process-name-size must be at least 2, got %d", c.ProcessNameSize)
	}
	if c.StackPages <= 0 {
		return fmt.Errorf("stack-pages must be positive, got %d", c.StackPages)
	}
	if c.RejectLogInterval < 0 {
		return fmt.Errorf("reject-log-interval must not be negative, got %v", c.RejectLogInterval)
	}
	switch c.DebugLogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid debug-log-format %q, want text or json", c.DebugLogFormat)
	}
	if c.RootDir != "" && len(c.Files) > 0 {
		return fmt.Errorf("files cannot seed a host root directory")
	}
	for name := range c.Files {
		if err := fs.ValidateName(name); err != nil {
			return fmt.Errorf("invalid file name %q: %w", name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	return deepcopy.Copy(c).(*Config)
}

// LoadFile reads a configuration file over base, which is not modified. The
// format is chosen by extension: .toml, or .yaml and .yml. Unknown keys are
// an error.
func LoadFile(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := base.Clone()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), conf)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decoding %q: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown configuration file format %q", ext)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return conf, nil
}
