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

// Package loader resolves exec command lines to programs.
//
// Programs are Go functions registered by name. A file in the filesystem
// that starts with "#!" is an interpreter script: it runs the registered
// program named on its first line, with the script name added to its
// arguments.
package loader

import (
	"context"
	"sort"
	"strings"

	"usergate.dev/usergate/pkg/errors/linuxerr"
	"usergate.dev/usergate/pkg/log"
	"usergate.dev/usergate/pkg/sentry/fs"
	"usergate.dev/usergate/pkg/sentry/kernel"
	"usergate.dev/usergate/pkg/sync"
)

// Registry maps program names to programs. It implements kernel.Loader.
type Registry struct {
	// fs holds interpreter scripts. It may be nil.
	fs fs.Filesystem

	mu sync.RWMutex

	// +checklocks:mu
	programs map[string]kernel.Program
}

var _ kernel.Loader = (*Registry)(nil)

// NewRegistry returns an empty registry that finds interpreter scripts in
// filesystem, if it is not nil.
func NewRegistry(filesystem fs.Filesystem) *Registry {
	return &Registry{
		fs:       filesystem,
		programs: make(map[string]kernel.Program),
	}
}

// Register adds program p under name. Names are single words.
func (r *Registry) Register(name string, p kernel.Program) error {
	if name == "" || strings.ContainsAny(name, " \t\n\r") || p == nil {
		return linuxerr.EINVAL
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[name]; ok {
		return linuxerr.EEXIST
	}
	r.programs[name] = p
	return nil
}

// Lookup returns the program registered under name.
func (r *Registry) Lookup(name string) (kernel.Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[name]
	return p, ok
}

// Names returns the registered program names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.programs))
	for name := range r.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load implements kernel.Loader.Load. Registered programs take precedence
// over scripts of the same name.
func (r *Registry) Load(ctx context.Context, name string) (kernel.Program, error) {
	if p, ok := r.Lookup(name); ok {
		return p, nil
	}
	if r.fs == nil {
		return nil, linuxerr.ENOENT
	}

	f, err := r.fs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	interp, prefix, err := parseInterpreterScript(ctx, name, f)
	if err != nil {
		return nil, err
	}
	// Scripts cannot name other scripts.
	p, ok := r.Lookup(interp)
	if !ok {
		log.Infof("Interpreter %q of script %q is not a program", interp, name)
		return nil, linuxerr.ENOENT
	}
	return func(t *kernel.Task, argv []string) int32 {
		newargv := append(append([]string(nil), prefix...), argv[1:]...)
		return p(t, newargv)
	}, nil
}
