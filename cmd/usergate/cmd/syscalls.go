// Copyright 2019 The gVisor Authors.
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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	"usergate.dev/usergate/pkg/sentry/kernel"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
	table  string
}

// TableInfo documents a syscall table.
type TableInfo struct {
	Name     string       `json:"name"`
	Syscalls []SyscallDoc `json:"syscalls"`
}

// SyscallDoc represents a single item of syscall documentation.
type SyscallDoc struct {
	Num          uintptr `json:"num"`
	Name         string  `json:"name"`
	Args         int     `json:"args"`
	PointerArgs  string  `json:"pointer_args"`
	ReturnsValue bool    `json:"returns_value"`
	Support      string  `json:"support"`
}

type outputFunc func(io.Writer, []TableInfo) error

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print the system call tables."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print the system call tables.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
	f.StringVar(&s.table, "table", "", "Only print the named table.")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		Fatalf("Unsupported output format %q", s.output)
	}
	info, err := tableInfo(s.table)
	if err != nil {
		Fatalf("%v", err)
	}
	if err := out(os.Stdout, info); err != nil {
		Fatalf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// tableInfo documents the registered table called name, or all of them if
// name is empty.
func tableInfo(name string) ([]TableInfo, error) {
	var tables []*kernel.SyscallTable
	if name == "" {
		tables = kernel.SyscallTables()
	} else {
		t, ok := kernel.LookupSyscallTable(name)
		if !ok {
			return nil, fmt.Errorf("syscall table %q not found", name)
		}
		tables = []*kernel.SyscallTable{t}
	}

	info := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		ti := TableInfo{Name: t.Name}
		for num, sc := range t.Table {
			support := "Implemented"
			if !sc.Supported() {
				support = "Reserved"
			}
			ti.Syscalls = append(ti.Syscalls, SyscallDoc{
				Num:          num,
				Name:         sc.Name,
				Args:         sc.Args,
				PointerArgs:  sc.PointerArgs.String(),
				ReturnsValue: sc.ReturnsValue,
				Support:      support,
			})
		}
		sort.Slice(ti.Syscalls, func(i, j int) bool {
			return ti.Syscalls[i].Num < ti.Syscalls[j].Num
		})
		info = append(info, ti)
	}
	sort.Slice(info, func(i, j int) bool {
		return info[i].Name < info[j].Name
	})
	return info, nil
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, info []TableInfo) error {
	for _, ti := range info {
		fmt.Fprintf(w, "%s:\n\n", ti.Name)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintf(tw, "NUM\tNAME\tARGS\tPOINTERS\tRETURNS\tSUPPORT\n"); err != nil {
			return err
		}
		for _, sc := range ti.Syscalls {
			if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%t\t%s\n",
				sc.Num,
				sc.Name,
				sc.Args,
				sc.PointerArgs,
				sc.ReturnsValue,
				sc.Support,
			); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, info []TableInfo) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(info)
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, info []TableInfo) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{
		"table",
		"num",
		"name",
		"args",
		"pointer_args",
		"returns_value",
		"support",
	}); err != nil {
		return err
	}
	for _, ti := range info {
		for _, sc := range ti.Syscalls {
			if err := csvWriter.Write([]string{
				ti.Name,
				strconv.FormatUint(uint64(sc.Num), 10),
				sc.Name,
				strconv.Itoa(sc.Args),
				sc.PointerArgs,
				strconv.FormatBool(sc.ReturnsValue),
				sc.Support,
			}); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
