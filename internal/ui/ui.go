// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui renders query results to a terminal: colorized tables by
// default, or plain JSON under --json. Colors route through
// github.com/fatih/color, off under --no-color, NO_COLOR, or a non-tty
// stdout.
package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow)
)

// InitColors disables every color.Color instance in this package when
// noColor is set, NO_COLOR is set, or stdout isn't a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Outputable is anything cmd/cie can render either as a table or as JSON —
// pkg/queries record slices are adapted to it by the Table helper in this
// package (and by hand-written adapters in cmd/cie) rather than on the domain types themselves,
// keeping pkg/queries free of a presentation dependency.
type Outputable interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable renders headers and string rows as a tab-aligned table with a
// colorized header row, or "No results" if there are none.
func PrintTable(out Outputable) {
	rows := out.Rows()
	if len(rows) == 0 {
		dimColor.Println("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	headers := out.Headers()
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, headerColor.Sprint(h))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()

	dimColor.Printf("\n(%d rows)\n", len(rows))
}

// PrintJSON encodes v as indented JSON to stdout — v is expected to be a
// []SomeRecord slice from pkg/queries, not an Outputable.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Warn prints a dimmed/yellow advisory line to stderr — used for
// non-fatal notices like "no rows matched" that shouldn't pollute --json
// output.
func Warn(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, format+"\n", args...)
}

type sliceTable struct {
	headers []string
	rows    [][]string
}

func (t sliceTable) Headers() []string { return t.headers }
func (t sliceTable) Rows() [][]string  { return t.rows }

// Table builds an Outputable from a []T of flat structs by reflection, one
// column per exported scalar field in declaration order. pkg/queries record
// types are plain data with no presentation concerns of their own, so this
// is the one place that knows how to turn them into columns; nested slice
// fields (e.g. StructDefinition.Fields) are skipped rather than flattened.
func Table(v any) Outputable {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Slice {
		return sliceTable{}
	}
	elemType := val.Type().Elem()
	if elemType.Kind() != reflect.Struct {
		return sliceTable{}
	}

	var headers []string
	var fieldIdx []int
	for i := 0; i < elemType.NumField(); i++ {
		f := elemType.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Type.Kind() == reflect.Slice {
			continue
		}
		headers = append(headers, f.Name)
		fieldIdx = append(fieldIdx, i)
	}

	rows := make([][]string, val.Len())
	for i := 0; i < val.Len(); i++ {
		elem := val.Index(i)
		row := make([]string, len(fieldIdx))
		for j, fi := range fieldIdx {
			row[j] = fmt.Sprint(elem.Field(fi).Interface())
		}
		rows[i] = row
	}
	return sliceTable{headers: headers, rows: rows}
}
