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

package main

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cie/internal/errors"
	"github.com/kraklabs/cie/internal/ui"
	"github.com/kraklabs/cie/pkg/aggregate"
	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/queries"
)

// queryCommand is one "cie <name> ..." leaf: it parses its own flags and
// runs to completion against an already-open backend.Database.
type queryCommand struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error
}

var queryCommands []queryCommand

func init() {
	queryCommands = []queryCommand{
		{"search", "search <pattern> [--module M] [--regex] [--limit N]", runSearch},
		{"search-modules", "search-modules <pattern> [--regex] [--limit N]", runSearchModules},
		{"locate", "locate [<module>] <function> [--arity N] [--regex] [--limit N]", runLocate},
		{"calls-from", "calls-from <module> <function> [--arity N] [--regex] [--limit N]", runCallsFrom},
		{"calls-to", "calls-to <module> <function> [--arity N] [--regex] [--limit N]", runCallsTo},
		{"cycles", "cycles", runCycles},
		{"complexity", "complexity [--module M] [--limit N]", runComplexity},
		{"large-functions", "large-functions [--min-lines N] [--limit N]", runLargeFunctions},
		{"many-clauses", "many-clauses [--min-clauses N] [--limit N]", runManyClauses},
		{"unused", "unused [--private-only] [--public-only] [--exclude-generated] [--limit N]", runUnused},
		{"hotspots", "hotspots [--kind incoming|outgoing|total|ratio] [--limit N]", runHotspots},
		{"specs", "specs [--module M] [--name N] [--limit N]", runSpecs},
		{"types", "types [--module M] [--limit N]", runTypes},
		{"accepts", "accepts <type-pattern> [--limit N]", runAccepts},
		{"structs", "structs [--module M] [--limit N]", runStructs},
		{"clusters", "clusters [--min-edges N]", runClusters},
		{"file", "file <module>", runFile},
		{"module-connectivity", "module-connectivity [--limit N]", runModuleConnectivity},
	}
}

func lookupQueryCommand(name string) (queryCommand, bool) {
	for _, c := range queryCommands {
		if c.name == name {
			return c, true
		}
	}
	return queryCommand{}, false
}

// runQuery opens the configured backend, dispatches to the named query
// command, and closes the backend before returning.
func runQuery(ctx context.Context, cmd queryCommand, args []string, configPath string, globals GlobalFlags) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	db, err := openDatabase(ctx, cfg, configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	defer db.Close()

	if err := cmd.run(ctx, args, cfg, db, globals); err != nil {
		errors.FatalError(err, globals.JSON)
	}
}

func output(globals GlobalFlags, v any, toOutputable func() ui.Outputable) error {
	if globals.JSON {
		return ui.PrintJSON(v)
	}
	ui.PrintTable(toOutputable())
	return nil
}

func runSearch(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	useRegex := fs.Bool("regex", true, "match the pattern by regex instead of equality")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewInputError("Missing argument", "search requires a function name pattern", "cie search <pattern>")
	}
	rows, err := (queries.Search{Project: cfg.ProjectID, Module: *module, Pattern: fs.Arg(0), UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	rows = aggregate.FilterGeneratedFunctionSearchResults(rows)
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runSearchModules(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("search-modules", flag.ContinueOnError)
	useRegex := fs.Bool("regex", true, "match the pattern by regex instead of equality")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewInputError("Missing argument", "search-modules requires a module name pattern", "cie search-modules <pattern>")
	}
	rows, err := (queries.SearchModules{Project: cfg.ProjectID, Pattern: fs.Arg(0), UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runLocate(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	arity := fs.Int64("arity", -1, "exact arity")
	useRegex := fs.Bool("regex", false, "match module/function by regex instead of equality")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var module, name string
	switch fs.NArg() {
	case 1:
		name = fs.Arg(0)
	case 2:
		module, name = fs.Arg(0), fs.Arg(1)
	default:
		return errors.NewInputError("Missing arguments", "locate requires a function name, with an optional module", "cie locate [<module>] <function>")
	}

	rows, err := (queries.Locate{Project: cfg.ProjectID, Module: module, Name: name, HasArity: *arity >= 0, Arity: *arity, UseRegex: *useRegex}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runCallsFrom(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("calls-from", flag.ContinueOnError)
	arity := fs.Int64("arity", -1, "exact arity")
	useRegex := fs.Bool("regex", false, "match the function name by regex instead of equality")
	limit := fs.Int("limit", 100, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.NewInputError("Missing arguments", "calls-from requires a module and a function name", "cie calls-from <module> <function>")
	}
	rows, err := (queries.CallsFrom{Project: cfg.ProjectID, Module: fs.Arg(0), Name: fs.Arg(1), HasArity: *arity >= 0, Arity: *arity, UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runCallsTo(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("calls-to", flag.ContinueOnError)
	arity := fs.Int64("arity", -1, "exact arity")
	useRegex := fs.Bool("regex", false, "match the function name by regex instead of equality")
	limit := fs.Int("limit", 100, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.NewInputError("Missing arguments", "calls-to requires a module and a function name", "cie calls-to <module> <function> [--arity N]")
	}
	rows, err := (queries.CallsTo{Project: cfg.ProjectID, Module: fs.Arg(0), Name: fs.Arg(1), HasArity: *arity >= 0, Arity: *arity, UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

// cycleRows adapts [][]string (each a module path back to its start) to
// ui.Outputable — the one result shape in pkg/queries that isn't a flat
// struct slice, since cycle reconstruction happens in pkg/aggregate rather
// than in a query's Decode step.
type cycleRows [][]string

func (c cycleRows) Headers() []string { return []string{"Cycle"} }
func (c cycleRows) Rows() [][]string {
	rows := make([][]string, len(c))
	for i, path := range c {
		rows[i] = []string{strings.Join(path, " -> ") + " -> " + path[0]}
	}
	return rows
}

func runCycles(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	edges, err := (queries.ModuleDependencyEdges{Project: cfg.ProjectID}).Run(ctx, db)
	if err != nil {
		return err
	}
	cycles := aggregate.CycleReachability(edges)
	if globals.JSON {
		return ui.PrintJSON(cycles)
	}
	ui.PrintTable(cycleRows(cycles))
	return nil
}

func runComplexity(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("complexity", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.ComplexityRanking{Project: cfg.ProjectID, Module: *module, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runLargeFunctions(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("large-functions", flag.ContinueOnError)
	minLines := fs.Int64("min-lines", 50, "minimum line span")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.LargeFunctions{Project: cfg.ProjectID, MinLines: *minLines, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runManyClauses(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("many-clauses", flag.ContinueOnError)
	minClauses := fs.Int64("min-clauses", 5, "minimum clause count")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.ManyClausesQuery{Project: cfg.ProjectID, MinClauses: *minClauses, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runUnused(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("unused", flag.ContinueOnError)
	privateOnly := fs.Bool("private-only", false, "only functions defined with defp")
	publicOnly := fs.Bool("public-only", false, "only functions defined with def")
	excludeGenerated := fs.Bool("exclude-generated", false, "drop compiler-generated pseudo-functions")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.UnusedFunctions{
		Project:          cfg.ProjectID,
		PrivateOnly:      *privateOnly,
		PublicOnly:       *publicOnly,
		ExcludeGenerated: *excludeGenerated,
		Limit:            *limit,
	}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func parseHotspotKind(s string) (queries.HotspotKind, error) {
	switch s {
	case "", "incoming":
		return queries.HotspotIncoming, nil
	case "outgoing":
		return queries.HotspotOutgoing, nil
	case "total":
		return queries.HotspotTotal, nil
	case "ratio":
		return queries.HotspotRatio, nil
	default:
		return 0, errors.NewInputError("Invalid --kind", fmt.Sprintf("unknown hotspot kind %q", s), "Use one of: incoming, outgoing, total, ratio")
	}
}

func runHotspots(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("hotspots", flag.ContinueOnError)
	kindFlag := fs.String("kind", "incoming", "incoming|outgoing|total|ratio")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := parseHotspotKind(*kindFlag)
	if err != nil {
		return err
	}
	rows, err := (queries.Hotspots{Project: cfg.ProjectID, Kind: kind, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runSpecs(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("specs", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	name := fs.String("name", "", "restrict to one function name")
	kind := fs.String("kind", "", "restrict to spec|callback")
	useRegex := fs.Bool("regex", false, "match module by regex instead of equality")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.Specs{Project: cfg.ProjectID, Module: *module, Name: *name, Kind: *kind, UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runTypes(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("types", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	name := fs.String("name", "", "restrict to one type name")
	kind := fs.String("kind", "", "restrict to type|typep|opaque")
	useRegex := fs.Bool("regex", false, "match module/name by regex instead of equality")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.Types{Project: cfg.ProjectID, Module: *module, Name: *name, Kind: *kind, UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runAccepts(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("accepts", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	useRegex := fs.Bool("regex", false, "match the type pattern by regex instead of substring")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.NewInputError("Missing argument", "accepts requires a type pattern", "cie accepts <type-pattern>")
	}
	rows, err := (queries.Accepts{Project: cfg.ProjectID, Module: *module, TypePattern: fs.Arg(0), UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runStructs(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("structs", flag.ContinueOnError)
	module := fs.String("module", "", "restrict to one module")
	useRegex := fs.Bool("regex", false, "match module by regex instead of equality")
	limit := fs.Int("limit", 100, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.Structs{Project: cfg.ProjectID, Module: *module, UseRegex: *useRegex, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	defs := aggregate.GroupStructFields(rows)
	if globals.JSON {
		return ui.PrintJSON(defs)
	}
	for _, d := range defs {
		fmt.Printf("%s\n", d.Module)
		ui.PrintTable(ui.Table(d.Fields))
		fmt.Println()
	}
	return nil
}

// clusterRows adapts []queries.ModuleCluster to ui.Outputable: the generic
// reflect-based ui.Table skips the Modules slice field, so clusters needs
// its own adapter to show the module list rather than just an edge count.
type clusterRows []queries.ModuleCluster

func (c clusterRows) Headers() []string { return []string{"Modules", "EdgeCount"} }
func (c clusterRows) Rows() [][]string {
	rows := make([][]string, len(c))
	for i, cl := range c {
		rows[i] = []string{strings.Join(cl.Modules, ", "), fmt.Sprint(cl.EdgeCount)}
	}
	return rows
}

func runClusters(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("clusters", flag.ContinueOnError)
	minEdges := fs.Int64("min-edges", 2, "minimum internal edge count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.ModuleClusters{Project: cfg.ProjectID, MinEdges: *minEdges}).Run(ctx, db)
	if err != nil {
		return err
	}
	if globals.JSON {
		return ui.PrintJSON(rows)
	}
	ui.PrintTable(clusterRows(rows))
	return nil
}

func runFile(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	if len(args) < 1 {
		return errors.NewInputError("Missing argument", "file requires a module name", "cie file <module>")
	}
	rows, err := (queries.ModuleFileLookup{Project: cfg.ProjectID, Module: args[0]}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}

func runModuleConnectivity(ctx context.Context, args []string, cfg *Config, db backend.Database, globals GlobalFlags) error {
	fs := flag.NewFlagSet("module-connectivity", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rows, err := (queries.ModuleConnectivity{Project: cfg.ProjectID, Limit: *limit}).Run(ctx, db)
	if err != nil {
		return err
	}
	return output(globals, rows, func() ui.Outputable { return ui.Table(rows) })
}
