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

// Package fixtures builds the deterministic seeded in-memory stores every
// pkg/queries backend-parity test runs against: one cozo.Driver opened
// with Engine "mem" and one graphdb.MemoryDriver, seeded
// with the same logical rows through the same migrate.CreateSchema bootstrap
// so a query compiled for either dialect sees an equivalent store.
package fixtures

import (
	"context"
	"fmt"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/backend/cozo"
	"github.com/kraklabs/cie/pkg/backend/graphdb"
	"github.com/kraklabs/cie/pkg/migrate"
)

const Project = "default"

// rowSet is the logical, backend-neutral row data for one fixture: rows
// keyed by relational table name double as the node/edge table name on the
// graph side wherever the names coincide (module, function, ...); the two
// backends diverge enough (denormalized edges, node/edge split) that each
// fixture builds its cozo rows and its graph rows explicitly rather than
// sharing one row set.
type rowSet map[string][]map[string]any

func seedBoth(cozoRows, graphRows rowSet) (backend.Database, backend.Database, error) {
	ctx := context.Background()

	cozoDB, err := cozo.Open(cozo.Config{Engine: "mem"})
	if err != nil {
		return nil, nil, fmt.Errorf("opening cozo fixture: %w", err)
	}
	if _, err := migrate.CreateSchema(ctx, cozoDB); err != nil {
		return nil, nil, fmt.Errorf("bootstrapping cozo fixture schema: %w", err)
	}
	for relation, rows := range cozoRows {
		if err := cozoDB.InsertRows(ctx, relation, rows); err != nil {
			return nil, nil, fmt.Errorf("seeding cozo relation %s: %w", relation, err)
		}
	}

	graphDB := graphdb.NewMemoryDriver()
	if _, err := migrate.CreateSchema(ctx, graphDB); err != nil {
		return nil, nil, fmt.Errorf("bootstrapping graph fixture schema: %w", err)
	}
	for table, rows := range graphRows {
		if err := graphDB.InsertRows(ctx, table, rows); err != nil {
			return nil, nil, fmt.Errorf("seeding graph table %s: %w", table, err)
		}
	}

	return cozoDB, graphDB, nil
}

func functionID(module, name string, arity int64) string {
	return fmt.Sprintf("function:%s.%s/%d", module, name, arity)
}

// moduleFunctionGraph is the shared builder behind CallGraphSimple and
// CallGraphComplex: every module gets exactly two clauses of one function,
// "run/0" — clause "run" covering lines 1-19 and clause "run_recover"
// covering lines 20-39 — so module-to-module call edges can stand in
// directly for function-to-function ones while still exercising
// find_calls' clause-attribution join: even-indexed edges are attributed
// to the first clause, odd-indexed edges to the second. Every module also
// gets one struct-reference row (callee_function == "%") so calls/cycles/
// hotspots parity tests can exercise the "%" exclusion.
func moduleFunctionGraph(modules []string, edges [][2]string) (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	clauses := []struct {
		name             string
		start, end, line int64
	}{
		{"run", 1, 19, 10},
		{"run_recover", 20, 39, 25},
	}

	for _, m := range modules {
		cozoRows["modules"] = append(cozoRows["modules"], map[string]any{
			"project": Project, "name": m, "file": m + ".ex", "source": "source",
		})
		graphRows["module"] = append(graphRows["module"], map[string]any{
			"name": m, "file": m + ".ex", "source": "source",
		})
		cozoRows["functions"] = append(cozoRows["functions"], map[string]any{
			"project": Project, "module": m, "name": "run", "arity": int64(0),
			"return_type": "", "args": "", "source": "source",
		})
		graphRows["function"] = append(graphRows["function"], map[string]any{
			"module_name": m, "name": "run", "arity": int64(0),
		})

		for _, cl := range clauses {
			cozoRows["function_locations"] = append(cozoRows["function_locations"], map[string]any{
				"project": Project, "module": m, "name": cl.name, "arity": int64(0), "line": cl.line,
				"file": m + ".ex", "source_file_absolute": "/src/" + m + ".ex", "column": int64(1),
				"kind": "def", "start_line": cl.start, "end_line": cl.end,
				"pattern": "", "guard": "", "source_sha": "", "ast_sha": "",
				"complexity": int64(1), "max_nesting_depth": int64(0), "generated_by": "", "macro_source": "",
			})
			graphRows["clause"] = append(graphRows["clause"], map[string]any{
				"module_name": m, "function_name": cl.name, "arity": int64(0), "line": cl.line,
				"source_file": m + ".ex", "source_file_absolute": "/src/" + m + ".ex",
				"kind": "def", "start_line": cl.start, "end_line": cl.end,
				"pattern": "", "guard": "", "source_sha": "", "ast_sha": "",
				"complexity": int64(1), "max_nesting_depth": int64(0), "generated_by": "", "macro_source": "",
			})
		}

		// One struct-reference row per module, always excluded from
		// call-graph answers by the callee_function == "%" filter.
		cozoRows["calls"] = append(cozoRows["calls"], map[string]any{
			"project": Project, "caller_module": m, "caller_function": "run",
			"callee_module": m, "callee_function": "%", "callee_arity": int64(0),
			"file": m + ".ex", "line": int64(5), "column": int64(1),
			"call_type": "local", "caller_kind": "def", "callee_args": "",
		})
		graphRows["calls_edge"] = append(graphRows["calls_edge"], map[string]any{
			"in": functionID(m, "run", 0), "out": functionID(m, "run", 0),
			"caller_module": m, "caller_function": "run",
			"callee_module": m, "callee_function": "%", "callee_arity": int64(0),
			"call_type": "local", "file": m + ".ex", "line": int64(5), "column": int64(1),
			"caller_clause_id": "",
		})
	}

	for i, e := range edges {
		from, to := e[0], e[1]
		clause := clauses[0]
		callerFn := "run"
		if i%2 == 1 {
			clause = clauses[1]
			callerFn = "run_recover"
		}
		line := clause.start + 5
		cozoRows["calls"] = append(cozoRows["calls"], map[string]any{
			"project": Project, "caller_module": from, "caller_function": callerFn,
			"callee_module": to, "callee_function": "run", "callee_arity": int64(0),
			"file": from + ".ex", "line": line, "column": int64(1),
			"call_type": "remote", "caller_kind": "def", "callee_args": "",
		})
		graphRows["calls_edge"] = append(graphRows["calls_edge"], map[string]any{
			"in": functionID(from, "run", 0), "out": functionID(to, "run", 0),
			"caller_module": from, "caller_function": callerFn,
			"callee_module": to, "callee_function": "run", "callee_arity": int64(0),
			"call_type": "remote", "file": from + ".ex", "line": line, "column": int64(1),
			"caller_clause_id": "",
		})
	}

	cozo, graph, err := seedBoth(cozoRows, graphRows)
	return cozo, graph, err
}

// CallGraphSimple seeds a small acyclic call graph: three modules, a
// straight A -> B -> C chain plus one extra fan-in edge, no cycles.
func CallGraphSimple() (backend.Database, backend.Database, error) {
	modules := []string{"MyApp.A", "MyApp.B", "MyApp.C"}
	edges := [][2]string{
		{"MyApp.A", "MyApp.B"},
		{"MyApp.B", "MyApp.C"},
		{"MyApp.A", "MyApp.C"},
	}
	return moduleFunctionGraph(modules, edges)
}

// CallGraphComplex seeds a nine-module, three-cycle scenario: cycle A
// (Service -> Logger -> Repo -> Service), cycle B (Controller -> Events ->
// Cache -> Accounts -> Controller), cycle C (Notifier -> Metrics -> Logger
// -> Events -> Cache -> Notifier), connected by a handful of cross-cycle
// fan-out edges so the whole graph is reachable from any module. The
// resulting edge set is exactly 17 distinct (from, to) pairs, sorting
// first to (MyApp.Accounts, MyApp.Controller) and last to
// (MyApp.Service, MyApp.Notifier).
func CallGraphComplex() (backend.Database, backend.Database, error) {
	modules := []string{
		"MyApp.Accounts", "MyApp.Cache", "MyApp.Controller", "MyApp.Events",
		"MyApp.Logger", "MyApp.Metrics", "MyApp.Notifier", "MyApp.Repo", "MyApp.Service",
	}
	p := func(s string) string { return "MyApp." + s }
	edges := [][2]string{
		// Cycle A.
		{p("Service"), p("Logger")},
		{p("Logger"), p("Repo")},
		{p("Repo"), p("Service")},
		// Cycle B.
		{p("Controller"), p("Events")},
		{p("Events"), p("Cache")},
		{p("Cache"), p("Accounts")},
		{p("Accounts"), p("Controller")},
		// Cycle C (shares Events -> Cache with cycle B).
		{p("Notifier"), p("Metrics")},
		{p("Metrics"), p("Logger")},
		{p("Logger"), p("Events")},
		{p("Cache"), p("Notifier")},
		// Cross-cycle fan-out tying the three cycles into one graph.
		{p("Service"), p("Notifier")},
		{p("Cache"), p("Logger")},
		{p("Controller"), p("Metrics")},
		{p("Metrics"), p("Repo")},
		{p("Repo"), p("Events")},
		{p("Notifier"), p("Accounts")},
	}
	return moduleFunctionGraph(modules, edges)
}

// Both resolves a fixture by name for callers (pkg/queries tests) that
// parameterize over scenario name rather than calling a constructor
// directly.
func Both(name string) (backend.Database, backend.Database, error) {
	switch name {
	case "call_graph_simple":
		return CallGraphSimple()
	case "call_graph_complex":
		return CallGraphComplex()
	case "specs":
		return SpecsDB()
	case "accepts":
		return AcceptsDB()
	case "types":
		return TypeSignaturesDB()
	case "large_functions":
		return LargeFunctionsDB()
	case "many_clauses":
		return ManyClausesDB()
	default:
		return nil, nil, fmt.Errorf("unknown fixture: %q", name)
	}
}
