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

package queries

import (
	"context"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/querybuilder"
	"github.com/kraklabs/cie/pkg/value"
)

// ModuleDependencyEdges returns the direct module->module call edges for a
// project. The Datalog backend could express transitive closure natively
// via mutually-recursive rules, but the graph backend has no equivalent —
// so cycle detection here always operates on direct edges, with the BFS
// reachability walk done in Go by pkg/aggregate.CycleReachability, which
// both backends feed identically.
type ModuleDependencyEdges struct {
	Project string
}

func (q ModuleDependencyEdges) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q ModuleDependencyEdges) compileDatalog() (querybuilder.CompiledQuery, error) {
	script := `?[from_module, to_module] :=
	*calls[project, from_module, caller_function, to_module, callee_function, callee_arity, file, line, column, call_type, ...],
	project = $project, from_module != to_module, callee_function != "%"`
	params := backend.NewQueryParams().WithStr("project", q.Project)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q ModuleDependencyEdges) compileGraph() (querybuilder.CompiledQuery, error) {
	script := `SELECT ce.caller_module AS from_module, ce.callee_module AS to_module
FROM calls_edge AS ce
WHERE ce.caller_module != ce.callee_module AND ce.callee_function != '%'`
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams()}, nil
}

func (q ModuleDependencyEdges) Decode(result value.QueryResult) ([]CycleEdge, error) {
	fromIdx := result.HeaderIndex("from_module")
	toIdx := result.HeaderIndex("to_module")
	out := make([]CycleEdge, 0, len(result.Rows))
	for _, row := range result.Rows {
		fv, _ := value.ColAt(row, fromIdx)
		tv, _ := value.ColAt(row, toIdx)
		out = append(out, CycleEdge{
			FromModule: value.ExtractStringOr(fv, ""),
			ToModule:   value.ExtractStringOr(tv, ""),
		})
	}
	return out, nil
}

func (q ModuleDependencyEdges) Run(ctx context.Context, db backend.Database) ([]CycleEdge, error) {
	return querybuilder.Run(ctx, db, q)
}
