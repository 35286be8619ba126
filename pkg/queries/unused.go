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
	"fmt"
	"time"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/querybuilder"
	"github.com/kraklabs/cie/pkg/value"
)

// UnusedFunctions finds defined functions with no local incoming call —
// a negation over the calls relation, expressed as `not` in CozoScript and,
// on the graph side, as a two-query antijoin run in Go (see runGraph).
// PrivateOnly/PublicOnly filter by function_locations.kind ("defp" is
// private, "def" is public). ExcludeGenerated drops compiler-generated
// pseudo-functions in Go post-processing, against the same fixed prefix
// list search results use.
type UnusedFunctions struct {
	Project          string
	PrivateOnly      bool
	PublicOnly       bool
	ExcludeGenerated bool
	Limit            int
}

func (q UnusedFunctions) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q UnusedFunctions) compileDatalog() (querybuilder.CompiledQuery, error) {
	kindFilter := ""
	if q.PrivateOnly {
		kindFilter = `, kind = "defp"`
	} else if q.PublicOnly {
		kindFilter = `, kind = "def"`
	}
	script := fmt.Sprintf(`?[module, name, arity, file] :=
	*functions[project, module, name, arity, ...],
	*function_locations[project, module, name, arity, _line, file, _sfa, _col, kind, _start, _end, ...],
	project = $project%s,
	not *calls[project, _cm, _cf, module, name, arity, _file, _l, _c, _ct, ...]
:limit %d`, kindFilter, unusedFetchLimit(q))
	params := backend.NewQueryParams().WithStr("project", q.Project)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

// compileGraph returns every defined function matching the kind filter,
// with no limit and no exclusion applied — the in-memory graph driver's
// SELECT dialect has no subquery or outer-join support to express the
// "has no incoming call" antijoin in one script, and limiting before that
// exclusion runs could drop genuinely unused functions that didn't happen
// to sort into the truncated candidate set. Both the antijoin and the
// final Limit run afterward, in Go, in runGraph.
func (q UnusedFunctions) compileGraph() (querybuilder.CompiledQuery, error) {
	kindFilter := ""
	if q.PrivateOnly {
		kindFilter = ` AND cl.kind = 'defp'`
	} else if q.PublicOnly {
		kindFilter = ` AND cl.kind = 'def'`
	}
	script := fmt.Sprintf(`SELECT f.module_name AS module, f.name AS name, f.arity AS arity, m.file AS file
FROM function AS f, module AS m, clause AS cl
WHERE f.module_name = m.name AND f.module_name = cl.module_name AND f.name = cl.function_name AND f.arity = cl.arity%s`, kindFilter)
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams()}, nil
}

// calleeKeys is the compiled query for runGraph's second step: every
// (callee_module, callee_function, callee_arity) triple actually called
// anywhere, used to exclude called functions from the candidate set.
func calleeKeysQuery() querybuilder.CompiledQuery {
	return querybuilder.CompiledQuery{
		Script: `SELECT ce.callee_module AS callee_module, ce.callee_function AS callee_function, ce.callee_arity AS callee_arity
FROM calls_edge AS ce`,
		Params: backend.NewQueryParams(),
	}
}

func calleeKey(module, name string, arity int64) string {
	return fmt.Sprintf("%s\x00%s\x00%d", module, name, arity)
}

// unusedFetchLimit widens the Datalog-side limit when ExcludeGenerated is
// set, since generated rows are dropped afterward in Go and the backend
// has no way to know how many survive. The graph path never limits on the
// backend side at all — see compileGraph.
func unusedFetchLimit(q UnusedFunctions) int {
	if q.ExcludeGenerated && q.Limit > 0 {
		return q.Limit * 4
	}
	return q.Limit
}

func (q UnusedFunctions) Decode(result value.QueryResult) ([]UnusedFunction, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx, fileIdx := idx("module"), idx("name"), idx("arity"), idx("file")
	out := make([]UnusedFunction, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, UnusedFunction{
			Module: value.ExtractStringOr(get(modIdx), ""),
			Name:   value.ExtractStringOr(get(nameIdx), ""),
			Arity:  value.ExtractI64(get(arIdx), 0),
			File:   value.ExtractStringOr(get(fileIdx), ""),
		})
	}
	return out, nil
}

func (q UnusedFunctions) Run(ctx context.Context, db backend.Database) ([]UnusedFunction, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return nil, err
	}
	var rows []UnusedFunction
	var err error
	if db.BackendName() == "graphdb" {
		rows, err = q.runGraph(ctx, db)
	} else {
		rows, err = querybuilder.Run(ctx, db, q)
	}
	if err != nil {
		return nil, err
	}
	if q.ExcludeGenerated {
		filtered := rows[:0]
		for _, r := range rows {
			if !IsGeneratedName(r.Name) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if q.Limit >= 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// runGraph drives the two-query antijoin compileGraph's single SELECT
// can't express: fetch every candidate function, fetch every called
// (module, name, arity) triple, and keep only candidates absent from the
// callee set. It instruments its own backend.ObserveQuery call since it
// bypasses querybuilder.Run, which would otherwise do it.
func (q UnusedFunctions) runGraph(ctx context.Context, db backend.Database) ([]UnusedFunction, error) {
	start := time.Now()
	rows, err := q.runGraphUnobserved(ctx, db)
	backend.ObserveQuery(db.BackendName(), "queries.UnusedFunctions", time.Since(start), err)
	return rows, err
}

func (q UnusedFunctions) runGraphUnobserved(ctx context.Context, db backend.Database) ([]UnusedFunction, error) {
	compiled, err := q.compileGraph()
	if err != nil {
		return nil, err
	}
	candidateResult, err := db.ExecuteQuery(ctx, compiled.Script, compiled.Params)
	if err != nil {
		return nil, err
	}
	candidates, err := q.Decode(candidateResult)
	if err != nil {
		return nil, err
	}

	calleeResult, err := db.ExecuteQuery(ctx, calleeKeysQuery().Script, calleeKeysQuery().Params)
	if err != nil {
		return nil, err
	}
	idx := func(name string) int { return calleeResult.HeaderIndex(name) }
	modIdx, nameIdx, arIdx := idx("callee_module"), idx("callee_function"), idx("callee_arity")
	called := make(map[string]struct{}, len(calleeResult.Rows))
	for _, row := range calleeResult.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		called[calleeKey(
			value.ExtractStringOr(get(modIdx), ""),
			value.ExtractStringOr(get(nameIdx), ""),
			value.ExtractI64(get(arIdx), 0),
		)] = struct{}{}
	}

	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := called[calleeKey(c.Module, c.Name, c.Arity)]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}
