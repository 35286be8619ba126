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

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/querybuilder"
	"github.com/kraklabs/cie/pkg/value"
)

// ManyClausesQuery lists functions defined with at least MinClauses separate
// clauses — multi-clause dispatch being a first-class concept of the
// source language this store describes.
type ManyClausesQuery struct {
	Project    string
	MinClauses int64
	Limit      int
}

func (q ManyClausesQuery) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q ManyClausesQuery) compileDatalog() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`?[module, name, arity, clause_count] :=
	*function_locations[project, module, name, arity, line, ...],
	project = $project,
	clause_count = count(line)
:group module, name, arity
:having clause_count >= $min_clauses
:order -clause_count
:limit %d`, q.Limit)
	params := backend.NewQueryParams().WithStr("project", q.Project).WithInt("min_clauses", q.MinClauses)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q ManyClausesQuery) compileGraph() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`SELECT c.module_name AS module, c.function_name AS name, c.arity AS arity, count(c.line) AS clause_count
FROM clause AS c
GROUP BY module, name, arity
ORDER BY clause_count DESC
LIMIT %d`, q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams().WithInt("min_clauses", q.MinClauses)}, nil
}

func (q ManyClausesQuery) Decode(result value.QueryResult) ([]ManyClauses, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx, cntIdx := idx("module"), idx("name"), idx("arity"), idx("clause_count")
	out := make([]ManyClauses, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		count := value.ExtractI64(get(cntIdx), 0)
		// The graph backend's GROUP BY has no HAVING clause, so the
		// threshold is re-applied here — same filter, just run in Go
		// instead of the store for that one dialect.
		if count < q.MinClauses {
			continue
		}
		out = append(out, ManyClauses{
			Module:      value.ExtractStringOr(get(modIdx), ""),
			Name:        value.ExtractStringOr(get(nameIdx), ""),
			Arity:       value.ExtractI64(get(arIdx), 0),
			ClauseCount: count,
		})
	}
	return out, nil
}

func (q ManyClausesQuery) Run(ctx context.Context, db backend.Database) ([]ManyClauses, error) {
	return querybuilder.Run(ctx, db, q)
}
