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

// ComplexityRanking lists the most complex clauses in a project, highest
// first.
type ComplexityRanking struct {
	Project string
	Module  string
	Limit   int
}

func (q ComplexityRanking) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q ComplexityRanking) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("", "module", "module", q.Module)
	script := fmt.Sprintf(`?[module, name, arity, line, complexity] :=
	*function_locations[project, module, name, arity, line, file, source_file_absolute, column, kind, start_line, end_line, pattern, guard, source_sha, ast_sha, complexity, ...],
	project = $project%s
:order -complexity
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q ComplexityRanking) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("c", "module_name", "module", q.Module)
	script := fmt.Sprintf(`SELECT c.module_name AS module, c.function_name AS name, c.arity AS arity, c.line AS line, c.complexity AS complexity
FROM clause AS c
%s
ORDER BY complexity DESC
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q ComplexityRanking) Decode(result value.QueryResult) ([]ComplexityMetric, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx, lineIdx, cxIdx := idx("module"), idx("name"), idx("arity"), idx("line"), idx("complexity")
	out := make([]ComplexityMetric, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, ComplexityMetric{
			Module:     value.ExtractStringOr(get(modIdx), ""),
			Name:       value.ExtractStringOr(get(nameIdx), ""),
			Arity:      value.ExtractI64(get(arIdx), 0),
			Line:       value.ExtractI64(get(lineIdx), 0),
			Complexity: value.ExtractI64(get(cxIdx), 1),
		})
	}
	return out, nil
}

func (q ComplexityRanking) Run(ctx context.Context, db backend.Database) ([]ComplexityMetric, error) {
	return querybuilder.Run(ctx, db, q)
}
