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

// LargeFunctions lists clauses spanning at least MinLines lines. The
// Datalog script orders them largest first; the graph script orders them
// by end_line descending. Both scripts apply the MinLines filter with the
// same (end_line - start_line + 1) arithmetic; each record's LineCount is
// computed in Go from StartLine and EndLine.
type LargeFunctions struct {
	Project  string
	MinLines int64
	Limit    int
}

func (q LargeFunctions) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q LargeFunctions) compileDatalog() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`?[module, name, arity, start_line, end_line, line_count] :=
	*function_locations[project, module, name, arity, line, file, source_file_absolute, column, kind, start_line, end_line, ...],
	project = $project,
	line_count = end_line - start_line + 1,
	line_count >= $min_lines
:order -line_count
:limit %d`, q.Limit)
	params := backend.NewQueryParams().WithStr("project", q.Project).WithInt("min_lines", q.MinLines)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q LargeFunctions) compileGraph() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`SELECT c.module_name AS module, c.function_name AS name, c.arity AS arity, c.start_line AS start_line, c.end_line AS end_line
FROM clause AS c
WHERE (c.end_line - c.start_line + 1) >= $min_lines
ORDER BY end_line DESC
LIMIT %d`, q.Limit)
	params := backend.NewQueryParams().WithInt("min_lines", q.MinLines)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q LargeFunctions) Decode(result value.QueryResult) ([]LargeFunction, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx := idx("module"), idx("name"), idx("arity")
	startIdx, endIdx := idx("start_line"), idx("end_line")
	out := make([]LargeFunction, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		start := value.ExtractI64(get(startIdx), 0)
		end := value.ExtractI64(get(endIdx), 0)
		out = append(out, LargeFunction{
			Module:    value.ExtractStringOr(get(modIdx), ""),
			Name:      value.ExtractStringOr(get(nameIdx), ""),
			Arity:     value.ExtractI64(get(arIdx), 0),
			StartLine: start,
			EndLine:   end,
			LineCount: end - start + 1,
		})
	}
	return out, nil
}

func (q LargeFunctions) Run(ctx context.Context, db backend.Database) ([]LargeFunction, error) {
	return querybuilder.Run(ctx, db, q)
}
