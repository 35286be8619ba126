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

// Specs is find_specs: type-spec declarations for a module (exact or
// regex match, per UseRegex), optionally narrowed to one function name
// (substring or regex, per UseRegex) and one kind ("spec" or "callback").
// Ordered by (module, name, arity).
type Specs struct {
	Project  string
	Module   string
	Name     string
	Kind     string
	UseRegex bool
	Limit    int
}

func (q Specs) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q Specs) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("", "module", "module", q.Module, q.UseRegex)
	if q.UseRegex {
		cb.WithRegex("", "name", "name", q.Name)
	} else {
		cb.WithContains("", "name", "name", q.Name)
	}
	cb.WithEq("", "kind", "kind", q.Kind)

	script := fmt.Sprintf(`?[module, name, arity, line, inputs_string, return_string, full] :=
	*specs[project, module, name, arity, kind, line, inputs_string, return_string, full],
	project = $project%s
:order module, name, arity
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q Specs) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("s", "module_name", "module", q.Module, q.UseRegex)
	if q.UseRegex {
		cb.WithRegex("s", "function_name", "name", q.Name)
	} else {
		cb.WithContains("s", "function_name", "name", q.Name)
	}
	cb.WithEq("s", "kind", "kind", q.Kind)

	script := fmt.Sprintf(`SELECT s.module_name AS module, s.function_name AS name, s.arity AS arity, s.line AS line, s.full AS full
FROM spec AS s
%s
ORDER BY module ASC, name ASC, arity ASC
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q Specs) Decode(result value.QueryResult) ([]SpecDef, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx, lineIdx, fullIdx := idx("module"), idx("name"), idx("arity"), idx("line"), idx("full")
	out := make([]SpecDef, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, SpecDef{
			Module: value.ExtractStringOr(get(modIdx), ""),
			Name:   value.ExtractStringOr(get(nameIdx), ""),
			Arity:  value.ExtractI64(get(arIdx), 0),
			Line:   value.ExtractI64(get(lineIdx), 0),
			Full:   value.ExtractStringOr(get(fullIdx), ""),
		})
	}
	return out, nil
}

func (q Specs) Run(ctx context.Context, db backend.Database) ([]SpecDef, error) {
	return querybuilder.Run(ctx, db, q)
}
