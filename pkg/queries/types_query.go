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

// Types is find_types: type declarations for a module (exact or regex
// match, per UseRegex), optionally narrowed to one name and one kind
// ("type", "typep", or "opaque").
type Types struct {
	Project  string
	Module   string
	Name     string
	Kind     string
	UseRegex bool
	Limit    int
}

func (q Types) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q Types) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("", "module", "module", q.Module, q.UseRegex)
	cb.WithPattern("", "name", "name", q.Name, q.UseRegex)
	cb.WithEq("", "kind", "kind", q.Kind)

	script := fmt.Sprintf(`?[module, name, kind, params, line, definition] :=
	*types[project, module, name, kind, params, line, definition],
	project = $project%s
:order module, name
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q Types) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("t", "module_name", "module", q.Module, q.UseRegex)
	cb.WithPattern("t", "name", "name", q.Name, q.UseRegex)
	cb.WithEq("t", "kind", "kind", q.Kind)

	script := fmt.Sprintf(`SELECT t.module_name AS module, t.name AS name, t.kind AS kind, t.params AS params, t.line AS line, t.definition AS definition
FROM type AS t
%s
ORDER BY module ASC, name ASC
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q Types) Decode(result value.QueryResult) ([]TypeInfo, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, kindIdx, paramsIdx, lineIdx, defIdx := idx("module"), idx("name"), idx("kind"), idx("params"), idx("line"), idx("definition")
	out := make([]TypeInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, TypeInfo{
			Module:     value.ExtractStringOr(get(modIdx), ""),
			Name:       value.ExtractStringOr(get(nameIdx), ""),
			Kind:       value.ExtractStringOr(get(kindIdx), "type"),
			Params:     value.ExtractStringOr(get(paramsIdx), ""),
			Line:       value.ExtractI64(get(lineIdx), 0),
			Definition: value.ExtractStringOr(get(defIdx), ""),
		})
	}
	return out, nil
}

func (q Types) Run(ctx context.Context, db backend.Database) ([]TypeInfo, error) {
	return querybuilder.Run(ctx, db, q)
}
