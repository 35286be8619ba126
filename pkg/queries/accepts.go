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

// Accepts is find_accepts: specs whose parameter-type string matches a
// pattern — "which functions accept a value of this shape" — optionally
// narrowed to one module. UseRegex toggles the pattern between a regex
// match and plain substring containment; false is the default, since most
// shape searches are looking for a type name appearing anywhere in the
// signature rather than an exact regex.
type Accepts struct {
	Project     string
	Module      string
	TypePattern string
	UseRegex    bool
	Limit       int
}

func (q Accepts) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if q.UseRegex {
		if err := querybuilder.ValidateRegexPatterns(q.TypePattern); err != nil {
			return querybuilder.CompiledQuery{}, err
		}
	}
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q Accepts) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("", "module", "module", q.Module)
	if q.UseRegex {
		cb.WithRegex("", "inputs_string", "pattern", q.TypePattern)
	} else {
		cb.WithContains("", "inputs_string", "pattern", q.TypePattern)
	}

	script := fmt.Sprintf(`?[module, name, arity, inputs_string] :=
	*specs[project, module, name, arity, kind, line, inputs_string, return_string, full],
	project = $project%s
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q Accepts) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("s", "module_name", "module", q.Module)
	if q.UseRegex {
		cb.WithRegex("s", "full", "pattern", q.TypePattern)
	} else {
		cb.WithContains("s", "full", "pattern", q.TypePattern)
	}

	script := fmt.Sprintf(`SELECT s.module_name AS module, s.function_name AS name, s.arity AS arity, s.full AS inputs_string
FROM spec AS s
%s
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q Accepts) Decode(result value.QueryResult) ([]AcceptsEntry, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx, typesIdx := idx("module"), idx("name"), idx("arity"), idx("inputs_string")
	out := make([]AcceptsEntry, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, AcceptsEntry{
			Module: value.ExtractStringOr(get(modIdx), ""),
			Name:   value.ExtractStringOr(get(nameIdx), ""),
			Arity:  value.ExtractI64(get(arIdx), 0),
			Types:  value.ExtractStringOr(get(typesIdx), ""),
		})
	}
	return out, nil
}

func (q Accepts) Run(ctx context.Context, db backend.Database) ([]AcceptsEntry, error) {
	return querybuilder.Run(ctx, db, q)
}
