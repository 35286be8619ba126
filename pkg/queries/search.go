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

// Search is search_functions: it finds functions whose name matches
// Pattern, optionally scoped to one module, enriched with each match's
// declared return type. UseRegex toggles Pattern between a regex match and
// plain equality — equality is the default, since most callers look up one
// exact name. Results are capped by Limit (0 is valid: no rows).
type Search struct {
	Project  string
	Module   string
	Pattern  string
	UseRegex bool
	Limit    int
}

func (q Search) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if q.UseRegex {
		if err := querybuilder.ValidateRegexPatterns(q.Pattern); err != nil {
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

func (q Search) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("", "module", "module", q.Module)
	cb.WithPattern("", "name", "pattern", q.Pattern, q.UseRegex)

	script := fmt.Sprintf(`?[module, name, arity, line, file, return_type] :=
	*function_locations[project, module, name, arity, line, file, ...],
	*functions[project, module, name, arity, return_type, ...],
	project = $project%s
:order module, name, arity
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q Search) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithEq("c", "module_name", "module", q.Module)
	cb.WithPattern("c", "function_name", "pattern", q.Pattern, q.UseRegex)

	script := fmt.Sprintf(`SELECT c.module_name AS module, c.function_name AS name, c.arity AS arity, c.line AS line, c.source_file AS file
FROM clause AS c
%s
ORDER BY module ASC, name ASC, arity ASC
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q Search) Decode(result value.QueryResult) ([]FunctionSearchResult, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx := idx("module"), idx("name"), idx("arity")
	lineIdx, fileIdx, retIdx := idx("line"), idx("file"), idx("return_type")

	out := make([]FunctionSearchResult, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, FunctionSearchResult{
			Module:     value.ExtractStringOr(get(modIdx), ""),
			Name:       value.ExtractStringOr(get(nameIdx), ""),
			Arity:      value.ExtractI64(get(arIdx), 0),
			Line:       value.ExtractI64(get(lineIdx), 0),
			File:       value.ExtractStringOr(get(fileIdx), ""),
			ReturnType: value.ExtractStringOr(get(retIdx), ""),
		})
	}
	return out, nil
}

// Run executes a Search against db.
func (q Search) Run(ctx context.Context, db backend.Database) ([]FunctionSearchResult, error) {
	return querybuilder.Run(ctx, db, q)
}

// decodeFunctionLocations is shared by queries that return a plain
// clause/function_locations row without the search_functions return-type
// enrichment, so the header-name lookups live in one place: the graph
// backend's columns come back alphabetized, so every decoder looks up by
// name, never by position.
func decodeFunctionLocations(result value.QueryResult) ([]FunctionLocation, error) {
	modIdx := result.HeaderIndex("module")
	nameIdx := result.HeaderIndex("name")
	arityIdx := result.HeaderIndex("arity")
	lineIdx := result.HeaderIndex("line")
	fileIdx := result.HeaderIndex("file")

	out := make([]FunctionLocation, 0, len(result.Rows))
	for _, row := range result.Rows {
		mv, _ := value.ColAt(row, modIdx)
		nv, _ := value.ColAt(row, nameIdx)
		av, _ := value.ColAt(row, arityIdx)
		lv, _ := value.ColAt(row, lineIdx)
		fv, _ := value.ColAt(row, fileIdx)
		out = append(out, FunctionLocation{
			Module: value.ExtractStringOr(mv, ""),
			Name:   value.ExtractStringOr(nv, ""),
			Arity:  value.ExtractI64(av, 0),
			Line:   value.ExtractI64(lv, 0),
			File:   value.ExtractStringOr(fv, ""),
		})
	}
	return out, nil
}

// SearchModules is search_modules: it finds modules whose name matches
// Pattern, ordered by name. UseRegex toggles Pattern between a regex match
// and plain equality, same as Search.
type SearchModules struct {
	Project  string
	Pattern  string
	UseRegex bool
	Limit    int
}

func (q SearchModules) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if q.UseRegex {
		if err := querybuilder.ValidateRegexPatterns(q.Pattern); err != nil {
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

func (q SearchModules) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("", "name", "pattern", q.Pattern, q.UseRegex)

	script := fmt.Sprintf(`?[name, file] :=
	*modules[project, name, file, ...],
	project = $project%s
:order name
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q SearchModules) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("m", "name", "pattern", q.Pattern, q.UseRegex)

	script := fmt.Sprintf(`SELECT m.name AS name, m.file AS file
FROM module AS m
%s
ORDER BY name ASC
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q SearchModules) Decode(result value.QueryResult) ([]ModuleSearchResult, error) {
	nameIdx := result.HeaderIndex("name")
	fileIdx := result.HeaderIndex("file")
	out := make([]ModuleSearchResult, 0, len(result.Rows))
	for _, row := range result.Rows {
		nv, _ := value.ColAt(row, nameIdx)
		fv, _ := value.ColAt(row, fileIdx)
		out = append(out, ModuleSearchResult{
			Name: value.ExtractStringOr(nv, ""),
			File: value.ExtractStringOr(fv, ""),
		})
	}
	return out, nil
}

func (q SearchModules) Run(ctx context.Context, db backend.Database) ([]ModuleSearchResult, error) {
	return querybuilder.Run(ctx, db, q)
}
