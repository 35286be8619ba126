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

// Locate is find_locations: every clause matching a function name, an
// optional module filter (empty Module matches any module), and an
// optional arity, ordered by (module, name, arity, line). UseRegex
// toggles both Module and Name between a regex match and plain equality.
type Locate struct {
	Project  string
	Module   string
	Name     string
	HasArity bool
	Arity    int64
	UseRegex bool
}

func (q Locate) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if q.UseRegex {
		if err := querybuilder.ValidateRegexPatterns(q.Name); err != nil {
			return querybuilder.CompiledQuery{}, err
		}
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q Locate) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("", "module", "module", q.Module, q.UseRegex)
	cb.WithPattern("", "name", "name", q.Name, q.UseRegex)
	arityCond := querybuilder.NewOptionalConditionBuilder("", "arity", "arity").WithLeadingComma()

	script := fmt.Sprintf(`?[module, name, arity, line, file] :=
	*function_locations[project, module, name, arity, line, file, ...],
	project = $project%s%s
:order module, name, arity, line`, cb.DatalogClause(true), arityCond.Build(q.HasArity))

	params := cb.Params().WithStr("project", q.Project)
	if q.HasArity {
		params = params.WithInt("arity", q.Arity)
	}
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q Locate) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("c", "module_name", "module", q.Module, q.UseRegex)
	cb.WithPattern("c", "function_name", "name", q.Name, q.UseRegex)
	arityCond := querybuilder.NewOptionalConditionBuilder("c", "arity", "arity")

	script := fmt.Sprintf(`SELECT c.module_name AS module, c.function_name AS name, c.arity AS arity, c.line AS line, c.source_file AS file
FROM clause AS c
%s%s
ORDER BY module ASC, name ASC, arity ASC, line ASC`, cb.GraphWhere(), arityCond.BuildGraph(q.HasArity, false))

	params := cb.Params()
	if q.HasArity {
		params = params.WithInt("arity", q.Arity)
	}
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q Locate) Decode(result value.QueryResult) ([]FunctionLocation, error) {
	return decodeFunctionLocations(result)
}

func (q Locate) Run(ctx context.Context, db backend.Database) ([]FunctionLocation, error) {
	return querybuilder.Run(ctx, db, q)
}
