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

// Structs lists the raw struct_fields rows for a module. Grouping the
// flat rows into one StructDefinition per module is left to
// pkg/aggregate.GroupStructFields — neither backend's query language
// groups into nested records cleanly, so that assembly always runs in Go.
type Structs struct {
	Project  string
	Module   string
	UseRegex bool
	Limit    int
}

func (q Structs) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q Structs) compileDatalog() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("", "module", "module", q.Module, q.UseRegex)
	script := fmt.Sprintf(`?[module, field, default_value, required, inferred_type] :=
	*struct_fields[project, module, field, default_value, required, inferred_type],
	project = $project%s
:limit %d`, cb.DatalogClause(true), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params().WithStr("project", q.Project)}, nil
}

func (q Structs) compileGraph() (querybuilder.CompiledQuery, error) {
	cb := querybuilder.NewConditionBuilder()
	cb.WithPattern("f", "module_name", "module", q.Module, q.UseRegex)
	script := fmt.Sprintf(`SELECT f.module_name AS module, f.name AS field, f.default_value AS default_value, f.required AS required
FROM field AS f
%s
LIMIT %d`, cb.GraphWhere(), q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: cb.Params()}, nil
}

func (q Structs) Decode(result value.QueryResult) ([]StructField, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, fieldIdx, defIdx, reqIdx, typeIdx := idx("module"), idx("field"), idx("default_value"), idx("required"), idx("inferred_type")
	out := make([]StructField, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, StructField{
			Module:       value.ExtractStringOr(get(modIdx), ""),
			Field:        value.ExtractStringOr(get(fieldIdx), ""),
			DefaultValue: value.ExtractStringOr(get(defIdx), ""),
			Required:     value.ExtractBoolOr(get(reqIdx), false),
			InferredType: value.ExtractStringOr(get(typeIdx), ""),
		})
	}
	return out, nil
}

func (q Structs) Run(ctx context.Context, db backend.Database) ([]StructField, error) {
	return querybuilder.Run(ctx, db, q)
}
