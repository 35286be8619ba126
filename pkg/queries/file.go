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

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/querybuilder"
	"github.com/kraklabs/cie/pkg/value"
)

// ModuleFileLookup resolves which source file a module was defined in —
// a direct single-row lookup, cheap to carry since it's a straight read
// off the modules/module table already in scope.
type ModuleFileLookup struct {
	Project string
	Module  string
}

func (q ModuleFileLookup) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q ModuleFileLookup) compileDatalog() (querybuilder.CompiledQuery, error) {
	script := `?[module, file, source] :=
	*modules[project, module, file, source],
	project = $project, module = $module`
	params := backend.NewQueryParams().WithStr("project", q.Project).WithStr("module", q.Module)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q ModuleFileLookup) compileGraph() (querybuilder.CompiledQuery, error) {
	script := `SELECT m.name AS module, m.file AS file, m.source AS source
FROM module AS m
WHERE m.name = $module`
	params := backend.NewQueryParams().WithStr("module", q.Module)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q ModuleFileLookup) Decode(result value.QueryResult) ([]ModuleFile, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, fileIdx, srcIdx := idx("module"), idx("file"), idx("source")
	out := make([]ModuleFile, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, ModuleFile{
			Module: value.ExtractStringOr(get(modIdx), ""),
			File:   value.ExtractStringOr(get(fileIdx), ""),
			Source: value.ExtractStringOr(get(srcIdx), "unknown"),
		})
	}
	return out, nil
}

func (q ModuleFileLookup) Run(ctx context.Context, db backend.Database) ([]ModuleFile, error) {
	return querybuilder.Run(ctx, db, q)
}
