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

// ModuleConnectivity counts calls between every pair of distinct modules,
// ranked busiest-first.
type ModuleConnectivity struct {
	Project string
	Limit   int
}

func (q ModuleConnectivity) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q ModuleConnectivity) compileDatalog() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`?[caller_module, callee_module, count(caller_module)] :=
	*calls[project, caller_module, cf, callee_module, tf, ta, _f, _l, _c, _ct, ...],
	project = $project, caller_module != callee_module, tf != "%%"
:group caller_module, callee_module
:order -count(caller_module)
:limit %d`, q.Limit)
	params := backend.NewQueryParams().WithStr("project", q.Project)
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

func (q ModuleConnectivity) compileGraph() (querybuilder.CompiledQuery, error) {
	script := fmt.Sprintf(`SELECT ce.caller_module AS caller_module, ce.callee_module AS callee_module, count() AS call_count
FROM calls_edge AS ce
WHERE ce.caller_module != ce.callee_module AND ce.callee_function != '%%'
GROUP BY caller_module, callee_module
ORDER BY call_count DESC
LIMIT %d`, q.Limit)
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams()}, nil
}

func (q ModuleConnectivity) Decode(result value.QueryResult) ([]ModuleCall, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	fromIdx, toIdx := idx("caller_module"), idx("callee_module")
	cntIdx := idx("call_count")
	if cntIdx < 0 {
		cntIdx = idx("count(caller_module)")
	}
	out := make([]ModuleCall, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, ModuleCall{
			CallerModule: value.ExtractStringOr(get(fromIdx), ""),
			CalleeModule: value.ExtractStringOr(get(toIdx), ""),
			CallCount:    value.ExtractI64(get(cntIdx), 0),
		})
	}
	return out, nil
}

func (q ModuleConnectivity) Run(ctx context.Context, db backend.Database) ([]ModuleCall, error) {
	return querybuilder.Run(ctx, db, q)
}
