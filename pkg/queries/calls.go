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

// callsDirection carries the handful of things that differ between
// "calls-from" and "calls-to": which triple (module, name, arity) the
// caller filters against, and the column order each direction sorts by.
// Everything else — the join to function_locations/clause that attributes
// a call to the clause that issued it, and the struct-reference exclusion
// — is identical for both, since both directions answer with the same
// clause-attributed Call record.
type callsDirection struct {
	datalogField string // bare variable name in the rule body — "caller_module" | "callee_module"
	datalogName  string
	datalogArity string

	graphModuleAlias, graphModuleField string // alias + bare field, so ConditionBuilder renders "alias.field"
	graphNameAlias, graphNameField     string
	graphArityAlias, graphArityField   string

	datalogOrder string
	graphOrder   string
}

var callsFromDirection = callsDirection{
	datalogField: "caller_module", datalogName: "caller_name", datalogArity: "caller_arity",
	graphModuleAlias: "ce", graphModuleField: "caller_module",
	graphNameAlias: "cl", graphNameField: "function_name",
	graphArityAlias: "cl", graphArityField: "arity",
	datalogOrder: "caller_module, caller_name, caller_arity, call_line, callee_module, callee_function, callee_arity",
	graphOrder:   "caller_module ASC, caller_name ASC, caller_arity ASC, call_line ASC, callee_module ASC, callee_function ASC, callee_arity ASC",
}

var callsToDirection = callsDirection{
	datalogField: "callee_module", datalogName: "callee_function", datalogArity: "callee_arity",
	graphModuleAlias: "ce", graphModuleField: "callee_module",
	graphNameAlias: "ce", graphNameField: "callee_function",
	graphArityAlias: "ce", graphArityField: "callee_arity",
	datalogOrder: "callee_module, callee_function, callee_arity, caller_module, caller_name, caller_arity",
	graphOrder:   "callee_module ASC, callee_function ASC, callee_arity ASC, caller_module ASC, caller_name ASC, caller_arity ASC",
}

// compileCallsDatalog is shared by CallsFrom and CallsTo: it joins `calls`
// with `function_locations` on `(project, caller_module)` and attributes
// each call to the clause whose `[start_line, end_line]` contains
// `calls.line`, using starts_with(caller_function, caller_name) to bind
// the caller side — never replace this with equality, since
// calls.caller_function can carry a clause-local arity suffix
// function_locations.name never does.
func compileCallsDatalog(dir callsDirection, project, module string, useRegex bool, name string, hasArity bool, arity int64, limit int) (querybuilder.CompiledQuery, error) {
	moduleCond := querybuilder.NewConditionBuilder().WithPattern("", dir.datalogField, "module", module, useRegex)
	nameCond := querybuilder.NewOptionalConditionBuilder("", dir.datalogName, "name").WithLeadingComma().WithRegex()
	arityCond := querybuilder.NewOptionalConditionBuilder("", dir.datalogArity, "arity").WithLeadingComma()

	script := fmt.Sprintf(`?[caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line, call_column, call_type] :=
	*calls[project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, call_line, call_column, call_type, ...],
	*function_locations[project, caller_module, caller_name, caller_arity, _loc_line, _loc_file, _loc_sfa, _loc_col, caller_kind, caller_start_line, caller_end_line, ...],
	starts_with(caller_function, caller_name),
	call_line >= caller_start_line, call_line <= caller_end_line,
	callee_function != "%%",
	project = $project%s%s%s
:order %s
:limit %d`, moduleCond.DatalogClause(true), nameCond.BuildWithRegex(name != "", useRegex), arityCond.Build(hasArity), dir.datalogOrder, limit)

	params := moduleCond.Params().WithStr("project", project)
	if name != "" {
		params = params.WithStr("name", name)
	}
	if hasArity {
		params = params.WithInt("arity", arity)
	}
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

// compileCallsGraph is the graph-dialect counterpart of
// compileCallsDatalog, joining calls_edge with clause the same way.
func compileCallsGraph(dir callsDirection, module string, useRegex bool, name string, hasArity bool, arity int64, limit int) (querybuilder.CompiledQuery, error) {
	moduleCond := querybuilder.NewConditionBuilder().WithPattern(dir.graphModuleAlias, dir.graphModuleField, "module", module, useRegex)
	nameCond := querybuilder.NewOptionalConditionBuilder(dir.graphNameAlias, dir.graphNameField, "name").WithRegex()
	arityCond := querybuilder.NewOptionalConditionBuilder(dir.graphArityAlias, dir.graphArityField, "arity")

	script := fmt.Sprintf(`SELECT ce.caller_module AS caller_module, cl.function_name AS caller_name, cl.arity AS caller_arity, cl.kind AS caller_kind, cl.start_line AS caller_start_line, cl.end_line AS caller_end_line, ce.callee_module AS callee_module, ce.callee_function AS callee_function, ce.callee_arity AS callee_arity, ce.file AS file, ce.line AS call_line, ce.column AS call_column, ce.call_type AS call_type
FROM calls_edge AS ce, clause AS cl
WHERE ce.caller_module = cl.module_name AND ce.caller_function STARTSWITH cl.function_name AND ce.line >= cl.start_line AND ce.line <= cl.end_line AND ce.callee_function != '%%'%s%s%s
ORDER BY %s
LIMIT %d`, graphAndClause(moduleCond), nameCond.BuildGraph(name != "", useRegex), arityCond.BuildGraph(hasArity, false), dir.graphOrder, limit)

	params := moduleCond.Params()
	if name != "" {
		params = params.WithStr("name", name)
	}
	if hasArity {
		params = params.WithInt("arity", arity)
	}
	return querybuilder.CompiledQuery{Script: script, Params: params}, nil
}

// graphAndClause renders cb's single condition (the module filter, always
// present) as an " AND ..." suffix to append after a WHERE clause that's
// already open.
func graphAndClause(cb *querybuilder.ConditionBuilder) string {
	w := cb.GraphWhere()
	if w == "" {
		return ""
	}
	return " AND " + w[len("WHERE "):]
}

// CallsFrom finds every call a given function makes, each attributed to
// the clause that issued it. Name and arity are optional filters on the
// attributed clause, not on the raw calls.caller_function column.
type CallsFrom struct {
	Project  string
	Module   string
	Name     string
	HasArity bool
	Arity    int64
	UseRegex bool
	Limit    int
}

func (q CallsFrom) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q CallsFrom) compileDatalog() (querybuilder.CompiledQuery, error) {
	return compileCallsDatalog(callsFromDirection, q.Project, q.Module, q.UseRegex, q.Name, q.HasArity, q.Arity, q.Limit)
}

func (q CallsFrom) compileGraph() (querybuilder.CompiledQuery, error) {
	return compileCallsGraph(callsFromDirection, q.Module, q.UseRegex, q.Name, q.HasArity, q.Arity, q.Limit)
}

func (q CallsFrom) Decode(result value.QueryResult) ([]Call, error) {
	return decodeCalls(result)
}

func (q CallsFrom) Run(ctx context.Context, db backend.Database) ([]Call, error) {
	return querybuilder.Run(ctx, db, q)
}

// CallsTo finds every call site that targets a given function — the
// inverse direction, filtered by callee identity, attributed to the
// caller's clause the same way CallsFrom is.
type CallsTo struct {
	Project  string
	Module   string
	Name     string
	HasArity bool
	Arity    int64
	UseRegex bool
	Limit    int
}

func (q CallsTo) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return querybuilder.CompiledQuery{}, err
	}
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q CallsTo) compileDatalog() (querybuilder.CompiledQuery, error) {
	return compileCallsDatalog(callsToDirection, q.Project, q.Module, q.UseRegex, q.Name, q.HasArity, q.Arity, q.Limit)
}

func (q CallsTo) compileGraph() (querybuilder.CompiledQuery, error) {
	return compileCallsGraph(callsToDirection, q.Module, q.UseRegex, q.Name, q.HasArity, q.Arity, q.Limit)
}

func (q CallsTo) Decode(result value.QueryResult) ([]Call, error) {
	return decodeCalls(result)
}

func (q CallsTo) Run(ctx context.Context, db backend.Database) ([]Call, error) {
	return querybuilder.Run(ctx, db, q)
}

func decodeCalls(result value.QueryResult) ([]Call, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	callerModIdx, callerNameIdx, callerArIdx := idx("caller_module"), idx("caller_name"), idx("caller_arity")
	callerKindIdx, callerStartIdx, callerEndIdx := idx("caller_kind"), idx("caller_start_line"), idx("caller_end_line")
	calleeModIdx, calleeFnIdx, calleeArIdx := idx("callee_module"), idx("callee_function"), idx("callee_arity")
	fileIdx, lineIdx, colIdx, typeIdx := idx("file"), idx("call_line"), idx("call_column"), idx("call_type")

	out := make([]Call, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, Call{
			CallerModule:    value.ExtractStringOr(get(callerModIdx), ""),
			CallerName:      value.ExtractStringOr(get(callerNameIdx), ""),
			CallerArity:     value.ExtractI64(get(callerArIdx), 0),
			CallerKind:      value.ExtractStringOr(get(callerKindIdx), ""),
			CallerStartLine: value.ExtractI64(get(callerStartIdx), 0),
			CallerEndLine:   value.ExtractI64(get(callerEndIdx), 0),
			CalleeModule:    value.ExtractStringOr(get(calleeModIdx), ""),
			CalleeFunction:  value.ExtractStringOr(get(calleeFnIdx), ""),
			CalleeArity:     value.ExtractI64(get(calleeArIdx), 0),
			File:            value.ExtractStringOr(get(fileIdx), ""),
			Line:            value.ExtractI64(get(lineIdx), 0),
			Column:          value.ExtractI64(get(colIdx), 0),
			CallType:        value.ExtractStringOr(get(typeIdx), "remote"),
		})
	}
	return out, nil
}
