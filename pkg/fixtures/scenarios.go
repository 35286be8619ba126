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

package fixtures

import "github.com/kraklabs/cie/pkg/backend"

// clauseRow seeds one function_locations/clause row identically on both
// backends, covering the fields large_functions.go, many_clauses.go,
// complexity.go, locate.go, and search.go all read.
func clauseRow(cozoRows, graphRows rowSet, module, name string, arity, line, startLine, endLine, complexity int64) {
	cozoRows["modules"] = append(cozoRows["modules"], map[string]any{
		"project": Project, "name": module, "file": module + ".ex", "source": "source",
	})
	graphRows["module"] = append(graphRows["module"], map[string]any{
		"name": module, "file": module + ".ex", "source": "source",
	})
	cozoRows["functions"] = append(cozoRows["functions"], map[string]any{
		"project": Project, "module": module, "name": name, "arity": arity,
		"return_type": "", "args": "", "source": "source",
	})
	graphRows["function"] = append(graphRows["function"], map[string]any{
		"module_name": module, "name": name, "arity": arity,
	})
	cozoRows["function_locations"] = append(cozoRows["function_locations"], map[string]any{
		"project": Project, "module": module, "name": name, "arity": arity, "line": line,
		"file": module + ".ex", "source_file_absolute": "/src/" + module + ".ex", "column": int64(3),
		"kind": "def", "start_line": startLine, "end_line": endLine,
		"pattern": "", "guard": "", "source_sha": "", "ast_sha": "",
		"complexity": complexity, "max_nesting_depth": int64(1), "generated_by": "", "macro_source": "",
	})
	graphRows["clause"] = append(graphRows["clause"], map[string]any{
		"module_name": module, "function_name": name, "arity": arity, "line": line,
		"source_file": module + ".ex", "source_file_absolute": "/src/" + module + ".ex",
		"kind": "def", "start_line": startLine, "end_line": endLine,
		"pattern": "", "guard": "", "source_sha": "", "ast_sha": "",
		"complexity": complexity, "max_nesting_depth": int64(1), "generated_by": "", "macro_source": "",
	})
}

// SpecsDB seeds a handful of @spec-bearing functions for Specs query tests,
// one module with two functions at different arities.
func SpecsDB() (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	clauseRow(cozoRows, graphRows, "MyApp.Accounts", "create", 1, 10, 10, 14, 1)
	clauseRow(cozoRows, graphRows, "MyApp.Accounts", "create", 2, 20, 20, 26, 2)

	specs := []struct {
		name           string
		arity, line    int64
		inputs, ret    string
	}{
		{"create", 1, 9, "map()", "{:ok, t()} | {:error, term()}"},
		{"create", 2, 19, "map(), keyword()", "{:ok, t()} | {:error, term()}"},
	}
	for _, s := range specs {
		full := "@spec create(" + s.inputs + ") :: " + s.ret
		cozoRows["specs"] = append(cozoRows["specs"], map[string]any{
			"project": Project, "module": "MyApp.Accounts", "name": s.name, "arity": s.arity,
			"kind": "spec", "line": s.line, "inputs_string": s.inputs, "return_string": s.ret, "full": full,
		})
		graphRows["spec"] = append(graphRows["spec"], map[string]any{
			"module_name": "MyApp.Accounts", "function_name": s.name, "arity": s.arity, "clause_index": int64(0),
			"kind": "spec", "line": s.line,
			"input_strings": []string{s.inputs}, "return_strings": []string{s.ret}, "full": full,
		})
	}

	return seedBoth(cozoRows, graphRows)
}

// AcceptsDB seeds specs whose input-type string can be regex-matched by
// AcceptsDB's callers — one function accepting a map, one accepting a
// plain integer, to exercise type-pattern filtering.
func AcceptsDB() (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	clauseRow(cozoRows, graphRows, "MyApp.Parser", "parse_map", 1, 10, 10, 12, 1)
	clauseRow(cozoRows, graphRows, "MyApp.Parser", "parse_int", 1, 20, 20, 22, 1)

	rows := []struct {
		name, inputs, ret string
	}{
		{"parse_map", "map()", "{:ok, map()}"},
		{"parse_int", "integer()", "{:ok, integer()}"},
	}
	for i, r := range rows {
		full := "@spec " + r.name + "(" + r.inputs + ") :: " + r.ret
		cozoRows["specs"] = append(cozoRows["specs"], map[string]any{
			"project": Project, "module": "MyApp.Parser", "name": r.name, "arity": int64(1),
			"kind": "spec", "line": int64(9 + i*10), "inputs_string": r.inputs, "return_string": r.ret, "full": full,
		})
		graphRows["spec"] = append(graphRows["spec"], map[string]any{
			"module_name": "MyApp.Parser", "function_name": r.name, "arity": int64(1), "clause_index": int64(0),
			"kind": "spec", "line": int64(9 + i*10),
			"input_strings": []string{r.inputs}, "return_strings": []string{r.ret}, "full": full,
		})
	}

	return seedBoth(cozoRows, graphRows)
}

// TypeSignaturesDB seeds a couple of @type declarations for Types query
// tests.
func TypeSignaturesDB() (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	cozoRows["modules"] = append(cozoRows["modules"], map[string]any{
		"project": Project, "name": "MyApp.Accounts", "file": "accounts.ex", "source": "source",
	})
	graphRows["module"] = append(graphRows["module"], map[string]any{
		"name": "MyApp.Accounts", "file": "accounts.ex", "source": "source",
	})

	types := []struct {
		name, params, definition string
		line                     int64
	}{
		{"t", "", "%__MODULE__{id: integer(), name: String.t()}", 5},
		{"error_reason", "", ":not_found | :invalid", 8},
	}
	for _, t := range types {
		cozoRows["types"] = append(cozoRows["types"], map[string]any{
			"project": Project, "module": "MyApp.Accounts", "name": t.name,
			"kind": "type", "params": t.params, "line": t.line, "definition": t.definition,
		})
		graphRows["type"] = append(graphRows["type"], map[string]any{
			"module_name": "MyApp.Accounts", "name": t.name,
			"kind": "type", "params": t.params, "line": t.line, "definition": t.definition,
		})
	}

	return seedBoth(cozoRows, graphRows)
}

// LargeFunctionsDB seeds clauses of varying line spans so MinLines
// filtering and end_line-descending ordering both have something to bite on.
func LargeFunctionsDB() (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	clauseRow(cozoRows, graphRows, "MyApp.Worker", "small", 1, 10, 10, 15, 1)
	clauseRow(cozoRows, graphRows, "MyApp.Worker", "medium", 1, 30, 30, 60, 4)
	clauseRow(cozoRows, graphRows, "MyApp.Worker", "large", 1, 80, 80, 220, 11)

	return seedBoth(cozoRows, graphRows)
}

// ManyClausesDB seeds one function with five pattern-matched clauses and
// one with a single clause, so MinClauses filtering has a true negative.
func ManyClausesDB() (backend.Database, backend.Database, error) {
	cozoRows := rowSet{}
	graphRows := rowSet{}

	for i := int64(0); i < 5; i++ {
		line := 10 + i*5
		clauseRow(cozoRows, graphRows, "MyApp.Matcher", "dispatch", 1, line, line, line+3, 1)
	}
	clauseRow(cozoRows, graphRows, "MyApp.Matcher", "helper", 0, 50, 50, 52, 1)

	return seedBoth(cozoRows, graphRows)
}
