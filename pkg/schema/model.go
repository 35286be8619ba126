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

// Package schema is the single source of truth for the program-facts model.
// Both the Datalog DDL and the graph DDL (pkg/schema/compilers) are derived
// from the Relation values defined here; nothing else hand-writes table
// layout.
package schema

// DataType enumerates the field types the two backends can both express.
type DataType int

const (
	TString DataType = iota
	TInt
	TFloat
	TBool
	TStringArray
)

// Field is one column of a relation.
type Field struct {
	Name    string
	Type    DataType
	Default any // nil when the field has no default
}

// Relationship describes an edge this relation implies toward another
// relation, used only by the graph compiler to emit TYPE RELATION FROM/TO.
type Relationship struct {
	Name           string
	TargetRelation string
	EdgeTypeName   string
}

// Relation is a backend-neutral table: a composite key plus value fields.
type Relation struct {
	Name          string
	KeyFields     []Field
	ValueFields   []Field
	Relationships []Relationship
}

// AllFields returns key fields followed by value fields, the column order
// both compilers emit DDL in.
func (r Relation) AllFields() []Field {
	out := make([]Field, 0, len(r.KeyFields)+len(r.ValueFields))
	out = append(out, r.KeyFields...)
	out = append(out, r.ValueFields...)
	return out
}

func f(name string, t DataType) Field { return Field{Name: name, Type: t} }

func fd(name string, t DataType, def any) Field {
	return Field{Name: name, Type: t, Default: def}
}

// The seven logical relations. The Datalog backend stores these as-is;
// the graph backend factors them into the node/edge tables below
// (AllGraphTables).

var Modules = Relation{
	Name:      "modules",
	KeyFields: []Field{f("project", TString), f("name", TString)},
	ValueFields: []Field{
		fd("file", TString, ""),
		fd("source", TString, "unknown"),
	},
}

var Functions = Relation{
	Name: "functions",
	KeyFields: []Field{
		f("project", TString), f("module", TString), f("name", TString), f("arity", TInt),
	},
	ValueFields: []Field{
		fd("return_type", TString, ""),
		fd("args", TString, ""),
		fd("source", TString, "unknown"),
	},
}

// FunctionLocations is "function_locations" relationally, "clause" on the
// graph side.
var FunctionLocations = Relation{
	Name: "function_locations",
	KeyFields: []Field{
		f("project", TString), f("module", TString), f("name", TString),
		f("arity", TInt), f("line", TInt),
	},
	ValueFields: []Field{
		fd("file", TString, ""),
		fd("source_file_absolute", TString, ""),
		fd("column", TInt, 0),
		fd("kind", TString, "def"),
		f("start_line", TInt),
		f("end_line", TInt),
		fd("pattern", TString, ""),
		fd("guard", TString, ""),
		fd("source_sha", TString, ""),
		fd("ast_sha", TString, ""),
		fd("complexity", TInt, 1),
		fd("max_nesting_depth", TInt, 0),
		fd("generated_by", TString, ""),
		fd("macro_source", TString, ""),
	},
}

var Calls = Relation{
	Name: "calls",
	KeyFields: []Field{
		f("project", TString), f("caller_module", TString), f("caller_function", TString),
		f("callee_module", TString), f("callee_function", TString), f("callee_arity", TInt),
		f("file", TString), f("line", TInt), f("column", TInt),
	},
	ValueFields: []Field{
		fd("call_type", TString, "remote"),
		fd("caller_kind", TString, ""),
		fd("callee_args", TString, ""),
	},
}

var Specs = Relation{
	Name: "specs",
	KeyFields: []Field{
		f("project", TString), f("module", TString), f("name", TString), f("arity", TInt),
	},
	ValueFields: []Field{
		fd("kind", TString, "spec"),
		f("line", TInt),
		fd("inputs_string", TString, ""),
		fd("return_string", TString, ""),
		fd("full", TString, ""),
	},
}

var Types = Relation{
	Name:      "types",
	KeyFields: []Field{f("project", TString), f("module", TString), f("name", TString)},
	ValueFields: []Field{
		fd("kind", TString, "type"),
		fd("params", TString, ""),
		f("line", TInt),
		fd("definition", TString, ""),
	},
}

var StructFields = Relation{
	Name:      "struct_fields",
	KeyFields: []Field{f("project", TString), f("module", TString), f("field", TString)},
	ValueFields: []Field{
		fd("default_value", TString, ""),
		fd("required", TBool, false),
		fd("inferred_type", TString, ""),
	},
}

// AllRelations returns the seven logical relations in a fixed,
// deterministic order for the Datalog backend's single-pass bootstrap.
func AllRelations() []Relation {
	return []Relation{Modules, Functions, FunctionLocations, Calls, Specs, Types, StructFields}
}

// --- Graph refactoring: 6 node tables + 4 edge tables ---

var NodeModule = Relation{
	Name:      "module",
	KeyFields: []Field{f("name", TString)},
	ValueFields: []Field{
		fd("file", TString, ""),
		fd("source", TString, "unknown"),
	},
}

var NodeFunction = Relation{
	Name:      "function",
	KeyFields: []Field{f("module_name", TString), f("name", TString), f("arity", TInt)},
}

var NodeClause = Relation{
	Name: "clause",
	KeyFields: []Field{
		f("module_name", TString), f("function_name", TString), f("arity", TInt), f("line", TInt),
	},
	ValueFields: []Field{
		f("source_file", TString),
		fd("source_file_absolute", TString, ""),
		f("kind", TString),
		f("start_line", TInt),
		f("end_line", TInt),
		fd("pattern", TString, ""),
		fd("guard", TString, ""),
		fd("source_sha", TString, ""),
		fd("ast_sha", TString, ""),
		fd("complexity", TInt, 1),
		fd("max_nesting_depth", TInt, 0),
		fd("generated_by", TString, ""),
		fd("macro_source", TString, ""),
	},
}

var NodeSpec = Relation{
	Name: "spec",
	KeyFields: []Field{
		f("module_name", TString), f("function_name", TString), f("arity", TInt), f("clause_index", TInt),
	},
	ValueFields: []Field{
		f("kind", TString),
		f("line", TInt),
		fd("input_strings", TStringArray, []string{}),
		fd("return_strings", TStringArray, []string{}),
		fd("full", TString, ""),
	},
}

var NodeType = Relation{
	Name:      "type",
	KeyFields: []Field{f("module_name", TString), f("name", TString)},
	ValueFields: []Field{
		f("kind", TString),
		fd("params", TString, ""),
		f("line", TInt),
		fd("definition", TString, ""),
	},
}

var NodeField = Relation{
	Name:      "field",
	KeyFields: []Field{f("module_name", TString), f("name", TString)},
	ValueFields: []Field{
		f("default_value", TString),
		f("required", TBool),
	},
}

var EdgeDefines = Relation{
	Name:      "defines",
	KeyFields: []Field{f("in", TString), f("out", TString)},
}

var EdgeHasClause = Relation{
	Name:      "has_clause",
	KeyFields: []Field{f("in", TString), f("out", TString)},
}

// EdgeCalls denormalizes caller/callee module, function, and arity onto
// the edge itself rather than relying on graph-side record dereferencing
// through `in`/`out` — every pkg/queries caller-side and callee-side
// filter (calls.go, cycles.go, hotspots.go, module_connectivity.go)
// matches a flat column, not a joined field through the relation link.
var EdgeCalls = Relation{
	Name:      "calls_edge",
	KeyFields: []Field{f("in", TString), f("out", TString)},
	ValueFields: []Field{
		f("caller_module", TString), f("caller_function", TString),
		f("callee_module", TString), f("callee_function", TString), f("callee_arity", TInt),
		fd("call_type", TString, "remote"),
		fd("file", TString, ""),
		f("line", TInt),
		fd("column", TInt, 0),
		fd("caller_clause_id", TString, ""),
	},
}

var EdgeHasField = Relation{
	Name:      "has_field",
	KeyFields: []Field{f("in", TString), f("out", TString)},
}

// AllGraphTables returns the node tables (fixed order) followed by the edge
// tables (fixed order): nodes must exist before edges that reference them,
// the two-phase bootstrap order the graph backend requires.
func AllGraphTables() (nodes, edges []Relation) {
	nodes = []Relation{NodeModule, NodeFunction, NodeClause, NodeSpec, NodeType, NodeField}
	edges = []Relation{EdgeDefines, EdgeHasClause, EdgeCalls, EdgeHasField}
	return nodes, edges
}
