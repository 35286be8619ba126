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

// Package queries holds the concrete dual-backend queries this store
// exposes, including module-cluster and file-summary lookups alongside the
// function/call/complexity family. Every query type here is a
// querybuilder.Builder[T]: semantic inputs in, one typed record slice out,
// same shape on either backend.
package queries

// FunctionLocation is one row of function_locations / clause.
type FunctionLocation struct {
	Module     string
	Name       string
	Arity      int64
	Line       int64
	File       string
	Kind       string
	StartLine  int64
	EndLine    int64
	Complexity int64
}

// Call is one calls / calls_edge row, attributed to the clause that issued
// it: CallerName/CallerArity/CallerKind and the clause's line span come
// from the function_locations/clause row whose range contains Line, not
// from the raw calls.caller_function column (which may carry an
// arity-suffixed clause id function_locations never stores).
type Call struct {
	CallerModule    string
	CallerFunction  string
	CallerName      string
	CallerArity     int64
	CallerKind      string
	CallerStartLine int64
	CallerEndLine   int64
	CalleeModule    string
	CalleeFunction  string
	CalleeArity     int64
	File            string
	Line            int64
	Column          int64
	CallType        string
}

// CycleEdge is one direct-dependency edge used to reconstruct a cycle.
type CycleEdge struct {
	FromModule string
	ToModule   string
}

// ComplexityMetric ranks one function by its clause's complexity score.
type ComplexityMetric struct {
	Module     string
	Name       string
	Arity      int64
	Line       int64
	Complexity int64
}

// LargeFunction is a function whose clause spans more lines than a
// configured threshold.
type LargeFunction struct {
	Module    string
	Name      string
	Arity     int64
	StartLine int64
	EndLine   int64
	LineCount int64
}

// ManyClauses counts how many clause rows one function has.
type ManyClauses struct {
	Module       string
	Name         string
	Arity        int64
	ClauseCount  int64
}

// UnusedFunction is a defined function with zero incoming local calls.
type UnusedFunction struct {
	Module string
	Name   string
	Arity  int64
	File   string
}

// Hotspot ranks a function by call-graph centrality.
type Hotspot struct {
	Module   string
	Name     string
	Arity    int64
	Incoming int64
	Outgoing int64
	Total    int64
	Ratio    float64
}

// SpecDef is one specs row.
type SpecDef struct {
	Module       string
	Name         string
	Arity        int64
	Line         int64
	InputsString string
	ReturnString string
	Full         string
}

// TypeInfo is one types row.
type TypeInfo struct {
	Module     string
	Name       string
	Kind       string
	Params     string
	Line       int64
	Definition string
}

// AcceptsEntry describes one function parameter position by inferred type,
// for argument-shape search.
type AcceptsEntry struct {
	Module string
	Name   string
	Arity  int64
	Types  string
}

// ModuleCall aggregates calls between two modules, used by module
// connectivity reporting.
type ModuleCall struct {
	CallerModule string
	CalleeModule string
	CallCount    int64
}

// StructField is one struct_fields row.
type StructField struct {
	Module       string
	Field        string
	DefaultValue string
	Required     bool
	InferredType string
}

// StructDefinition groups a module's fields together, the shape
// pkg/aggregate.GroupStructFields produces from flat StructField rows.
type StructDefinition struct {
	Module string
	Fields []StructField
}

// ModuleCluster is one weakly-connected group of modules: a connected
// component of the module dependency graph, edge direction ignored.
type ModuleCluster struct {
	Modules   []string
	EdgeCount int64
}

// ModuleFile reports which source file a module is defined in.
type ModuleFile struct {
	Module string
	File   string
	Source string
}

// ModuleSearchResult is one search_modules row.
type ModuleSearchResult struct {
	Name string
	File string
}

// FunctionSearchResult is one search_functions row: a function_locations
// match enriched with the function's declared return type. ReturnType is
// always empty on the graph backend, which stores no such field on its
// function node.
type FunctionSearchResult struct {
	Module     string
	Name       string
	Arity      int64
	Line       int64
	File       string
	ReturnType string
}
