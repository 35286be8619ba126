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

// Package backend defines the storage-agnostic Database contract that
// both the embedded CozoDB driver (pkg/backend/cozo) and the graph-store
// driver (pkg/backend/graphdb) satisfy.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/kraklabs/cie/pkg/value"
)

// Error taxonomy. Row-level decode errors deliberately have no
// corresponding sentinel — they never propagate (callers use
// value.ExtractI64/ExtractStringOr with defaults and keep going).
var (
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrBackendFailure = errors.New("backend failure")
	ErrSchemaAbsent   = errors.New("required column missing from result")
)

// InvalidPatternError reports a regex that failed to compile, quoting the
// offending pattern.
func InvalidPatternError(pattern string, cause error) error {
	return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, cause)
}

// BackendFailureError wraps a store-level rejection.
func BackendFailureError(backendName string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackendFailure, backendName, cause)
}

// SchemaAbsentError reports a missing result column.
func SchemaAbsentError(column string) error {
	return fmt.Errorf("%w: %q", ErrSchemaAbsent, column)
}

// Param is one named, typed query parameter.
type Param struct {
	Name  string
	Value any
}

// QueryParams is an ordered {name -> value} bag. Both dialects spell
// parameters `$name`, which is why query builders can share parameter
// assembly even though script syntax diverges.
type QueryParams struct {
	params []Param
}

func NewQueryParams() QueryParams { return QueryParams{} }

func (p QueryParams) WithStr(name, v string) QueryParams {
	return p.with(name, v)
}

func (p QueryParams) WithInt(name string, v int64) QueryParams {
	return p.with(name, v)
}

func (p QueryParams) WithFloat(name string, v float64) QueryParams {
	return p.with(name, v)
}

func (p QueryParams) WithBool(name string, v bool) QueryParams {
	return p.with(name, v)
}

func (p QueryParams) WithStrArray(name string, v []string) QueryParams {
	return p.with(name, v)
}

func (p QueryParams) with(name string, v any) QueryParams {
	next := make([]Param, len(p.params), len(p.params)+1)
	copy(next, p.params)
	next = append(next, Param{Name: name, Value: v})
	return QueryParams{params: next}
}

// Params returns the ordered parameter list.
func (p QueryParams) Params() []Param { return p.params }

// AsMap converts to the map[string]any shape both backend clients consume.
func (p QueryParams) AsMap() map[string]any {
	m := make(map[string]any, len(p.params))
	for _, pr := range p.params {
		m[pr.Name] = pr.Value
	}
	return m
}

// SchemaCreationResult reports whether a relation was newly created by a
// schema bootstrap step.
type SchemaCreationResult struct {
	Relation string
	Created  bool
}

// Database is the storage-agnostic contract every query and every schema
// bootstrap step runs through. Implementations must be Send+Sync-equivalent
// in Go terms: safe to share across goroutines, with execution against a
// single handle observed in call order.
type Database interface {
	// ExecuteQuery runs script in mutable mode with bound parameters.
	ExecuteQuery(ctx context.Context, script string, params QueryParams) (value.QueryResult, error)
	// ExecuteQueryNoParams is the default form for scripts with no parameters.
	ExecuteQueryNoParams(ctx context.Context, script string) (value.QueryResult, error)
	RelationExists(ctx context.Context, name string) (bool, error)
	// TryCreateRelation is idempotent: true iff newly created. The
	// backend-specific "already exists" signal is treated as (false, nil),
	// never as an error.
	TryCreateRelation(ctx context.Context, ddl string) (bool, error)
	InsertRows(ctx context.Context, relation string, rows []map[string]any) error
	DeleteByProject(ctx context.Context, relation, project string) error
	// UpsertRows defaults to InsertRows when the store's insert primitive
	// is already an upsert (CozoDB's :put). Both backends here delegate to
	// InsertRows; on the graph backend that is a plain INSERT, which does
	// not replace existing rows.
	UpsertRows(ctx context.Context, relation string, rows []map[string]any) error
	// SetupBackend performs one-time store-level prep (e.g. selecting a
	// namespace/database on the graph backend). A no-op is valid.
	SetupBackend(ctx context.Context) error
	BackendName() string
	Close() error
}
