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

// Package querybuilder is the shared dual-backend compile/execute shape
// every concrete query in pkg/queries is built from: one struct per query
// holding semantic inputs, a single Compile entry point that branches
// once on the target backend, and a typed decode step that always
// produces the same Go record slice regardless of which dialect ran.
package querybuilder

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/value"
)

// CompiledQuery is the output of a Compile step: a script plus its bound
// parameters, ready to hand to backend.Database.ExecuteQuery.
type CompiledQuery struct {
	Script string
	Params backend.QueryParams
}

// Decoder turns a backend-neutral QueryResult into typed records.
type Decoder[T any] func(value.QueryResult) ([]T, error)

// Builder compiles against a named backend and decodes the result into T.
// Every concrete query type in pkg/queries implements this directly: its
// Compile dispatches through Compile/BackendCompiler to its
// compileDatalog/compileGraph methods, and its Decode maps rows to T.
type Builder[T any] interface {
	Compile(backendName string) (CompiledQuery, error)
	Decode(result value.QueryResult) ([]T, error)
}

// Run compiles for db's backend, executes, and decodes — the call site
// pkg/queries queries funnel through, and where backend.ObserveQuery is
// called (UnusedFunctions' graph path, which bypasses Run, observes itself).
func Run[T any](ctx context.Context, db backend.Database, b Builder[T]) ([]T, error) {
	queryName := queryTypeName(b)
	start := time.Now()

	compiled, err := b.Compile(db.BackendName())
	if err != nil {
		backend.ObserveQuery(db.BackendName(), queryName, time.Since(start), err)
		return nil, err
	}
	result, err := db.ExecuteQuery(ctx, compiled.Script, compiled.Params)
	if err != nil {
		backend.ObserveQuery(db.BackendName(), queryName, time.Since(start), err)
		return nil, err
	}
	out, err := b.Decode(result)
	backend.ObserveQuery(db.BackendName(), queryName, time.Since(start), err)
	return out, err
}

func queryTypeName(b any) string {
	return fmt.Sprintf("%T", b)
}

// BackendCompiler is the pair of dialect-specific compile functions a
// concrete query type supplies; Compile below dispatches to exactly one.
type BackendCompiler struct {
	Datalog func() (CompiledQuery, error)
	Graph   func() (CompiledQuery, error)
}

// Compile branches once on backendName — "compile once, per-backend".
// Every concrete query's Compile method is a one-line call to this.
func Compile(backendName string, c BackendCompiler) (CompiledQuery, error) {
	switch backendName {
	case "cozodb":
		return c.Datalog()
	case "graphdb":
		return c.Graph()
	default:
		return CompiledQuery{}, fmt.Errorf("unsupported backend %q", backendName)
	}
}

// ValidateRegexPatterns compiles every pattern up front so an invalid
// pattern is reported as an input error before any script reaches a
// backend, rather than surfacing as an opaque backend failure.
func ValidateRegexPatterns(patterns ...string) error {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return backend.InvalidPatternError(p, err)
		}
	}
	return nil
}

// ValidateLimit validates a user-supplied row cap: negative limits are
// rejected before any script is compiled, zero is valid and means "no rows".
func ValidateLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", limit)
	}
	return nil
}
