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

// Package cozo wraps pkg/cozodb.CozoDB to satisfy backend.Database: the
// same engine selection, the same "already exists" / "conflicts with an
// existing one" idempotency check, and the same stdlib log.Printf wiring
// pkg/cozodb.go itself already uses for relation-creation diagnostics.
package cozo

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/cozodb"
	"github.com/kraklabs/cie/pkg/value"
)

// Config selects a CozoDB engine plus a data directory (ignored for
// "mem").
type Config struct {
	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	Engine  string
	DataDir string
	Options map[string]any
}

// Driver is the CozoDB-backed implementation of backend.Database.
//
// CozoDB serializes concurrent callers internally, but cozodb.CozoDB is a
// value type wrapping a C-side handle int; a mutex around Close keeps a
// racing query from running against a freed handle.
type Driver struct {
	mu     sync.RWMutex
	db     cozodb.CozoDB
	closed bool
}

func Open(cfg Config) (*Driver, error) {
	engine := cfg.Engine
	if engine == "" {
		engine = "rocksdb"
	}
	db, err := cozodb.New(engine, cfg.DataDir, cfg.Options)
	if err != nil {
		return nil, backend.BackendFailureError("cozodb", err)
	}
	return &Driver{db: db}, nil
}

func (d *Driver) BackendName() string { return "cozodb" }

func (d *Driver) SetupBackend(ctx context.Context) error { return nil }

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.db.Close()
	return nil
}

func (d *Driver) ExecuteQueryNoParams(ctx context.Context, script string) (value.QueryResult, error) {
	return d.ExecuteQuery(ctx, script, backend.NewQueryParams())
}

func (d *Driver) ExecuteQuery(ctx context.Context, script string, params backend.QueryParams) (value.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return value.QueryResult{}, backend.BackendFailureError("cozodb", fmt.Errorf("database is closed"))
	}

	rows, err := d.db.Run(script, params.AsMap())
	if err != nil {
		return value.QueryResult{}, backend.BackendFailureError("cozodb", err)
	}
	return value.FromCozoRows(rows.Headers, rows.Rows), nil
}

func (d *Driver) RelationExists(ctx context.Context, name string) (bool, error) {
	script := fmt.Sprintf("::relations %s", name)
	_, err := d.ExecuteQueryNoParams(ctx, script)
	if err == nil {
		return true, nil
	}
	if strings.Contains(err.Error(), "not found") {
		return false, nil
	}
	return false, err
}

// TryCreateRelation issues a `:create` DDL script and treats the store's
// "already exists" / "conflicts with an existing one" rejection as
// (false, nil) rather than an error — grounded verbatim on EnsureSchema's
// per-table creation loop.
func (d *Driver) TryCreateRelation(ctx context.Context, ddl string) (bool, error) {
	_, err := d.ExecuteQueryNoParams(ctx, ddl)
	if err == nil {
		return true, nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "already exists") || strings.Contains(errStr, "conflicts with an existing one") {
		log.Printf("[cozo] relation already present, skipping creation: %s", ddl)
		return false, nil
	}
	return false, backend.BackendFailureError("cozodb", err)
}

func (d *Driver) InsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	script, params := buildPutScript(relation, rows)
	_, err := d.ExecuteQuery(ctx, script, params)
	if err != nil {
		return backend.BackendFailureError("cozodb", err)
	}
	return nil
}

// UpsertRows defaults to InsertRows: CozoDB's `:put` semantics are already
// an upsert keyed on the relation's declared key fields.
func (d *Driver) UpsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	return d.InsertRows(ctx, relation, rows)
}

func (d *Driver) DeleteByProject(ctx context.Context, relation, project string) error {
	script := fmt.Sprintf("?[project] <- [[$project]] :rm %s { project => }", relation)
	_, err := d.ExecuteQuery(ctx, script, backend.NewQueryParams().WithStr("project", project))
	if err != nil {
		return backend.BackendFailureError("cozodb", err)
	}
	return nil
}

// buildPutScript emits a `?[cols] <- [[$r0c0, $r0c1, ...], ...] :put rel {cols}`
// script, binding every cell as its own parameter rather than interpolating
// values into the script text.
func buildPutScript(relation string, rows []map[string]any) (string, backend.QueryParams) {
	cols := sortedKeys(rows[0])
	params := backend.NewQueryParams()

	var sb strings.Builder
	sb.WriteString("?[")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString("] <- [")
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for ci, c := range cols {
			if ci > 0 {
				sb.WriteString(", ")
			}
			pname := fmt.Sprintf("r%dc%d", ri, ci)
			sb.WriteString("$" + pname)
			params = bindAny(params, pname, row[c])
		}
		sb.WriteString("]")
	}
	sb.WriteString("] :put ")
	sb.WriteString(relation)
	sb.WriteString(" {")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString("}")
	return sb.String(), params
}

func bindAny(p backend.QueryParams, name string, v any) backend.QueryParams {
	switch x := v.(type) {
	case string:
		return p.WithStr(name, x)
	case int:
		return p.WithInt(name, int64(x))
	case int64:
		return p.WithInt(name, x)
	case float64:
		return p.WithFloat(name, x)
	case bool:
		return p.WithBool(name, x)
	case []string:
		return p.WithStrArray(name, x)
	default:
		return p.WithStr(name, fmt.Sprintf("%v", x))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable, deterministic column order independent of map iteration.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
