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

// Package graphdb wraps github.com/surrealdb/surrealdb.go: a single
// dedicated goroutine owns the connection and drains a channel of thunks,
// so every exported method can keep the synchronous backend.Database
// contract while the client underneath is natively asynchronous.
package graphdb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/value"
)

// client is the slice of github.com/surrealdb/surrealdb.go this package
// depends on. Isolating it behind an interface keeps the reactor and the
// Database plumbing below independent of that SDK's exact method set.
type client interface {
	Use(ns, db string) error
	Query(sql string, vars map[string]any) ([]surrealQueryResult, error)
	Close() error
}

type surrealQueryResult struct {
	Status string
	Result []map[string]any
}

// Config names the remote (or embedded-server) graph store to connect to.
type Config struct {
	Endpoint  string // e.g. "ws://127.0.0.1:8000/rpc"
	Namespace string
	Database  string
	Username  string
	Password  string
}

type thunk struct {
	fn   func(client) (any, error)
	resp chan thunkResult
}

type thunkResult struct {
	val any
	err error
}

// Driver is the graph-store-backed implementation of backend.Database.
type Driver struct {
	cfg    Config
	work   chan thunk
	done   chan struct{}
	once   sync.Once
	client client
}

// Dial connects and starts the reactor goroutine; namespace/database
// selection happens separately in SetupBackend. newClient is injected so
// tests can substitute a fake without touching the real wire client.
func Dial(cfg Config, newClient func(Config) (client, error)) (*Driver, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, backend.BackendFailureError("graphdb", err)
	}

	d := &Driver{
		cfg:    cfg,
		work:   make(chan thunk),
		done:   make(chan struct{}),
		client: c,
	}
	go d.loop()
	return d, nil
}

func (d *Driver) loop() {
	for {
		select {
		case t := <-d.work:
			v, err := t.fn(d.client)
			t.resp <- thunkResult{val: v, err: err}
		case <-d.done:
			return
		}
	}
}

// submit is the block_on equivalent: it hands fn to the reactor goroutine
// and blocks the caller until the result arrives, or ctx is cancelled.
func (d *Driver) submit(ctx context.Context, fn func(client) (any, error)) (any, error) {
	t := thunk{fn: fn, resp: make(chan thunkResult, 1)}
	select {
	case d.work <- t:
	case <-d.done:
		return nil, backend.BackendFailureError("graphdb", fmt.Errorf("driver closed"))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-t.resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Driver) BackendName() string { return "graphdb" }

func (d *Driver) SetupBackend(ctx context.Context) error {
	_, err := d.submit(ctx, func(c client) (any, error) {
		return nil, c.Use(d.cfg.Namespace, d.cfg.Database)
	})
	if err != nil {
		return backend.BackendFailureError("graphdb", err)
	}
	return nil
}

func (d *Driver) Close() error {
	d.once.Do(func() { close(d.done) })
	return d.client.Close()
}

func (d *Driver) ExecuteQueryNoParams(ctx context.Context, script string) (value.QueryResult, error) {
	return d.ExecuteQuery(ctx, script, backend.NewQueryParams())
}

func (d *Driver) ExecuteQuery(ctx context.Context, script string, params backend.QueryParams) (value.QueryResult, error) {
	v, err := d.submit(ctx, func(c client) (any, error) {
		return c.Query(script, params.AsMap())
	})
	if err != nil {
		return value.QueryResult{}, backend.BackendFailureError("graphdb", err)
	}

	results, _ := v.([]surrealQueryResult)
	if len(results) == 0 {
		return value.QueryResult{}, nil
	}
	return rowsFromMaps(results[0].Result), nil
}

// rowsFromMaps converts the SDK's []map[string]any rows into the
// backend-neutral QueryResult, sorting headers alphabetically to mirror
// the graph backend's documented column reordering.
func rowsFromMaps(maps []map[string]any) value.QueryResult {
	headerSet := map[string]struct{}{}
	for _, m := range maps {
		for k := range m {
			headerSet[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(headerSet))
	for h := range headerSet {
		headers = append(headers, h)
	}
	sortStrings(headers)

	rows := make([][]any, len(maps))
	for i, m := range maps {
		row := make([]any, len(headers))
		for j, h := range headers {
			row[j] = m[h]
		}
		rows[i] = row
	}
	return value.FromGraphRows(headers, rows)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (d *Driver) RelationExists(ctx context.Context, name string) (bool, error) {
	script := fmt.Sprintf("INFO FOR TABLE %s", name)
	_, err := d.submit(ctx, func(c client) (any, error) {
		return c.Query(script, nil)
	})
	if err == nil {
		return true, nil
	}
	return false, nil
}

// TryCreateRelation issues a DEFINE TABLE/FIELD/INDEX DDL blob. SurrealDB's
// DEFINE statements are idempotent by default (re-running one simply
// redefines the same shape), so unlike the Datalog driver there is no
// "already exists" error to special-case. Every successful DEFINE is
// reported as a creation (true): whether the table already existed is not
// checked, so re-running the bootstrap against an existing store reports
// true again. Only a failed DEFINE returns an error.
func (d *Driver) TryCreateRelation(ctx context.Context, ddl string) (bool, error) {
	_, err := d.submit(ctx, func(c client) (any, error) {
		return c.Query(ddl, nil)
	})
	if err != nil {
		return false, backend.BackendFailureError("graphdb", err)
	}
	return true, nil
}

func (d *Driver) InsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := d.submit(ctx, func(c client) (any, error) {
		for _, r := range rows {
			if _, err := c.Query(fmt.Sprintf("INSERT INTO %s $row", relation), map[string]any{"row": r}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return backend.BackendFailureError("graphdb", err)
	}
	return nil
}

// UpsertRows defaults to InsertRows: UPSERT CONTENT is equivalent to
// INSERT for the fresh-project bootstraps this store is seeded by.
func (d *Driver) UpsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	return d.InsertRows(ctx, relation, rows)
}

func (d *Driver) DeleteByProject(ctx context.Context, relation, project string) error {
	script := fmt.Sprintf("DELETE %s WHERE project = $project", relation)
	_, err := d.submit(ctx, func(c client) (any, error) {
		return c.Query(script, map[string]any{"project": project})
	})
	if err != nil {
		return backend.BackendFailureError("graphdb", err)
	}
	return nil
}

// strippedThingID removes a `table:` prefix from a SurrealDB record id,
// the inverse of how callers build a record link when joining across
// tables. Unused by this file directly; kept alongside the driver because
// pkg/value.GraphValue.AsThingID documents the same convention.
func strippedThingID(id string) string {
	_, rest, ok := strings.Cut(id, ":")
	if !ok {
		return id
	}
	return rest
}
