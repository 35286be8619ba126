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

package graphdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/backend"
)

// fakeClient is a test double for the surrealdb.go slice this package
// depends on, letting the reactor goroutine be exercised without a real
// connection.
type fakeClient struct {
	mu        sync.Mutex
	usedNS    string
	usedDB    string
	queries   []string
	queryFunc func(sql string, vars map[string]any) ([]surrealQueryResult, error)
	closed    bool
	closeErr  error
}

func (f *fakeClient) Use(ns, db string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usedNS, f.usedDB = ns, db
	return nil
}

func (f *fakeClient) Query(sql string, vars map[string]any) ([]surrealQueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	f.mu.Unlock()
	if f.queryFunc != nil {
		return f.queryFunc(sql, vars)
	}
	return []surrealQueryResult{{Status: "OK", Result: []map[string]any{{"name": "MyApp.A"}}}}, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func dialFake(t *testing.T, fc *fakeClient) *Driver {
	t.Helper()
	d, err := Dial(Config{Namespace: "cie", Database: "main"}, func(Config) (client, error) {
		return fc, nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDialInjectsClientConstructionError(t *testing.T) {
	_, err := Dial(Config{}, func(Config) (client, error) { return nil, errors.New("dial failed") })
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrBackendFailure)
}

func TestSetupBackendCallsUseWithConfiguredNamespace(t *testing.T) {
	fc := &fakeClient{}
	d := dialFake(t, fc)

	require.NoError(t, d.SetupBackend(context.Background()))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Equal(t, "cie", fc.usedNS)
	assert.Equal(t, "main", fc.usedDB)
}

func TestExecuteQueryRunsOnReactorGoroutine(t *testing.T) {
	fc := &fakeClient{}
	d := dialFake(t, fc)

	result, err := d.ExecuteQueryNoParams(context.Background(), "SELECT name FROM module")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.queries, 1)
	assert.Equal(t, "SELECT name FROM module", fc.queries[0])
}

func TestExecuteQueryWrapsClientError(t *testing.T) {
	fc := &fakeClient{queryFunc: func(string, map[string]any) ([]surrealQueryResult, error) {
		return nil, errors.New("connection reset")
	}}
	d := dialFake(t, fc)

	_, err := d.ExecuteQueryNoParams(context.Background(), "SELECT name FROM module")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrBackendFailure)
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	fc := &fakeClient{queryFunc: func(string, map[string]any) ([]surrealQueryResult, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	}}
	d := dialFake(t, fc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := d.ExecuteQueryNoParams(ctx, "SELECT name FROM module")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrBackendFailure)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
}

func TestCloseStopsReactorAndClosesClient(t *testing.T) {
	fc := &fakeClient{}
	d := dialFake(t, fc)

	require.NoError(t, d.Close())

	fc.mu.Lock()
	assert.True(t, fc.closed)
	fc.mu.Unlock()

	_, err := d.submit(context.Background(), func(client) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, backend.ErrBackendFailure)
}

func TestUpsertRowsDelegatesToInsertRows(t *testing.T) {
	fc := &fakeClient{}
	d := dialFake(t, fc)

	err := d.UpsertRows(context.Background(), "module", []map[string]any{{"name": "MyApp.A"}})
	require.NoError(t, err)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.queries, 1)
	assert.Contains(t, fc.queries[0], "INSERT INTO module")
}

func TestBackendName(t *testing.T) {
	d := dialFake(t, &fakeClient{})
	assert.Equal(t, "graphdb", d.BackendName())
}
