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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/backend"
)

func seedModules(t *testing.T, d *MemoryDriver, rows []map[string]any) {
	t.Helper()
	_, err := d.TryCreateRelation(context.Background(), "DEFINE TABLE module SCHEMAFULL;")
	require.NoError(t, err)
	require.NoError(t, d.InsertRows(context.Background(), "module", rows))
}

func TestMemoryDriverTryCreateRelationIdempotent(t *testing.T) {
	d := NewMemoryDriver()
	ctx := context.Background()

	created, err := d.TryCreateRelation(ctx, "DEFINE TABLE module SCHEMAFULL;\nDEFINE FIELD name ON module TYPE string;")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = d.TryCreateRelation(ctx, "DEFINE TABLE module SCHEMAFULL;")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMemoryDriverSelectWhereEquality(t *testing.T) {
	d := NewMemoryDriver()
	seedModules(t, d, []map[string]any{
		{"name": "MyApp.A", "file": "a.ex"},
		{"name": "MyApp.B", "file": "b.ex"},
	})

	result, err := d.ExecuteQuery(context.Background(),
		"SELECT m.name AS name, m.file AS file FROM module AS m WHERE m.name = $name",
		backend.NewQueryParams().WithStr("name", "MyApp.B"))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	fileIdx := result.HeaderIndex("file")
	v, ok := result.Rows[0].Get(fileIdx)
	require.True(t, ok)
	s, _ := v.AsStr()
	assert.Equal(t, "b.ex", s)
}

func TestMemoryDriverSelectMatchesRegex(t *testing.T) {
	d := NewMemoryDriver()
	seedModules(t, d, []map[string]any{
		{"name": "MyApp.Accounts", "file": "accounts.ex"},
		{"name": "MyApp.Billing", "file": "billing.ex"},
	})

	result, err := d.ExecuteQuery(context.Background(),
		"SELECT m.name AS name FROM module AS m WHERE m.name MATCHES $pattern",
		backend.NewQueryParams().WithStr("pattern", "^MyApp.A"))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
}

func TestMemoryDriverLimit(t *testing.T) {
	d := NewMemoryDriver()
	seedModules(t, d, []map[string]any{
		{"name": "MyApp.A"}, {"name": "MyApp.B"}, {"name": "MyApp.C"},
	})

	result, err := d.ExecuteQueryNoParams(context.Background(), "SELECT m.name AS name FROM module AS m LIMIT 2")
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}

func TestMemoryDriverGroupByCount(t *testing.T) {
	d := NewMemoryDriver()
	_, err := d.TryCreateRelation(context.Background(), "DEFINE TABLE calls_edge SCHEMAFULL;")
	require.NoError(t, err)
	require.NoError(t, d.InsertRows(context.Background(), "calls_edge", []map[string]any{
		{"callee_module": "MyApp.A", "callee_function": "run", "callee_arity": float64(0)},
		{"callee_module": "MyApp.A", "callee_function": "run", "callee_arity": float64(0)},
		{"callee_module": "MyApp.B", "callee_function": "run", "callee_arity": float64(0)},
	}))

	result, err := d.ExecuteQueryNoParams(context.Background(),
		`SELECT ce.callee_module AS module, ce.callee_function AS name, ce.callee_arity AS arity, count() AS cnt
FROM calls_edge AS ce
GROUP BY module, name, arity`)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	cntIdx := result.HeaderIndex("cnt")
	var total int64
	for _, row := range result.Rows {
		v, _ := row.Get(cntIdx)
		i, _ := v.AsI64()
		total += i
	}
	assert.Equal(t, int64(3), total)
}

func TestMemoryDriverDeleteByProject(t *testing.T) {
	d := NewMemoryDriver()
	_, err := d.TryCreateRelation(context.Background(), "DEFINE TABLE scoped SCHEMAFULL;")
	require.NoError(t, err)
	require.NoError(t, d.InsertRows(context.Background(), "scoped", []map[string]any{
		{"project": "a", "val": "x"},
		{"project": "b", "val": "y"},
	}))

	require.NoError(t, d.DeleteByProject(context.Background(), "scoped", "a"))

	result, err := d.ExecuteQueryNoParams(context.Background(), "SELECT s.val AS val FROM scoped AS s")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
}

func TestMemoryDriverBackendName(t *testing.T) {
	assert.Equal(t, "graphdb", NewMemoryDriver().BackendName())
}
