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

package cozo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/backend"
)

func openMem(t *testing.T) *Driver {
	t.Helper()
	db, err := Open(Config{Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDriverBackendName(t *testing.T) {
	db := openMem(t)
	assert.Equal(t, "cozodb", db.BackendName())
}

func TestTryCreateRelationReportsCreatedOnce(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()

	created, err := db.TryCreateRelation(ctx, ":create widgets { id: Int => name: String }")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.TryCreateRelation(ctx, ":create widgets { id: Int => name: String }")
	require.NoError(t, err)
	assert.False(t, created, "re-creating an existing relation must report false, not error")
}

func TestInsertAndQueryRows(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()

	_, err := db.TryCreateRelation(ctx, ":create widgets { id: Int => name: String }")
	require.NoError(t, err)

	err = db.InsertRows(ctx, "widgets", []map[string]any{
		{"id": int64(1), "name": "sprocket"},
		{"id": int64(2), "name": "gear"},
	})
	require.NoError(t, err)

	result, err := db.ExecuteQueryNoParams(ctx, "?[id, name] := *widgets[id, name]")
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}

func TestDeleteByProjectRemovesOnlyMatchingRows(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()

	_, err := db.TryCreateRelation(ctx, ":create scoped { project: String, id: Int => val: String }")
	require.NoError(t, err)
	err = db.InsertRows(ctx, "scoped", []map[string]any{
		{"project": "a", "id": int64(1), "val": "x"},
		{"project": "b", "id": int64(2), "val": "y"},
	})
	require.NoError(t, err)

	err = db.DeleteByProject(ctx, "scoped", "a")
	require.NoError(t, err)

	result, err := db.ExecuteQueryNoParams(ctx, "?[project, id] := *scoped[project, id, _val]")
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
}

func TestExecuteQueryAfterCloseFails(t *testing.T) {
	db, err := Open(Config{Engine: "mem"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.ExecuteQueryNoParams(context.Background(), "?[x] <- [[1]]")
	assert.ErrorIs(t, err, backend.ErrBackendFailure)
}

func TestCloseIsIdempotent(t *testing.T) {
	db, err := Open(Config{Engine: "mem"})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
	assert.NoError(t, db.Close())
}
