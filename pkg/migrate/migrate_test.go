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

package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/backend/cozo"
	"github.com/kraklabs/cie/pkg/backend/graphdb"
	"github.com/kraklabs/cie/pkg/schema"
)

func TestCreateRelationalSchemaCreatesEveryRelation(t *testing.T) {
	db, err := cozo.Open(cozo.Config{Engine: "mem"})
	require.NoError(t, err)
	defer db.Close()

	results, err := CreateSchema(context.Background(), db)
	require.NoError(t, err)
	assert.Len(t, results, len(schema.AllRelations()))
	for _, r := range results {
		assert.True(t, r.Created, "relation %s should report newly created", r.Relation)
	}
}

func TestCreateRelationalSchemaIsIdempotent(t *testing.T) {
	db, err := cozo.Open(cozo.Config{Engine: "mem"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = CreateSchema(ctx, db)
	require.NoError(t, err)

	results, err := CreateSchema(ctx, db)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Created, "relation %s already existed, Created must be false on the second pass", r.Relation)
	}
}

func TestCreateGraphSchemaCreatesNodesBeforeEdges(t *testing.T) {
	db := graphdb.NewMemoryDriver()

	results, err := CreateSchema(context.Background(), db)
	require.NoError(t, err)

	nodes, edges := schema.AllGraphTables()
	require.Len(t, results, len(nodes)+len(edges))

	nodeNames := map[string]bool{}
	for _, n := range nodes {
		nodeNames[n.Name] = true
	}
	for i, r := range results {
		if i < len(nodes) {
			assert.True(t, nodeNames[r.Relation], "first %d results must all be node tables", len(nodes))
		}
	}
}

func TestRunMigrationsWritesVersionRow(t *testing.T) {
	db, err := cozo.Open(cozo.Config{Engine: "mem"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = RunMigrations(ctx, db)
	require.NoError(t, err)

	result, err := db.ExecuteQueryNoParams(ctx, "?[version] := *cie_schema_version[id, version], id = 0")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
}

func TestRunMigrationsIsIdempotentAcrossBackends(t *testing.T) {
	var dbs []backend.Database
	cozoDB, err := cozo.Open(cozo.Config{Engine: "mem"})
	require.NoError(t, err)
	defer cozoDB.Close()
	dbs = append(dbs, cozoDB, graphdb.NewMemoryDriver())

	for _, db := range dbs {
		ctx := context.Background()
		_, err := RunMigrations(ctx, db)
		require.NoError(t, err)
		_, err = RunMigrations(ctx, db)
		require.NoError(t, err, "second run against %s must not fail", db.BackendName())
	}
}
