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

// Package migrate bootstraps schema.Relation DDL against either backend:
// single-pass for the Datalog store, two-phase (nodes-before-edges) for
// the graph store, with a version table recording the schema version.
package migrate

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/schema"
	"github.com/kraklabs/cie/pkg/schema/compilers"
)

const schemaVersionRelation = "cie_schema_version"

const currentVersion = 1

// versionDDL declares the tiny key-value table RunMigrations stamps with
// the schema version, mirrored across both dialects.
func versionDDL(backendName string) string {
	if backendName == "graphdb" {
		return fmt.Sprintf("DEFINE TABLE %s SCHEMAFULL;\nDEFINE FIELD version ON %s TYPE int;", schemaVersionRelation, schemaVersionRelation)
	}
	return fmt.Sprintf(":create %s { id: Int default 0 => version: Int default 0 }", schemaVersionRelation)
}

// RunMigrations creates the version table if absent, runs CreateSchema
// (each relation step is idempotent), then upserts the current version
// row. The stored version is not read: every run repeats the full schema
// pass.
func RunMigrations(ctx context.Context, db backend.Database) ([]backend.SchemaCreationResult, error) {
	if _, err := db.TryCreateRelation(ctx, versionDDL(db.BackendName())); err != nil {
		return nil, err
	}

	results, err := CreateSchema(ctx, db)
	if err != nil {
		return nil, err
	}

	row := map[string]any{"id": 0, "version": currentVersion}
	if err := db.UpsertRows(ctx, schemaVersionRelation, []map[string]any{row}); err != nil {
		return nil, err
	}
	return results, nil
}

// CreateSchema creates every relation for db's backend: single pass for
// the Datalog store, nodes before edges for the graph store. A
// schollz/progressbar bar tracks the steps the way long-running CLI work
// gets reported elsewhere in this codebase.
func CreateSchema(ctx context.Context, db backend.Database) ([]backend.SchemaCreationResult, error) {
	if db.BackendName() == "graphdb" {
		return createGraphSchema(ctx, db)
	}
	return createRelationalSchema(ctx, db)
}

func createRelationalSchema(ctx context.Context, db backend.Database) ([]backend.SchemaCreationResult, error) {
	relations := schema.AllRelations()
	bar := progressbar.Default(int64(len(relations)), "bootstrapping relational schema")
	defer bar.Close()

	results := make([]backend.SchemaCreationResult, 0, len(relations))
	for _, r := range relations {
		created, err := db.TryCreateRelation(ctx, compilers.CompileRelational(r))
		if err != nil {
			return nil, err
		}
		results = append(results, backend.SchemaCreationResult{Relation: r.Name, Created: created})
		_ = bar.Add(1)
	}
	return results, nil
}

func createGraphSchema(ctx context.Context, db backend.Database) ([]backend.SchemaCreationResult, error) {
	nodes, edges := schema.AllGraphTables()
	bar := progressbar.Default(int64(len(nodes)+len(edges)), "bootstrapping graph schema")
	defer bar.Close()

	results := make([]backend.SchemaCreationResult, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		created, err := db.TryCreateRelation(ctx, compilers.CompileGraph(n))
		if err != nil {
			return nil, err
		}
		results = append(results, backend.SchemaCreationResult{Relation: n.Name, Created: created})
		_ = bar.Add(1)
	}

	// Edges reference node tables by name, so they must be created only
	// after every node table exists.
	edgeFromTo := map[string][2]string{
		schema.EdgeDefines.Name:   {schema.NodeModule.Name, schema.NodeFunction.Name},
		schema.EdgeHasClause.Name: {schema.NodeFunction.Name, schema.NodeClause.Name},
		schema.EdgeCalls.Name:     {schema.NodeFunction.Name, schema.NodeFunction.Name},
		schema.EdgeHasField.Name:  {schema.NodeModule.Name, schema.NodeField.Name},
	}
	for _, e := range edges {
		ft := edgeFromTo[e.Name]
		created, err := db.TryCreateRelation(ctx, compilers.CompileGraphEdge(e, ft[0], ft[1]))
		if err != nil {
			return nil, err
		}
		results = append(results, backend.SchemaCreationResult{Relation: e.Name, Created: created})
		_ = bar.Add(1)
	}
	return results, nil
}
