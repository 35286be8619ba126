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

package main

import (
	"context"
	"fmt"

	"github.com/kraklabs/cie/internal/errors"
	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/backend/cozo"
	"github.com/kraklabs/cie/pkg/backend/graphdb"
)

// openDatabase opens the backend.Database named by cfg.Backend.Name. A
// cozodb data directory is cfg.Backend.DataDir when set, otherwise the
// project-scoped directory from projectDataDir.
func openDatabase(ctx context.Context, cfg *Config, configPath string) (backend.Database, error) {
	switch cfg.Backend.Name {
	case "", "cozodb":
		dataDir := cfg.Backend.DataDir
		if dataDir == "" {
			dir, err := projectDataDir(cfg, configPath)
			if err != nil {
				return nil, err
			}
			dataDir = dir
		}
		db, err := cozo.Open(cozo.Config{Engine: cfg.Backend.Engine, DataDir: dataDir})
		if err != nil {
			return nil, errors.NewDatabaseError(
				"Cannot open local database",
				err.Error(),
				"Check that the data directory is writable",
				err,
			)
		}
		return db, nil

	case "graphdb":
		if cfg.Backend.Endpoint == "" {
			return nil, errors.NewConfigError(
				"Missing graph store endpoint",
				"backend.endpoint is required when backend.name is \"graphdb\"",
				"Set backend.endpoint in .cie/project.yaml, e.g. ws://127.0.0.1:8000/rpc",
				nil,
			)
		}
		db, err := graphdb.Dial(graphdb.Config{
			Endpoint:  cfg.Backend.Endpoint,
			Namespace: cfg.Backend.Namespace,
			Database:  cfg.Backend.Database,
			Username:  cfg.Backend.Username,
			Password:  cfg.Backend.Password,
		}, graphdb.NewSurrealClient)
		if err != nil {
			return nil, errors.NewNetworkError(
				"Cannot connect to graph store",
				err.Error(),
				fmt.Sprintf("Check that a graph store is reachable at %s", cfg.Backend.Endpoint),
				err,
			)
		}
		if err := db.SetupBackend(ctx); err != nil {
			return nil, errors.NewDatabaseError(
				"Cannot select graph namespace/database",
				err.Error(),
				"Check backend.namespace and backend.database in .cie/project.yaml",
				err,
			)
		}
		return db, nil

	default:
		return nil, errors.NewConfigError(
			"Unknown backend",
			fmt.Sprintf("backend.name %q is not recognized", cfg.Backend.Name),
			`Set backend.name to "cozodb" or "graphdb" in .cie/project.yaml`,
			nil,
		)
	}
}
