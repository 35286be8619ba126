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
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cie/internal/errors"
	"github.com/kraklabs/cie/internal/ui"
	"github.com/kraklabs/cie/pkg/migrate"
)

// runInit creates .cie/project.yaml. It refuses to overwrite an existing
// file unless --force is given.
func runInit(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	projectID := fs.String("project-id", "", "project identifier (default: current directory name)")
	backendName := fs.String("backend", "cozodb", `"cozodb" or "graphdb"`)
	force := fs.Bool("force", false, "overwrite an existing configuration")
	if err := fs.Parse(args); err != nil {
		errors.FatalError(err, globals.JSON)
	}

	path := configPath
	if path == "" {
		path = ConfigPath(".")
	}

	if _, err := os.Stat(path); err == nil && !*force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists", path),
			"Pass --force to overwrite it",
		), globals.JSON)
	}

	id := *projectID
	if id == "" {
		wd, err := os.Getwd()
		if err != nil {
			errors.FatalError(errors.NewInternalError("Cannot determine project id", err.Error(), "Pass --project-id explicitly", err), globals.JSON)
		}
		id = wd[strippedLastSlash(wd):]
	}

	cfg := DefaultConfig(id)
	cfg.Backend.Name = *backendName

	if err := SaveConfig(cfg, path); err != nil {
		errors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		_ = ui.PrintJSON(map[string]any{"config_path": path, "project_id": id, "backend": cfg.Backend.Name})
		return
	}
	fmt.Printf("Created %s (project %q, backend %q)\n", path, id, cfg.Backend.Name)
}

func strippedLastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i + 1
		}
	}
	return 0
}

// runMigrate opens the configured backend and bootstraps its schema.
func runMigrate(ctx context.Context, args []string, configPath string, globals GlobalFlags) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	db, err := openDatabase(ctx, cfg, configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	defer db.Close()

	results, err := migrate.RunMigrations(ctx, db)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("Schema migration failed", err.Error(), "Check the backend is reachable and writable", err), globals.JSON)
	}

	if globals.JSON {
		_ = ui.PrintJSON(results)
		return
	}
	for _, r := range results {
		status := "already present"
		if r.Created {
			status = "created"
		}
		fmt.Printf("%-30s %s\n", r.Relation, status)
	}
}

// runStatus reports the resolved configuration and whether its backend is
// reachable, without requiring the schema to already exist.
func runStatus(ctx context.Context, args []string, configPath string, globals GlobalFlags) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	db, dialErr := openDatabase(ctx, cfg, configPath)
	reachable := dialErr == nil
	if db != nil {
		defer db.Close()
	}

	status := map[string]any{
		"project_id": cfg.ProjectID,
		"backend":    cfg.Backend.Name,
		"reachable":  reachable,
	}
	if globals.JSON {
		_ = ui.PrintJSON(status)
		return
	}
	fmt.Printf("project:   %s\n", cfg.ProjectID)
	fmt.Printf("backend:   %s\n", cfg.Backend.Name)
	fmt.Printf("reachable: %v\n", reachable)
	if !reachable {
		ui.Warn("backend unreachable: %v", dialErr)
	}
}
