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
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// surrealClient adapts github.com/surrealdb/surrealdb.go's *surrealdb.DB to
// the narrow client interface the reactor in driver.go depends on. All of
// this package's exposure to that SDK's concrete API is confined to this
// one file.
type surrealClient struct {
	db *surrealdb.DB
}

// NewSurrealClient dials a running graph store and signs in, returning a
// client ready for Dial to wrap in the reactor goroutine.
func NewSurrealClient(cfg Config) (client, error) {
	db, err := surrealdb.New(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Endpoint, err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(&surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}

	return &surrealClient{db: db}, nil
}

func (c *surrealClient) Use(ns, database string) error {
	return c.db.Use(ns, database)
}

func (c *surrealClient) Query(sql string, vars map[string]any) ([]surrealQueryResult, error) {
	results, err := surrealdb.Query[[]map[string]any](c.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil {
		return nil, fmt.Errorf("unexpected response shape from graph store")
	}

	out := make([]surrealQueryResult, 0, len(*results))
	for _, r := range *results {
		rows := r.Result
		if rows == nil {
			rows = []map[string]any{}
		}
		out = append(out, surrealQueryResult{Status: r.Status, Result: rows})
	}
	return out, nil
}

func (c *surrealClient) Close() error {
	c.db.Close()
	return nil
}
