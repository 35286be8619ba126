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

package queries

import (
	"context"

	"github.com/kraklabs/cie/pkg/backend"
)

// ModuleClusters groups modules into densely-interlinked clusters by
// running union-find over the direct module dependency edges: connected
// components over the module call graph, not just cycle detection. Like
// cycle detection, this always finishes in Go: neither dialect expresses
// connected components as a single query.
type ModuleClusters struct {
	Project  string
	MinEdges int64
}

func (q ModuleClusters) Run(ctx context.Context, db backend.Database) ([]ModuleCluster, error) {
	edges, err := (ModuleDependencyEdges{Project: q.Project}).Run(ctx, db)
	if err != nil {
		return nil, err
	}

	parent := map[string]string{}
	find := func(x string) string {
		for parent[x] != x {
			x = parent[x]
		}
		return x
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	ensure := func(m string) {
		if _, ok := parent[m]; !ok {
			parent[m] = m
		}
	}

	edgeCount := map[[2]string]int64{}
	for _, e := range edges {
		ensure(e.FromModule)
		ensure(e.ToModule)
		union(e.FromModule, e.ToModule)
		edgeCount[[2]string{e.FromModule, e.ToModule}]++
	}

	groups := map[string][]string{}
	for m := range parent {
		root := find(m)
		groups[root] = append(groups[root], m)
	}

	groupEdges := map[string]int64{}
	for key, n := range edgeCount {
		root := find(key[0])
		groupEdges[root] += n
	}

	out := make([]ModuleCluster, 0, len(groups))
	for root, members := range groups {
		if len(members) < 2 {
			continue
		}
		if groupEdges[root] < q.MinEdges {
			continue
		}
		sortStringsStable(members)
		out = append(out, ModuleCluster{Modules: members, EdgeCount: groupEdges[root]})
	}
	less := func(a, b ModuleCluster) bool {
		if len(a.Modules) != len(b.Modules) {
			return len(a.Modules) > len(b.Modules)
		}
		return a.Modules[0] < b.Modules[0]
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func sortStringsStable(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
