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

// Package aggregate is the Go-side finishing step for results neither
// backend's query language can fully express on its own: cycle
// reconstruction by BFS, generated-name filtering, and flat-row grouping
// into nested records.
package aggregate

import (
	"sort"
	"strings"

	"github.com/kraklabs/cie/pkg/queries"
)

// FilterGeneratedNames drops FunctionLocation rows whose Name is
// compiler-generated.
func FilterGeneratedNames(rows []queries.FunctionLocation) []queries.FunctionLocation {
	out := rows[:0:0]
	for _, r := range rows {
		if !queries.IsGeneratedName(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// ResortSearchResults re-sorts by (module, name, line) ascending — used
// after the graph backend drops ORDER BY in the presence of a regex
// filter, so search results stay deterministic regardless of backend.
func ResortSearchResults(rows []queries.FunctionLocation) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Module != rows[j].Module {
			return rows[i].Module < rows[j].Module
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Line < rows[j].Line
	})
}

// FilterGeneratedFunctionSearchResults drops search_functions rows whose
// Name is compiler-generated.
func FilterGeneratedFunctionSearchResults(rows []queries.FunctionSearchResult) []queries.FunctionSearchResult {
	out := rows[:0:0]
	for _, r := range rows {
		if !queries.IsGeneratedName(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// ResortFunctionSearchResults re-sorts search_functions rows by
// (module, name, arity) ascending — used after the graph backend drops
// ORDER BY in the presence of a regex filter.
func ResortFunctionSearchResults(rows []queries.FunctionSearchResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Module != rows[j].Module {
			return rows[i].Module < rows[j].Module
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Arity < rows[j].Arity
	})
}

// GroupStructFields folds flat StructField rows into one StructDefinition
// per module, in first-seen module order with fields in the order they
// arrived.
func GroupStructFields(rows []queries.StructField) []queries.StructDefinition {
	order := []string{}
	byModule := map[string]*queries.StructDefinition{}
	for _, r := range rows {
		def, ok := byModule[r.Module]
		if !ok {
			def = &queries.StructDefinition{Module: r.Module}
			byModule[r.Module] = def
			order = append(order, r.Module)
		}
		def.Fields = append(def.Fields, r)
	}
	out := make([]queries.StructDefinition, 0, len(order))
	for _, m := range order {
		out = append(out, *byModule[m])
	}
	return out
}

// CycleReachability runs BFS from every module over the direct
// module-dependency edges and reports every distinct cycle it finds as an
// ordered slice of module names (the walk back to the starting node).
// Both backends hand this function the same flat edge list — the Datalog
// backend could express transitive closure as mutually-recursive rules,
// but the graph backend has no equivalent, so detection always happens
// here in Go to keep behavior identical on both.
func CycleReachability(edges []queries.CycleEdge) [][]string {
	adj := map[string][]string{}
	for _, e := range edges {
		adj[e.FromModule] = append(adj[e.FromModule], e.ToModule)
	}

	seenCycle := map[string]bool{}
	var cycles [][]string

	var starts []string
	for m := range adj {
		starts = append(starts, m)
	}
	sort.Strings(starts)

	for _, start := range starts {
		visited := map[string]string{start: ""} // node -> parent
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adj[cur] {
				if next == start {
					path := reconstructPath(visited, cur, start)
					key := cycleKey(path)
					if !seenCycle[key] {
						seenCycle[key] = true
						cycles = append(cycles, path)
					}
					continue
				}
				if _, ok := visited[next]; ok {
					continue
				}
				visited[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return cycles
}

func reconstructPath(visited map[string]string, end, start string) []string {
	path := []string{end}
	cur := end
	for cur != start {
		parent := visited[cur]
		if parent == "" {
			break
		}
		path = append([]string{parent}, path...)
		cur = parent
	}
	return path
}

// cycleKey canonicalizes a cycle's rotation so A->B->C->A and B->C->A->B
// are recognized as the same cycle.
func cycleKey(path []string) string {
	nodes := path
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string{}, nodes[minIdx:]...), nodes[:minIdx]...)
	return strings.Join(rotated, "->")
}
