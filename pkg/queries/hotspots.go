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
	"github.com/kraklabs/cie/pkg/querybuilder"
	"github.com/kraklabs/cie/pkg/value"
)

// HotspotKind selects which call-graph centrality score Hotspots ranks by.
type HotspotKind int

const (
	HotspotIncoming HotspotKind = iota
	HotspotOutgoing
	HotspotTotal
	HotspotRatio
)

// Hotspots ranks functions by incoming/outgoing/total call count or by
// their incoming:outgoing ratio. Incoming and outgoing counts come from
// two independent grouped counts — one per direction — merged by
// (module, name, arity) in Go rather than joined in the query itself. The
// ratio sentinel (9999.0 instead of +Inf, for a stable descending sort)
// is always finished in Go.
type Hotspots struct {
	Project string
	Kind    HotspotKind
	Limit   int
}

func (q Hotspots) Run(ctx context.Context, db backend.Database) ([]Hotspot, error) {
	if err := querybuilder.ValidateLimit(q.Limit); err != nil {
		return nil, err
	}

	incoming, err := querybuilder.Run(ctx, db, hotspotCounts{project: q.Project, direction: "incoming"})
	if err != nil {
		return nil, err
	}
	outgoing, err := querybuilder.Run(ctx, db, hotspotCounts{project: q.Project, direction: "outgoing"})
	if err != nil {
		return nil, err
	}

	type key struct {
		module, name string
		arity        int64
	}
	merged := map[key]*Hotspot{}
	order := []key{}
	for _, c := range incoming {
		k := key{c.Module, c.Name, c.Arity}
		if _, ok := merged[k]; !ok {
			order = append(order, k)
			merged[k] = &Hotspot{Module: c.Module, Name: c.Name, Arity: c.Arity}
		}
		merged[k].Incoming += c.count
	}
	for _, c := range outgoing {
		k := key{c.Module, c.Name, c.Arity}
		if _, ok := merged[k]; !ok {
			order = append(order, k)
			merged[k] = &Hotspot{Module: c.Module, Name: c.Name, Arity: c.Arity}
		}
		merged[k].Outgoing += c.count
	}

	out := make([]Hotspot, 0, len(order))
	for _, k := range order {
		h := merged[k]
		h.Total = h.Incoming + h.Outgoing
		h.Ratio = 9999.0
		if h.Outgoing != 0 {
			h.Ratio = float64(h.Incoming) / float64(h.Outgoing)
		}
		out = append(out, *h)
	}

	sortHotspots(out, q.Kind)
	if q.Limit >= 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortHotspots(hs []Hotspot, kind HotspotKind) {
	key := func(h Hotspot) float64 {
		switch kind {
		case HotspotIncoming:
			return float64(h.Incoming)
		case HotspotOutgoing:
			return float64(h.Outgoing)
		case HotspotTotal:
			return float64(h.Total)
		default:
			return h.Ratio
		}
	}
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && key(hs[j-1]) < key(hs[j]); j-- {
			hs[j-1], hs[j] = hs[j], hs[j-1]
		}
	}
}

// hotspotCounts is the inner grouped-count query Hotspots issues twice,
// once per call direction.
type hotspotCounts struct {
	project   string
	direction string
}

type functionCount struct {
	Module string
	Name   string
	Arity  int64
	count  int64
}

func (q hotspotCounts) Compile(backendName string) (querybuilder.CompiledQuery, error) {
	return querybuilder.Compile(backendName, querybuilder.BackendCompiler{
		Datalog: q.compileDatalog,
		Graph:   q.compileGraph,
	})
}

func (q hotspotCounts) compileDatalog() (querybuilder.CompiledQuery, error) {
	var script string
	if q.direction == "incoming" {
		script = `?[module, name, arity, count(r)] :=
	*calls[project, r, cf, module, name, arity, _f, _l, _c, _ct, ...], project = $project,
	name != "%"
:group module, name, arity`
	} else {
		// calls carries no caller arity directly, so the outgoing count
		// resolves it by joining back to functions on (module, name).
		script = `?[module, name, arity, count(r)] :=
	*calls[project, module, name, r, tf, ta, _f, _l, _c, _ct, ...], project = $project,
	tf != "%",
	*functions[project, module, name, arity, ...]
:group module, name, arity`
	}
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams().WithStr("project", q.project)}, nil
}

func (q hotspotCounts) compileGraph() (querybuilder.CompiledQuery, error) {
	var script string
	if q.direction == "incoming" {
		script = `SELECT ce.callee_module AS module, ce.callee_function AS name, ce.callee_arity AS arity, count() AS cnt
FROM calls_edge AS ce
WHERE ce.callee_function != '%'
GROUP BY module, name, arity`
	} else {
		script = `SELECT ce.caller_module AS module, ce.caller_function AS name, f.arity AS arity, count() AS cnt
FROM calls_edge AS ce, function AS f
WHERE ce.caller_module = f.module_name AND ce.caller_function = f.name AND ce.callee_function != '%'
GROUP BY module, name, arity`
	}
	return querybuilder.CompiledQuery{Script: script, Params: backend.NewQueryParams()}, nil
}

func (q hotspotCounts) Decode(result value.QueryResult) ([]functionCount, error) {
	idx := func(name string) int { return result.HeaderIndex(name) }
	modIdx, nameIdx, arIdx := idx("module"), idx("name"), idx("arity")
	cntIdx := idx("cnt")
	if cntIdx < 0 {
		cntIdx = idx("count(r)")
	}
	out := make([]functionCount, 0, len(result.Rows))
	for _, row := range result.Rows {
		get := func(i int) value.Value { v, _ := value.ColAt(row, i); return v }
		out = append(out, functionCount{
			Module: value.ExtractStringOr(get(modIdx), ""),
			Name:   value.ExtractStringOr(get(nameIdx), ""),
			Arity:  value.ExtractI64(get(arIdx), 0),
			count:  value.ExtractI64(get(cntIdx), 0),
		})
	}
	return out, nil
}
