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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/backend/cozo"
	"github.com/kraklabs/cie/pkg/backend/graphdb"
	"github.com/kraklabs/cie/pkg/fixtures"
	"github.com/kraklabs/cie/pkg/migrate"
)

func sortCalls(cs []Call) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CallerModule != cs[j].CallerModule {
			return cs[i].CallerModule < cs[j].CallerModule
		}
		return cs[i].CalleeModule < cs[j].CalleeModule
	})
}

func sortCycleEdges(es []CycleEdge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].FromModule != es[j].FromModule {
			return es[i].FromModule < es[j].FromModule
		}
		return es[i].ToModule < es[j].ToModule
	})
}

func TestSearchFunctionsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		results, err := (Search{Project: fixtures.Project, Pattern: "run", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		assert.Len(t, results, 3, db.BackendName())
	}
}

func TestCallsFromParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.A", Name: "run", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		sortCalls(calls)
		require.Len(t, calls, 2, db.BackendName())
		assert.Equal(t, "MyApp.B", calls[0].CalleeModule, db.BackendName())
		assert.Equal(t, "MyApp.C", calls[1].CalleeModule, db.BackendName())
	}
}

func TestCallsFromAttributesCallToIssuingClause(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.B", Name: "run_recover", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, calls, 1, db.BackendName())
		assert.Equal(t, "MyApp.C", calls[0].CalleeModule, db.BackendName())
		assert.Equal(t, "run_recover", calls[0].CallerName, db.BackendName())
		assert.Equal(t, int64(20), calls[0].CallerStartLine, db.BackendName())
		assert.Equal(t, int64(39), calls[0].CallerEndLine, db.BackendName())
	}
}

func TestCallsFromExcludesStructReferences(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.A", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		for _, c := range calls {
			assert.NotEqual(t, "%", c.CalleeFunction, db.BackendName())
		}
	}
}

func TestCallsFromFiltersByArity(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.A", HasArity: true, Arity: 0, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, calls, 2, db.BackendName())

		none, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.A", HasArity: true, Arity: 3, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		assert.Empty(t, none, db.BackendName())
	}
}

func TestCallsFromRegexNameFilter(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsFrom{Project: fixtures.Project, Module: "MyApp.B", Name: "^run_.*", UseRegex: true, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, calls, 1, db.BackendName())
		assert.Equal(t, "run_recover", calls[0].CallerName, db.BackendName())
	}
}

func TestCallsToParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (CallsTo{Project: fixtures.Project, Module: "MyApp.C", Name: "run", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, calls, 2, db.BackendName())
	}
}

func TestModuleDependencyEdgesParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		edges, err := (ModuleDependencyEdges{Project: fixtures.Project}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		sortCycleEdges(edges)
		require.Len(t, edges, 3, db.BackendName())
		assert.Equal(t, CycleEdge{FromModule: "MyApp.A", ToModule: "MyApp.B"}, edges[0], db.BackendName())
	}
}

func TestHotspotsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		hotspots, err := (Hotspots{Project: fixtures.Project, Kind: HotspotIncoming, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.NotEmpty(t, hotspots, db.BackendName())
		assert.Equal(t, "MyApp.C", hotspots[0].Module, db.BackendName())
		assert.Equal(t, int64(2), hotspots[0].Incoming, db.BackendName())
	}
}

func TestHotspotsRatioSentinelForZeroOutgoing(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		hotspots, err := (Hotspots{Project: fixtures.Project, Kind: HotspotRatio, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		for _, h := range hotspots {
			if h.Module == "MyApp.C" {
				assert.Equal(t, 9999.0, h.Ratio, db.BackendName())
			}
		}
	}
}

func TestModuleClustersParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphComplex()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		clusters, err := (ModuleClusters{Project: fixtures.Project}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, clusters, 1, db.BackendName())
		assert.Len(t, clusters[0].Modules, 9, db.BackendName())
	}
}

func TestSpecsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.SpecsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		specs, err := (Specs{Project: fixtures.Project, Module: "MyApp.Accounts", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, specs, 2, db.BackendName())
	}
}

func TestSpecsFilteredByNameParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.SpecsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		specs, err := (Specs{Project: fixtures.Project, Module: "MyApp.Accounts", Name: "create", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, specs, 2, db.BackendName())
	}
}

func TestAcceptsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.AcceptsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		entries, err := (Accepts{Project: fixtures.Project, TypePattern: "map", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, entries, 1, db.BackendName())
		assert.Equal(t, "parse_map", entries[0].Name, db.BackendName())
	}
}

func TestTypesParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.TypeSignaturesDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		types, err := (Types{Project: fixtures.Project, Module: "MyApp.Accounts", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, types, 2, db.BackendName())
	}
}

func TestLargeFunctionsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.LargeFunctionsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		large, err := (LargeFunctions{Project: fixtures.Project, MinLines: 50, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, large, 1, db.BackendName())
		assert.Equal(t, "large", large[0].Name, db.BackendName())
	}
}

func TestManyClausesQueryParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.ManyClausesDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		many, err := (ManyClausesQuery{Project: fixtures.Project, MinClauses: 2, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, many, 1, db.BackendName())
		assert.Equal(t, "dispatch", many[0].Name, db.BackendName())
		assert.Equal(t, int64(5), many[0].ClauseCount, db.BackendName())
	}
}

func TestModuleFileLookupParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		files, err := (ModuleFileLookup{Project: fixtures.Project, Module: "MyApp.A"}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, files, 1, db.BackendName())
		assert.Equal(t, "MyApp.A.ex", files[0].File, db.BackendName())
	}
}

func TestComplexityRankingParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.LargeFunctionsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		ranked, err := (ComplexityRanking{Project: fixtures.Project, Module: "MyApp.Worker", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, ranked, 3, db.BackendName())
		assert.Equal(t, "large", ranked[0].Name, db.BackendName())
		assert.Equal(t, int64(11), ranked[0].Complexity, db.BackendName())
	}
}

func TestLocateParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.SpecsDB()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		locations, err := (Locate{Project: fixtures.Project, Module: "MyApp.Accounts", Name: "create"}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, locations, 2, db.BackendName())
		assert.Equal(t, int64(1), locations[0].Arity, db.BackendName())
		assert.Equal(t, int64(2), locations[1].Arity, db.BackendName())
	}
}

func TestModuleConnectivityParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		calls, err := (ModuleConnectivity{Project: fixtures.Project, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, calls, 3, db.BackendName())
		for _, c := range calls {
			assert.Equal(t, int64(1), c.CallCount, db.BackendName())
		}
	}
}

// structsFixture seeds a struct_fields/field scenario directly rather
// than through pkg/fixtures, since no existing scenario there covers this
// relation.
func structsFixture(t *testing.T) (backend.Database, backend.Database) {
	t.Helper()
	ctx := context.Background()

	cozoDB, err := cozo.Open(cozo.Config{Engine: "mem"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cozoDB.Close() })
	_, err = migrate.CreateSchema(ctx, cozoDB)
	require.NoError(t, err)
	require.NoError(t, cozoDB.InsertRows(ctx, "struct_fields", []map[string]any{
		{"project": fixtures.Project, "module": "MyApp.Account", "field": "id", "default_value": "", "required": true, "inferred_type": "integer()"},
		{"project": fixtures.Project, "module": "MyApp.Account", "field": "name", "default_value": "", "required": false, "inferred_type": "String.t()"},
	}))

	graphDB := graphdb.NewMemoryDriver()
	_, err = migrate.CreateSchema(ctx, graphDB)
	require.NoError(t, err)
	require.NoError(t, graphDB.InsertRows(ctx, "field", []map[string]any{
		{"module_name": "MyApp.Account", "name": "id", "default_value": "", "required": true, "inferred_type": "integer()"},
		{"module_name": "MyApp.Account", "name": "name", "default_value": "", "required": false, "inferred_type": "String.t()"},
	}))

	return cozoDB, graphDB
}

func TestSearchModulesParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		mods, err := (SearchModules{Project: fixtures.Project, Pattern: "^MyApp\\.", UseRegex: true, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, mods, 3, db.BackendName())
		assert.Equal(t, "MyApp.A", mods[0].Name, db.BackendName())
		assert.Equal(t, "MyApp.B", mods[1].Name, db.BackendName())
		assert.Equal(t, "MyApp.C", mods[2].Name, db.BackendName())
	}
}

func TestUnusedFunctionsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	// Only MyApp.A/run is never a callee in CallGraphSimple's edge set
	// (A -> B, B -> C, A -> C): B and C are both reachable as callees.
	for _, db := range []backend.Database{cozoDB, graphDB} {
		unused, err := (UnusedFunctions{Project: fixtures.Project, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, unused, 1, db.BackendName())
		assert.Equal(t, "MyApp.A", unused[0].Module, db.BackendName())
	}
}

func TestUnusedFunctionsPrivateOnlyExcludesPublicMatches(t *testing.T) {
	cozoDB, graphDB, err := fixtures.CallGraphSimple()
	require.NoError(t, err)

	// Every seeded clause is kind "def" (public), so PrivateOnly must
	// filter the whole result set away.
	for _, db := range []backend.Database{cozoDB, graphDB} {
		unused, err := (UnusedFunctions{Project: fixtures.Project, PrivateOnly: true, Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		assert.Empty(t, unused, db.BackendName())
	}
}

func TestStructsParityAcrossBackends(t *testing.T) {
	cozoDB, graphDB := structsFixture(t)

	for _, db := range []backend.Database{cozoDB, graphDB} {
		fields, err := (Structs{Project: fixtures.Project, Module: "MyApp.Account", Limit: 10}).Run(context.Background(), db)
		require.NoError(t, err, db.BackendName())
		require.Len(t, fields, 2, db.BackendName())
	}
}
