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

package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/queries"
)

func TestIsGeneratedName(t *testing.T) {
	assert.True(t, queries.IsGeneratedName("__struct__"))
	assert.True(t, queries.IsGeneratedName("__changeset__validate"))
	assert.False(t, queries.IsGeneratedName("create_account"))
}

func TestFilterGeneratedNames(t *testing.T) {
	in := []queries.FunctionLocation{
		{Module: "M", Name: "__struct__", Arity: 0},
		{Module: "M", Name: "create", Arity: 1},
		{Module: "M", Name: "__impl__helper", Arity: 0},
	}
	out := FilterGeneratedNames(in)
	require.Len(t, out, 1)
	assert.Equal(t, "create", out[0].Name)
}

func TestFilterGeneratedNamesDoesNotMutateInput(t *testing.T) {
	in := []queries.FunctionLocation{
		{Module: "M", Name: "__struct__"},
		{Module: "M", Name: "create"},
	}
	_ = FilterGeneratedNames(in)
	require.Len(t, in, 2, "filtering must not shrink the caller's backing slice")
}

func TestResortSearchResults(t *testing.T) {
	rows := []queries.FunctionLocation{
		{Module: "B", Name: "z", Line: 5},
		{Module: "A", Name: "b", Line: 20},
		{Module: "A", Name: "b", Line: 10},
		{Module: "A", Name: "a", Line: 1},
	}
	ResortSearchResults(rows)
	assert.Equal(t, []queries.FunctionLocation{
		{Module: "A", Name: "a", Line: 1},
		{Module: "A", Name: "b", Line: 10},
		{Module: "A", Name: "b", Line: 20},
		{Module: "B", Name: "z", Line: 5},
	}, rows)
}

func TestGroupStructFields(t *testing.T) {
	rows := []queries.StructField{
		{Module: "MyApp.User", Field: "id"},
		{Module: "MyApp.Post", Field: "title"},
		{Module: "MyApp.User", Field: "name"},
	}
	defs := GroupStructFields(rows)
	require.Len(t, defs, 2)
	assert.Equal(t, "MyApp.User", defs[0].Module, "first-seen module order must be preserved")
	assert.Equal(t, []queries.StructField{
		{Module: "MyApp.User", Field: "id"},
		{Module: "MyApp.User", Field: "name"},
	}, defs[0].Fields)
	assert.Equal(t, "MyApp.Post", defs[1].Module)
}

func TestGroupStructFieldsEmpty(t *testing.T) {
	assert.Empty(t, GroupStructFields(nil))
}

func TestCycleReachabilitySingleCycle(t *testing.T) {
	edges := []queries.CycleEdge{
		{FromModule: "A", ToModule: "B"},
		{FromModule: "B", ToModule: "C"},
		{FromModule: "C", ToModule: "A"},
	}
	cycles := CycleReachability(edges)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "C"}, cycles[0])
}

func TestCycleReachabilityNoCycle(t *testing.T) {
	edges := []queries.CycleEdge{
		{FromModule: "A", ToModule: "B"},
		{FromModule: "B", ToModule: "C"},
	}
	assert.Empty(t, CycleReachability(edges))
}

func TestCycleReachabilityDedupesRotations(t *testing.T) {
	// The same triangle discovered from two different BFS start nodes must
	// collapse to one reported cycle.
	edges := []queries.CycleEdge{
		{FromModule: "A", ToModule: "B"},
		{FromModule: "B", ToModule: "C"},
		{FromModule: "C", ToModule: "A"},
		{FromModule: "B", ToModule: "D"},
		{FromModule: "D", ToModule: "B"},
	}
	cycles := CycleReachability(edges)
	assert.Len(t, cycles, 2)
}
