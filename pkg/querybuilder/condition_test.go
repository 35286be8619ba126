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

package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionBuilderEmpty(t *testing.T) {
	cb := NewConditionBuilder()
	assert.False(t, cb.HasConditions())
	assert.Equal(t, "", cb.DatalogClause(true))
	assert.Equal(t, "", cb.GraphWhere())
}

func TestConditionBuilderWithEqSkipsEmptyValue(t *testing.T) {
	cb := NewConditionBuilder()
	cb.WithEq("c", "module", "module", "")
	assert.False(t, cb.HasConditions(), "empty value must not emit a condition")
}

func TestConditionBuilderDatalogAndGraphStayInSync(t *testing.T) {
	cb := NewConditionBuilder()
	cb.WithEq("c", "module", "module", "MyApp.Accounts")
	cb.WithRegex("c", "name", "pattern", "^create.*")

	assert.Equal(t, ", module = $module, regex_matches(name, $pattern)", cb.DatalogClause(true))
	assert.Equal(t, "WHERE c.module = $module AND c.name MATCHES $pattern", cb.GraphWhere())

	params := cb.Params().AsMap()
	assert.Equal(t, "MyApp.Accounts", params["module"])
	assert.Equal(t, "^create.*", params["pattern"])
}

func TestConditionBuilderWithEqIntPresenceFlag(t *testing.T) {
	cb := NewConditionBuilder()
	cb.WithEqInt("c", "arity", "arity", 0, false)
	assert.False(t, cb.HasConditions(), "present=false must skip even a meaningful zero value")

	cb.WithEqInt("c", "arity", "arity", 0, true)
	assert.True(t, cb.HasConditions())
	assert.Equal(t, int64(0), cb.Params().AsMap()["arity"])
}

func TestConditionBuilderWithContains(t *testing.T) {
	cb := NewConditionBuilder()
	cb.WithContains("c", "source", "needle", "Repo.get")
	assert.Equal(t, "str_includes(source, $needle)", cb.DatalogClause(false))
	assert.Equal(t, "WHERE c.source CONTAINS $needle", cb.GraphWhere())
}

func TestConditionBuilderDatalogClauseNoLeadingComma(t *testing.T) {
	cb := NewConditionBuilder()
	cb.WithEq("c", "module", "module", "MyApp")
	assert.Equal(t, "module = $module", cb.DatalogClause(false))
}

func TestConditionBuilderWithPatternTogglesRegex(t *testing.T) {
	eq := NewConditionBuilder()
	eq.WithPattern("c", "name", "name", "run", false)
	assert.Equal(t, "name = $name", eq.DatalogClause(false))

	re := NewConditionBuilder()
	re.WithPattern("c", "name", "name", "^run.*", true)
	assert.Equal(t, "regex_matches(name, $name)", re.DatalogClause(false))
}

func TestOptionalConditionBuilderAbsent(t *testing.T) {
	o := NewOptionalConditionBuilder("c", "arity", "arity").WithLeadingComma()
	assert.Equal(t, "", o.Build(false))
	assert.Equal(t, "", o.BuildWithRegex(false, true))
	assert.Equal(t, "", o.BuildGraph(false, true))
}

func TestOptionalConditionBuilderEqualityOnly(t *testing.T) {
	o := NewOptionalConditionBuilder("c", "arity", "arity").WithLeadingComma()
	assert.Equal(t, ", arity = $arity", o.Build(true))
	// Not marked WithRegex, so useRegex=true still renders equality.
	assert.Equal(t, ", arity = $arity", o.BuildWithRegex(true, true))
	assert.Equal(t, " AND c.arity = $arity", o.BuildGraph(true, true))
}

func TestOptionalConditionBuilderRegexCapable(t *testing.T) {
	o := NewOptionalConditionBuilder("cl", "function_name", "name").WithLeadingComma().WithRegex()
	assert.Equal(t, ", function_name = $name", o.BuildWithRegex(true, false))
	assert.Equal(t, ", regex_matches(function_name, $name)", o.BuildWithRegex(true, true))
	assert.Equal(t, " AND cl.function_name = $name", o.BuildGraph(true, false))
	assert.Equal(t, " AND cl.function_name MATCHES $name", o.BuildGraph(true, true))
}

func TestOptionalConditionBuilderNoLeadingComma(t *testing.T) {
	o := NewOptionalConditionBuilder("c", "arity", "arity")
	assert.Equal(t, "arity = $arity", o.Build(true))
}
