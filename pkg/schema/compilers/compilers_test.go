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

package compilers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cie/pkg/schema"
)

func normalize(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func TestCompileRelationalModules(t *testing.T) {
	got := CompileRelational(schema.Modules)
	want := `:create modules { project: String, name: String => file: String default "", source: String default "unknown" }`
	assert.Equal(t, normalize(want), normalize(got))
}

func TestCompileRelationalDeterministic(t *testing.T) {
	for _, r := range schema.AllRelations() {
		a := CompileRelational(r)
		b := CompileRelational(r)
		assert.Equal(t, a, b, "compiler must be deterministic for %s", r.Name)
	}
}

func TestCompileGraphContainsEveryField(t *testing.T) {
	for _, r := range schema.NodeClause.AllFields() {
		ddl := CompileGraph(schema.NodeClause)
		require.Contains(t, ddl, "DEFINE FIELD "+r.Name+" ON clause")
	}
}

func TestCompileGraphUniqueIndexOnNaturalKey(t *testing.T) {
	ddl := CompileGraph(schema.NodeFunction)
	assert.Contains(t, ddl, "DEFINE INDEX idx_function_natural_key ON function FIELDS module_name, name, arity UNIQUE;")
	assert.Contains(t, ddl, "DEFINE TABLE function SCHEMAFULL;")
}

func TestCompileGraphEdgeRelation(t *testing.T) {
	ddl := CompileGraphEdge(schema.EdgeCalls, "function", "function")
	assert.Contains(t, ddl, "TYPE RELATION FROM function TO function")
	assert.Contains(t, ddl, "DEFINE FIELD call_type ON calls_edge TYPE string DEFAULT \"remote\";")
}
