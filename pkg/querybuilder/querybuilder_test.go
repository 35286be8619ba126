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
	"github.com/stretchr/testify/require"
)

func TestCompileDispatchesOnBackendName(t *testing.T) {
	called := ""
	c := BackendCompiler{
		Datalog: func() (CompiledQuery, error) {
			called = "datalog"
			return CompiledQuery{Script: "?[x]"}, nil
		},
		Graph: func() (CompiledQuery, error) {
			called = "graph"
			return CompiledQuery{Script: "SELECT x"}, nil
		},
	}

	_, err := Compile("cozodb", c)
	require.NoError(t, err)
	assert.Equal(t, "datalog", called)

	_, err = Compile("graphdb", c)
	require.NoError(t, err)
	assert.Equal(t, "graph", called)
}

func TestCompileRejectsUnknownBackend(t *testing.T) {
	_, err := Compile("made-up-backend", BackendCompiler{
		Datalog: func() (CompiledQuery, error) { return CompiledQuery{}, nil },
		Graph:   func() (CompiledQuery, error) { return CompiledQuery{}, nil },
	})
	assert.Error(t, err)
}

func TestValidateLimit(t *testing.T) {
	assert.NoError(t, ValidateLimit(0))
	assert.NoError(t, ValidateLimit(50))
	assert.Error(t, ValidateLimit(-1))
}

func TestValidateRegexPatterns(t *testing.T) {
	assert.NoError(t, ValidateRegexPatterns(""))
	assert.NoError(t, ValidateRegexPatterns("^create.*"))
	assert.Error(t, ValidateRegexPatterns("(unterminated"))
}
