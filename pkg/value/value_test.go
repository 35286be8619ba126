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

package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCozoValueExtraction(t *testing.T) {
	v := NewCozoValue(float64(42))
	i, ok := v.AsI64()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	_, ok = v.AsStr()
	assert.False(t, ok, "numeric value should not coerce to string")
}

func TestExtractI64Default(t *testing.T) {
	assert.Equal(t, int64(7), ExtractI64(nil, 7))
	assert.Equal(t, int64(7), ExtractI64(NewCozoValue("not a number"), 7))
	assert.Equal(t, int64(3), ExtractI64(NewCozoValue(float64(3)), 7))
}

func TestGraphValueThingID(t *testing.T) {
	v := NewGraphValue("function:abc123")
	id, ok := v.AsThingID()
	require.True(t, ok)
	s, ok := id.AsStr()
	require.True(t, ok)
	assert.Equal(t, "abc123", s)

	plain := NewGraphValue("no-colon-here")
	_, ok = plain.AsThingID()
	assert.False(t, ok)
}

func TestQueryResultHeaderIndex(t *testing.T) {
	qr := FromGraphRows([]string{"arity", "module", "name"}, [][]any{{1, "M", "f"}})
	assert.Equal(t, 1, qr.HeaderIndex("module"))
	assert.Equal(t, -1, qr.HeaderIndex("missing"))
}

func TestExtractStringArray(t *testing.T) {
	v := NewCozoValue([]any{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, ExtractStringArray(v))
	assert.Nil(t, ExtractStringArray(nil))
}
