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

// CozoValue wraps a single `any` decoded from CozoDB's JSON result rows
// (see pkg/cozodb.NamedRows.Rows [][]any): string, float64, bool, []any, or
// nil. CozoDB has no record-id concept, so AsThingID is a no-op pass-through.
type CozoValue struct {
	Raw any
}

func NewCozoValue(raw any) CozoValue { return CozoValue{Raw: raw} }

func (v CozoValue) AsStr() (string, bool) {
	s, ok := v.Raw.(string)
	return s, ok
}

func (v CozoValue) AsI64() (int64, bool) {
	switch n := v.Raw.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func (v CozoValue) AsF64() (float64, bool) {
	switch n := v.Raw.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (v CozoValue) AsBool() (bool, bool) {
	b, ok := v.Raw.(bool)
	return b, ok
}

func (v CozoValue) AsArray() ([]Value, bool) {
	arr, ok := v.Raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = NewCozoValue(e)
	}
	return out, true
}

func (v CozoValue) AsThingID() (Value, bool) {
	return v, false
}

// CozoRow indexes into one decoded CozoDB result row.
type CozoRow struct {
	Cells []any
}

func (r CozoRow) Get(i int) (Value, bool) {
	if i < 0 || i >= len(r.Cells) {
		return nil, false
	}
	return NewCozoValue(r.Cells[i]), true
}

func (r CozoRow) Len() int      { return len(r.Cells) }
func (r CozoRow) IsEmpty() bool { return len(r.Cells) == 0 }

// FromCozoRows converts raw CozoDB headers/rows into a backend-neutral
// QueryResult.
func FromCozoRows(headers []string, rows [][]any) QueryResult {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = CozoRow{Cells: r}
	}
	return QueryResult{Headers: headers, Rows: out}
}
