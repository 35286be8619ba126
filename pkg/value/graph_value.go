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

import "strings"

// GraphValue wraps a single cell decoded from the graph backend's JSON
// result set. Record IDs come back as "table:id" strings; AsThingID peels
// the table prefix off so callers get the bare identifier the way CozoDB's
// String-typed natural keys already look.
type GraphValue struct {
	Raw any
}

func NewGraphValue(raw any) GraphValue { return GraphValue{Raw: raw} }

func (v GraphValue) AsStr() (string, bool) {
	s, ok := v.Raw.(string)
	return s, ok
}

func (v GraphValue) AsI64() (int64, bool) {
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

func (v GraphValue) AsF64() (float64, bool) {
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

func (v GraphValue) AsBool() (bool, bool) {
	b, ok := v.Raw.(bool)
	return b, ok
}

func (v GraphValue) AsArray() ([]Value, bool) {
	arr, ok := v.Raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = NewGraphValue(e)
	}
	return out, true
}

func (v GraphValue) AsThingID() (Value, bool) {
	s, ok := v.Raw.(string)
	if !ok {
		return v, false
	}
	_, id, found := strings.Cut(s, ":")
	if !found {
		return v, false
	}
	return NewGraphValue(id), true
}

// GraphRow indexes into one decoded graph-backend result row.
type GraphRow struct {
	Cells []any
}

func (r GraphRow) Get(i int) (Value, bool) {
	if i < 0 || i >= len(r.Cells) {
		return nil, false
	}
	return NewGraphValue(r.Cells[i]), true
}

func (r GraphRow) Len() int      { return len(r.Cells) }
func (r GraphRow) IsEmpty() bool { return len(r.Cells) == 0 }

// FromGraphRows converts a decoded graph-backend result into a
// backend-neutral QueryResult. Headers are whatever order the backend
// returned them in — for the graph backend that's alphabetical regardless
// of SELECT order, which is exactly why decoders must look these up by name.
func FromGraphRows(headers []string, rows [][]any) QueryResult {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = GraphRow{Cells: r}
	}
	return QueryResult{Headers: headers, Rows: out}
}
