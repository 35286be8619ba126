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

import "strings"

// generatedPrefixes is the fixed list of compiler-synthesized name
// prefixes neither backend stores as a flag, so filtering them out of a
// result always happens here in Go rather than in either query language.
var generatedPrefixes = []string{
	"__struct__",
	"__info__",
	"__protocol__",
	"__impl__",
	"__using__",
	"__before_compile__",
	"__after_compile__",
	"__on_definition__",
	"__deriving__",
	"__changeset__",
	"__schema__",
	"__meta__",
}

// IsGeneratedName reports whether name carries one of the fixed
// compiler-synthesized prefixes.
func IsGeneratedName(name string) bool {
	for _, p := range generatedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
