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

// Package compilers emits concrete DDL for both backends from the single
// schema.Relation model: hand-written CozoScript `:create` statements for
// the relational side, and SurrealQL DEFINE TABLE/FIELD/INDEX statements
// for the graph side.
package compilers

import (
	"fmt"
	"strings"

	"github.com/kraklabs/cie/pkg/schema"
)

func cozoTypeName(t schema.DataType) string {
	switch t {
	case schema.TString:
		return "String"
	case schema.TInt:
		return "Int"
	case schema.TFloat:
		return "Float"
	case schema.TBool:
		return "Bool"
	case schema.TStringArray:
		return "[String]"
	default:
		return "String"
	}
}

func cozoDefaultLiteral(f schema.Field) string {
	if f.Default == nil {
		return ""
	}
	switch v := f.Default.(type) {
	case string:
		return fmt.Sprintf(" default %q", v)
	case bool:
		return fmt.Sprintf(" default %t", v)
	case int:
		return fmt.Sprintf(" default %d", v)
	case []string:
		return fmt.Sprintf(" default %v", v)
	default:
		return fmt.Sprintf(" default %v", v)
	}
}

// CompileRelational emits `:create <name> { key => value }` CozoScript for
// one relation, the Datalog backend's DDL primitive.
func CompileRelational(r schema.Relation) string {
	var keys, vals []string
	for _, f := range r.KeyFields {
		keys = append(keys, fmt.Sprintf("%s: %s", f.Name, cozoTypeName(f.Type)))
	}
	for _, f := range r.ValueFields {
		vals = append(vals, fmt.Sprintf("%s: %s%s", f.Name, cozoTypeName(f.Type), cozoDefaultLiteral(f)))
	}
	body := strings.Join(keys, ", ")
	if len(vals) > 0 {
		body += " => " + strings.Join(vals, ", ")
	} else {
		body += " =>"
	}
	return fmt.Sprintf(":create %s { %s }", r.Name, body)
}
