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
	"fmt"
	"strings"

	"github.com/kraklabs/cie/pkg/schema"
)

func graphTypeName(t schema.DataType) string {
	switch t {
	case schema.TString:
		return "string"
	case schema.TInt:
		return "int"
	case schema.TFloat:
		return "float"
	case schema.TBool:
		return "bool"
	case schema.TStringArray:
		return "array<string>"
	default:
		return "string"
	}
}

func graphDefaultLiteral(f schema.Field) string {
	if f.Default == nil {
		return ""
	}
	switch v := f.Default.(type) {
	case string:
		return fmt.Sprintf(" DEFAULT %q", v)
	case bool:
		return fmt.Sprintf(" DEFAULT %t", v)
	case int:
		return fmt.Sprintf(" DEFAULT %d", v)
	case []string:
		if len(v) == 0 {
			return " DEFAULT []"
		}
		return fmt.Sprintf(" DEFAULT %v", v)
	default:
		return fmt.Sprintf(" DEFAULT %v", v)
	}
}

// CompileGraph emits `DEFINE TABLE ... SCHEMAFULL` + per-field
// `DEFINE FIELD` + a unique index on the composite natural key, plus
// secondary indexes on every strict prefix of that key so lookups that
// only supply a leading subset of the key still hit an index.
func CompileGraph(r schema.Relation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DEFINE TABLE %s SCHEMAFULL;\n", r.Name)

	for _, f := range r.AllFields() {
		fmt.Fprintf(&sb, "DEFINE FIELD %s ON %s TYPE %s%s;\n", f.Name, r.Name, graphTypeName(f.Type), graphDefaultLiteral(f))
	}

	if len(r.KeyFields) > 0 {
		names := make([]string, len(r.KeyFields))
		for i, f := range r.KeyFields {
			names[i] = f.Name
		}
		fmt.Fprintf(&sb, "DEFINE INDEX idx_%s_natural_key ON %s FIELDS %s UNIQUE;\n", r.Name, r.Name, strings.Join(names, ", "))

		// Secondary index on every strict, non-empty prefix of the
		// composite key, named by joining the prefix's field names, e.g.
		// idx_clause_module_name_function_name for the first two fields
		// of clause's key.
		for i := 1; i < len(names); i++ {
			prefix := names[:i]
			fmt.Fprintf(&sb, "DEFINE INDEX idx_%s_%s ON %s FIELDS %s;\n", r.Name, strings.Join(prefix, "_"), r.Name, strings.Join(prefix, ", "))
		}
	}

	for _, rel := range r.Relationships {
		fmt.Fprintf(&sb, "DEFINE FIELD %s ON %s TYPE record<%s>;\n", rel.Name, r.Name, rel.TargetRelation)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// CompileGraphEdge emits the DDL for one of the four edge tables, declaring
// each as TYPE RELATION FROM ... TO ... so the graph store enforces
// endpoint types at the schema level.
func CompileGraphEdge(r schema.Relation, fromTable, toTable string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DEFINE TABLE %s SCHEMAFULL TYPE RELATION FROM %s TO %s;\n", r.Name, fromTable, toTable)
	for _, f := range r.ValueFields {
		fmt.Fprintf(&sb, "DEFINE FIELD %s ON %s TYPE %s%s;\n", f.Name, r.Name, graphTypeName(f.Type), graphDefaultLiteral(f))
	}
	fmt.Fprintf(&sb, "DEFINE INDEX idx_%s_in_out ON %s FIELDS in, out UNIQUE;\n", r.Name, r.Name)
	return strings.TrimRight(sb.String(), "\n")
}
