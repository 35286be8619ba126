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
	"fmt"
	"strings"

	"github.com/kraklabs/cie/pkg/backend"
)

// ConditionBuilder assembles a comma/AND-joined condition fragment and its
// bound parameters together, so a query's filter list and its parameter
// bag never drift apart — every pkg/queries filter is optional, so this
// only emits text for conditions that are actually present.
type ConditionBuilder struct {
	datalog []string // "field = $name" fragments, joined with ", "
	graph   []string // "alias.field = $name" fragments, joined with " AND "
	params  backend.QueryParams
}

func NewConditionBuilder() *ConditionBuilder {
	return &ConditionBuilder{params: backend.NewQueryParams()}
}

// WithRegex adds a regex-match condition present in both dialects:
// CozoScript's `regex_matches(field, $name)` and the graph backend's
// `field MATCHES $name`.
func (c *ConditionBuilder) WithRegex(graphAlias, field, paramName, pattern string) *ConditionBuilder {
	if pattern == "" {
		return c
	}
	c.datalog = append(c.datalog, fmt.Sprintf("regex_matches(%s, $%s)", field, paramName))
	c.graph = append(c.graph, fmt.Sprintf("%s.%s MATCHES $%s", graphAlias, field, paramName))
	c.params = c.params.WithStr(paramName, pattern)
	return c
}

// WithEq adds an equality condition, skipped entirely when value is empty
// — the "optional condition" most queries filter by (module, project, ...).
func (c *ConditionBuilder) WithEq(graphAlias, field, paramName, value string) *ConditionBuilder {
	if value == "" {
		return c
	}
	c.datalog = append(c.datalog, fmt.Sprintf("%s = $%s", field, paramName))
	c.graph = append(c.graph, fmt.Sprintf("%s.%s = $%s", graphAlias, field, paramName))
	c.params = c.params.WithStr(paramName, value)
	return c
}

// WithEqInt mirrors WithEq for integer-valued conditions such as arity.
// present reports whether the condition should be emitted at all (zero is
// a meaningful arity, so callers pass an explicit presence flag rather
// than relying on a zero-value sentinel).
func (c *ConditionBuilder) WithEqInt(graphAlias, field, paramName string, v int64, present bool) *ConditionBuilder {
	if !present {
		return c
	}
	c.datalog = append(c.datalog, fmt.Sprintf("%s = $%s", field, paramName))
	c.graph = append(c.graph, fmt.Sprintf("%s.%s = $%s", graphAlias, field, paramName))
	c.params = c.params.WithInt(paramName, v)
	return c
}

// WithContains adds a substring condition, used by name/body search.
func (c *ConditionBuilder) WithContains(graphAlias, field, paramName, value string) *ConditionBuilder {
	if value == "" {
		return c
	}
	c.datalog = append(c.datalog, fmt.Sprintf("str_includes(%s, $%s)", field, paramName))
	c.graph = append(c.graph, fmt.Sprintf("%s.%s CONTAINS $%s", graphAlias, field, paramName))
	c.params = c.params.WithStr(paramName, value)
	return c
}

// WithPattern adds either a regex-match or an equality condition for value,
// chosen by useRegex — the caller-facing toggle every pattern-accepting
// query (search, locate, calls, specs, types, structs) exposes so
// one flag switches a query between exact and regex matching. Skipped
// entirely when value is empty.
func (c *ConditionBuilder) WithPattern(graphAlias, field, paramName, value string, useRegex bool) *ConditionBuilder {
	if useRegex {
		return c.WithRegex(graphAlias, field, paramName, value)
	}
	return c.WithEq(graphAlias, field, paramName, value)
}

// OptionalConditionBuilder assembles a single filter fragment that may be
// entirely absent from a query — the shape an optional function-name
// pattern or an optional arity filter needs, where a caller decides both
// whether the condition appears at all and, for regex-capable fields,
// whether it matches by equality or by regex.
type OptionalConditionBuilder struct {
	graphAlias, field, paramName string
	leadingComma                 bool
	regexCapable                 bool
}

func NewOptionalConditionBuilder(graphAlias, field, paramName string) *OptionalConditionBuilder {
	return &OptionalConditionBuilder{graphAlias: graphAlias, field: field, paramName: paramName}
}

// WithLeadingComma prefixes the rendered Datalog fragment with ", " rather
// than rendering it bare, for composing after a rule body that already has
// at least one clause.
func (o *OptionalConditionBuilder) WithLeadingComma() *OptionalConditionBuilder {
	o.leadingComma = true
	return o
}

// WithRegex marks the condition as eligible for regex matching. Without
// it, BuildWithRegex always renders equality regardless of useRegex — the
// shape an arity filter needs, since arity has no regex concept.
func (o *OptionalConditionBuilder) WithRegex() *OptionalConditionBuilder {
	o.regexCapable = true
	return o
}

// Build renders an equality-only Datalog fragment, empty when present is
// false.
func (o *OptionalConditionBuilder) Build(present bool) string {
	return o.BuildWithRegex(present, false)
}

// BuildWithRegex renders a Datalog fragment — regex_matches when useRegex
// is set and the condition was marked WithRegex, equality otherwise — or
// "" when present is false.
func (o *OptionalConditionBuilder) BuildWithRegex(present, useRegex bool) string {
	if !present {
		return ""
	}
	comma := ""
	if o.leadingComma {
		comma = ", "
	}
	if useRegex && o.regexCapable {
		return fmt.Sprintf("%sregex_matches(%s, $%s)", comma, o.field, o.paramName)
	}
	return fmt.Sprintf("%s%s = $%s", comma, o.field, o.paramName)
}

// BuildGraph is the graph-dialect counterpart of BuildWithRegex: an
// "AND"-prefixed, alias-qualified fragment, empty when present is false.
func (o *OptionalConditionBuilder) BuildGraph(present, useRegex bool) string {
	if !present {
		return ""
	}
	if useRegex && o.regexCapable {
		return fmt.Sprintf(" AND %s.%s MATCHES $%s", o.graphAlias, o.field, o.paramName)
	}
	return fmt.Sprintf(" AND %s.%s = $%s", o.graphAlias, o.field, o.paramName)
}

// DatalogClause renders the conditions as a CozoScript rule-body fragment
// (comma-joined), with a leading ", " if nonempty and withLeadingComma.
func (c *ConditionBuilder) DatalogClause(withLeadingComma bool) string {
	if len(c.datalog) == 0 {
		return ""
	}
	body := strings.Join(c.datalog, ", ")
	if withLeadingComma {
		return ", " + body
	}
	return body
}

// GraphWhere renders the conditions as a `WHERE a AND b` fragment, empty
// string when there are no conditions at all.
func (c *ConditionBuilder) GraphWhere() string {
	if len(c.graph) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.graph, " AND ")
}

func (c *ConditionBuilder) Params() backend.QueryParams { return c.params }

func (c *ConditionBuilder) HasConditions() bool { return len(c.datalog) > 0 }
