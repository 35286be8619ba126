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

package graphdb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kraklabs/cie/pkg/backend"
	"github.com/kraklabs/cie/pkg/value"
)

// MemoryDriver is a deterministic, in-process stand-in for a running graph
// store, used by pkg/fixtures to build deterministic seeded in-memory
// stores and by every pkg/queries backend-parity test. It interprets the
// constrained SELECT/WHERE/GROUP BY/ORDER BY/LIMIT grammar pkg/queries'
// compileGraph paths actually emit — it is not a general SurrealQL engine,
// the same way the restricted subset any single caller needs is all any
// hand-rolled test double needs to get right.
type MemoryDriver struct {
	mu     sync.RWMutex
	tables map[string][]map[string]any
	closed bool
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{tables: make(map[string][]map[string]any)}
}

func (d *MemoryDriver) BackendName() string { return "graphdb" }

func (d *MemoryDriver) SetupBackend(ctx context.Context) error { return nil }

func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *MemoryDriver) RelationExists(ctx context.Context, name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.tables[name]
	return ok, nil
}

// TryCreateRelation accepts either a CompileGraph DDL blob (first line
// `DEFINE TABLE <name> SCHEMAFULL...`) and extracts the table name.
func (d *MemoryDriver) TryCreateRelation(ctx context.Context, ddl string) (bool, error) {
	name, err := tableNameFromDDL(ddl)
	if err != nil {
		return false, backend.BackendFailureError("graphdb", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; ok {
		return false, nil
	}
	d.tables[name] = nil
	return true, nil
}

func tableNameFromDDL(ddl string) (string, error) {
	fields := strings.Fields(ddl)
	for i, tok := range fields {
		if strings.EqualFold(tok, "TABLE") && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("no DEFINE TABLE found in DDL")
}

func (d *MemoryDriver) InsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[relation] = append(d.tables[relation], rows...)
	return nil
}

func (d *MemoryDriver) UpsertRows(ctx context.Context, relation string, rows []map[string]any) error {
	return d.InsertRows(ctx, relation, rows)
}

func (d *MemoryDriver) DeleteByProject(ctx context.Context, relation, project string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.tables[relation][:0:0]
	for _, r := range d.tables[relation] {
		if p, _ := r["project"].(string); p != project {
			kept = append(kept, r)
		}
	}
	d.tables[relation] = kept
	return nil
}

func (d *MemoryDriver) ExecuteQueryNoParams(ctx context.Context, script string) (value.QueryResult, error) {
	return d.ExecuteQuery(ctx, script, backend.NewQueryParams())
}

func (d *MemoryDriver) ExecuteQuery(ctx context.Context, script string, params backend.QueryParams) (value.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stmt, err := parseSelect(script)
	if err != nil {
		return value.QueryResult{}, backend.BackendFailureError("graphdb", err)
	}

	rows, err := d.evalFrom(stmt)
	if err != nil {
		return value.QueryResult{}, backend.BackendFailureError("graphdb", err)
	}

	paramMap := params.AsMap()
	rows = filterWhere(rows, stmt.where, paramMap)

	if len(stmt.groupBy) > 0 {
		rows = groupRows(rows, stmt)
	}

	headers, projected := project(rows, stmt)

	// The graph backend reorders SELECT columns alphabetically regardless
	// of SELECT order, and drops ORDER BY whenever a regex filter is
	// present, leaving re-sorting to pkg/aggregate.
	sortedHeaders := append([]string(nil), headers...)
	sort.Strings(sortedHeaders)
	reordered := reorderColumns(projected, headers, sortedHeaders)

	hasRegex := stmtHasRegex(stmt.where)
	if len(stmt.orderBy) > 0 && !hasRegex {
		applyOrderBy(reordered, sortedHeaders, stmt.orderBy)
	}

	if stmt.limit >= 0 && len(reordered) > stmt.limit {
		reordered = reordered[:stmt.limit]
	}

	out := make([][]any, len(reordered))
	copy(out, reordered)
	return value.FromGraphRows(sortedHeaders, out), nil
}

// --- minimal SELECT grammar ---
//
// SELECT col [AS alias], ... FROM table [AS alias] [, table [AS alias] ...]
//   [WHERE cond [AND cond ...]] [GROUP BY col, ...]
//   [ORDER BY col [ASC|DESC], ...] [LIMIT n]
//
// cond := alias.field OP rhs
// OP   := "=" | "!=" | "<=" | ">=" | "CONTAINS" | "MATCHES" | "STARTSWITH"
// rhs  := $param | 'literal' | alias.field | number

type selectStmt struct {
	columns []selectColumn
	from    []fromItem
	where   []condition
	groupBy []string
	orderBy []orderKey
	limit   int
}

type selectColumn struct {
	agg   string // "", "count", "sum", "min", "max"
	expr  string // "alias.field"
	alias string
}

type fromItem struct {
	table string
	alias string
}

type condition struct {
	left  string
	op    string
	right string
}

type orderKey struct {
	col  string
	desc bool
}

func parseSelect(script string) (selectStmt, error) {
	s := strings.TrimSpace(script)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "SELECT ") {
		return selectStmt{}, fmt.Errorf("expected SELECT, got: %s", script)
	}

	sections, order := splitClauses(s)
	stmt := selectStmt{limit: -1}

	stmt.columns = parseColumns(sections["SELECT"])
	stmt.from = parseFrom(sections["FROM"])
	if w, ok := sections["WHERE"]; ok {
		stmt.where = parseWhere(w)
	}
	if g, ok := sections["GROUP"]; ok {
		stmt.groupBy = splitTrim(g, ",")
	}
	if o, ok := sections["ORDER"]; ok {
		stmt.orderBy = parseOrderBy(o)
	}
	if l, ok := sections["LIMIT"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(l))
		if err == nil {
			stmt.limit = n
		}
	}
	_ = order
	return stmt, nil
}

var clauseKeywords = []string{"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "LIMIT"}

func splitClauses(s string) (map[string]string, []string) {
	type pos struct {
		kw  string
		idx int
	}
	upper := strings.ToUpper(s)
	var positions []pos
	for _, kw := range clauseKeywords {
		idx := indexOfWord(upper, kw)
		if idx >= 0 {
			positions = append(positions, pos{kw: kw, idx: idx})
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].idx < positions[j].idx })

	sections := make(map[string]string)
	var order []string
	for i, p := range positions {
		end := len(s)
		if i+1 < len(positions) {
			end = positions[i+1].idx
		}
		start := p.idx + len(p.kw)
		key := strings.Fields(p.kw)[0]
		sections[key] = strings.TrimSpace(s[start:end])
		order = append(order, key)
	}
	return sections, order
}

func indexOfWord(haystack, word string) int {
	isIdent := func(b byte) bool {
		return b == '_' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
	}
	idx := 0
	for {
		rel := strings.Index(haystack[idx:], word)
		if rel < 0 {
			return -1
		}
		pos := idx + rel
		end := pos + len(word)
		startOK := pos == 0 || !isIdent(word[0]) || !isIdent(haystack[pos-1])
		endOK := end == len(haystack) || !isIdent(word[len(word)-1]) || !isIdent(haystack[end])
		if startOK && endOK {
			return pos
		}
		idx = pos + 1
	}
}

func parseColumns(s string) []selectColumn {
	parts := splitTopLevelCommas(s)
	cols := make([]selectColumn, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		var alias string
		if idx := indexOfWord(strings.ToUpper(p), " AS "); idx >= 0 {
			alias = strings.TrimSpace(p[idx+4:])
			p = strings.TrimSpace(p[:idx])
		}
		agg := ""
		expr := p
		for _, fn := range []string{"count", "sum", "min", "max"} {
			prefix := fn + "("
			if strings.HasPrefix(strings.ToLower(p), prefix) && strings.HasSuffix(p, ")") {
				agg = fn
				expr = p[len(prefix) : len(p)-1]
				break
			}
		}
		if alias == "" {
			alias = lastSegment(expr)
		}
		cols = append(cols, selectColumn{agg: agg, expr: expr, alias: alias})
	}
	return cols
}

func lastSegment(expr string) string {
	if i := strings.LastIndex(expr, "."); i >= 0 {
		return expr[i+1:]
	}
	return expr
}

func parseFrom(s string) []fromItem {
	parts := splitTopLevelCommas(s)
	items := make([]fromItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		fields := strings.Fields(p)
		item := fromItem{table: fields[0], alias: fields[0]}
		if len(fields) == 3 && strings.EqualFold(fields[1], "AS") {
			item.alias = fields[2]
		} else if len(fields) == 2 {
			item.alias = fields[1]
		}
		items = append(items, item)
	}
	return items
}

func parseWhere(s string) []condition {
	parts := splitOnKeyword(s, "AND")
	conds := make([]condition, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		for _, op := range []string{"!=", "<=", ">=", "CONTAINS", "MATCHES", "STARTSWITH", "="} {
			if idx := findOp(p, op); idx >= 0 {
				left := strings.TrimSpace(p[:idx])
				right := strings.TrimSpace(p[idx+len(op):])
				conds = append(conds, condition{left: left, op: op, right: right})
				break
			}
		}
	}
	return conds
}

func findOp(s, op string) int {
	upper := strings.ToUpper(s)
	needle := op
	if op != "=" && op != "!=" && op != "<=" && op != ">=" {
		needle = " " + op + " "
	}
	idx := strings.Index(upper, strings.ToUpper(needle))
	if idx < 0 {
		return -1
	}
	if needle != op {
		return idx + 1
	}
	return idx
}

func parseOrderBy(s string) []orderKey {
	parts := splitTopLevelCommas(s)
	keys := make([]orderKey, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		k := orderKey{col: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			k.desc = true
		}
		keys = append(keys, k)
	}
	return keys
}

func splitTopLevelCommas(s string) []string {
	depth := 0
	var parts []string
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitOnKeyword(s, kw string) []string {
	upper := strings.ToUpper(s)
	needle := " " + kw + " "
	var parts []string
	for {
		idx := strings.Index(upper, needle)
		if idx < 0 {
			parts = append(parts, s)
			break
		}
		parts = append(parts, s[:idx])
		s = s[idx+len(needle):]
		upper = upper[idx+len(needle):]
	}
	return parts
}

func splitTrim(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// --- evaluation ---

func (d *MemoryDriver) evalFrom(stmt selectStmt) ([]map[string]any, error) {
	if len(stmt.from) == 0 {
		return nil, fmt.Errorf("missing FROM")
	}

	rows := prefixRows(d.tables[stmt.from[0].table], stmt.from[0].alias)
	for _, item := range stmt.from[1:] {
		next := prefixRows(d.tables[item.table], item.alias)
		rows = crossJoin(rows, next)
	}
	return rows, nil
}

func prefixRows(rows []map[string]any, alias string) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(r))
		for k, v := range r {
			m[alias+"."+k] = v
		}
		out[i] = m
	}
	return out
}

func crossJoin(a, b []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(a)*len(b))
	for _, ra := range a {
		for _, rb := range b {
			merged := make(map[string]any, len(ra)+len(rb))
			for k, v := range ra {
				merged[k] = v
			}
			for k, v := range rb {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out
}

func filterWhere(rows []map[string]any, conds []condition, params map[string]any) []map[string]any {
	if len(conds) == 0 {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if matchesAll(r, conds, params) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(row map[string]any, conds []condition, params map[string]any) bool {
	for _, c := range conds {
		if !matches(row, c, params) {
			return false
		}
	}
	return true
}

func resolveOperand(row map[string]any, token string, params map[string]any) (any, bool) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "$") {
		v, ok := params[token[1:]]
		return v, ok
	}
	if strings.HasPrefix(token, "'") && strings.HasSuffix(token, "'") {
		return token[1 : len(token)-1], true
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil && !strings.Contains(token, ".") == false || isNumericToken(token) {
		if n2, err2 := strconv.ParseFloat(token, 64); err2 == nil {
			_ = n
			return n2, true
		}
	}
	v, ok := row[token]
	return v, ok
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func matches(row map[string]any, c condition, params map[string]any) bool {
	lv, lok := resolveOperand(row, c.left, params)
	rv, rok := resolveOperand(row, c.right, params)
	if !lok {
		lv, lok = "", true
	}
	ls := toStr(lv)
	switch c.op {
	case "=":
		if !rok {
			return false
		}
		return ls == toStr(rv)
	case "!=":
		if !rok {
			return true
		}
		return ls != toStr(rv)
	case "CONTAINS":
		if !rok {
			return false
		}
		return strings.Contains(ls, toStr(rv))
	case "MATCHES":
		if !rok {
			return false
		}
		re, err := regexp.Compile(toStr(rv))
		if err != nil {
			return false
		}
		return re.MatchString(ls)
	case "STARTSWITH":
		if !rok {
			return false
		}
		return strings.HasPrefix(ls, toStr(rv))
	case "<=":
		lf, lfok := toFloat(lv)
		rf, rfok := toFloat(rv)
		return rok && lfok && rfok && lf <= rf
	case ">=":
		lf, lfok := toFloat(lv)
		rf, rfok := toFloat(rv)
		return rok && lfok && rfok && lf >= rf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

// groupByExpr resolves a GROUP BY token to the row key it should read:
// GROUP BY names the SELECT alias (e.g. "module"), not the source
// expression (e.g. "c.module_name"), so it must be resolved through the
// same column list SELECT uses before it can index into the aliased rows.
func groupByExpr(stmt selectStmt, name string) string {
	for _, c := range stmt.columns {
		if c.alias == name && c.agg == "" {
			return c.expr
		}
	}
	return name
}

func groupRows(rows []map[string]any, stmt selectStmt) []map[string]any {
	type group struct {
		key  string
		rows []map[string]any
	}
	exprs := make([]string, len(stmt.groupBy))
	for i, g := range stmt.groupBy {
		exprs[i] = groupByExpr(stmt, g)
	}

	order := []string{}
	groups := map[string]*group{}
	for _, r := range rows {
		var keyParts []string
		for _, expr := range exprs {
			keyParts = append(keyParts, toStr(r[expr]))
		}
		key := strings.Join(keyParts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		g := groups[key]
		rep := make(map[string]any)
		for i, gb := range stmt.groupBy {
			rep[gb] = g.rows[0][exprs[i]]
		}
		for _, col := range stmt.columns {
			if col.agg == "" {
				continue
			}
			rep["__agg__"+col.alias] = aggregate(col.agg, col.expr, g.rows)
		}
		out = append(out, rep)
	}
	return out
}

func aggregate(agg, expr string, rows []map[string]any) any {
	switch agg {
	case "count":
		return float64(len(rows))
	case "sum":
		var total float64
		for _, r := range rows {
			if f, ok := r[expr].(float64); ok {
				total += f
			}
		}
		return total
	case "min":
		var min float64
		first := true
		for _, r := range rows {
			if f, ok := r[expr].(float64); ok {
				if first || f < min {
					min = f
					first = false
				}
			}
		}
		return min
	case "max":
		var max float64
		first := true
		for _, r := range rows {
			if f, ok := r[expr].(float64); ok {
				if first || f > max {
					max = f
					first = false
				}
			}
		}
		return max
	}
	return nil
}

func project(rows []map[string]any, stmt selectStmt) ([]string, [][]any) {
	headers := make([]string, len(stmt.columns))
	for i, c := range stmt.columns {
		headers[i] = c.alias
	}
	out := make([][]any, len(rows))
	for ri, r := range rows {
		row := make([]any, len(stmt.columns))
		for ci, c := range stmt.columns {
			if c.agg != "" {
				row[ci] = r["__agg__"+c.alias]
				continue
			}
			v, ok := r[c.expr]
			if !ok {
				v = r[c.alias]
			}
			row[ci] = v
		}
		out[ri] = row
	}
	return headers, out
}

func reorderColumns(rows [][]any, from, to []string) [][]any {
	idx := make([]int, len(to))
	for i, h := range to {
		for j, f := range from {
			if f == h {
				idx[i] = j
				break
			}
		}
	}
	out := make([][]any, len(rows))
	for ri, r := range rows {
		nr := make([]any, len(to))
		for i, j := range idx {
			nr[i] = r[j]
		}
		out[ri] = nr
	}
	return out
}

func stmtHasRegex(conds []condition) bool {
	for _, c := range conds {
		if c.op == "MATCHES" {
			return true
		}
	}
	return false
}

func applyOrderBy(rows [][]any, headers []string, keys []orderKey) {
	colIdx := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		return -1
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			ci := colIdx(k.col)
			if ci < 0 {
				continue
			}
			a, b := rows[i][ci], rows[j][ci]
			cmp := compareAny(a, b)
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareAny(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := toStr(a), toStr(b)
	return strings.Compare(as, bs)
}
