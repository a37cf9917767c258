// Package sqlb composes parameterized SQL from clause values. Fragments carry
// their own arguments and use `?` as the placeholder; Build renumbers them to
// Postgres `$n` in render order, so untrusted input never enters the text.
package sqlb

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a SQL fragment with `?` placeholders and the arguments bound to them.
// A literal question mark is written as `??`.
type Expr struct {
	sql  string
	args []any
}

// E builds a fragment.
func E(sql string, args ...any) Expr {
	return Expr{sql: sql, args: args}
}

func (e Expr) IsZero() bool { return e.sql == "" }

// Args returns the bound arguments in placeholder order.
func (e Expr) Args() []any { return e.args }

// String returns the unnumbered text, for logs and tests.
func (e Expr) String() string { return e.sql }

// Join concatenates non-empty fragments with sep.
func Join(sep string, es ...Expr) Expr {
	var parts []string
	var args []any
	for _, e := range es {
		if e.IsZero() {
			continue
		}
		parts = append(parts, e.sql)
		args = append(args, e.args...)
	}
	return Expr{sql: strings.Join(parts, sep), args: args}
}

// Paren wraps a fragment in parentheses.
func Paren(e Expr) Expr {
	if e.IsZero() {
		return e
	}
	return Expr{sql: "(" + e.sql + ")", args: e.args}
}

func And(es ...Expr) Expr { return group(" AND ", es) }

func Or(es ...Expr) Expr { return group(" OR ", es) }

func group(sep string, es []Expr) Expr {
	var kept []Expr
	for _, e := range es {
		if !e.IsZero() {
			kept = append(kept, Paren(e))
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return Paren(Join(sep, kept...))
}

func Not(e Expr) Expr {
	return Expr{sql: "NOT " + Paren(e).sql, args: e.args}
}

// Wrapf substitutes rendered fragments into a format with %s verbs; the
// format itself must be a trusted constant.
func Wrapf(format string, es ...Expr) Expr {
	parts := make([]any, len(es))
	var args []any
	for i, e := range es {
		parts[i] = e.sql
		args = append(args, e.args...)
	}
	return Expr{sql: fmt.Sprintf(format, parts...), args: args}
}

// UnionAll joins row sources with UNION ALL.
func UnionAll(qs ...Expr) Expr { return Join(" UNION ALL ", qs...) }

// Build numbers placeholders as $1..$n and checks that every placeholder has
// exactly one argument.
func Build(e Expr) (string, []any, error) {
	var b strings.Builder
	n := 0
	s := e.sql
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '?' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '?' {
			b.WriteByte('?')
			i++
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	if n != len(e.args) {
		return "", nil, fmt.Errorf("sqlb: %d placeholders but %d args", n, len(e.args))
	}
	return b.String(), e.args, nil
}
