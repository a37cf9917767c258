package sqlb

type cte struct {
	name string
	body Expr
}

// Select is a SELECT statement assembled clause by clause.
type Select struct {
	ctes    []cte
	cols    []Expr
	from    Expr
	joins   []Expr
	where   []Expr
	groupBy []Expr
	orderBy []Expr
	limit   int
}

// From starts a statement over a table or row source.
func From(source string, args ...any) *Select {
	return &Select{from: E(source, args...)}
}

// FromExpr starts a statement over a composed row source.
func FromExpr(source Expr) *Select {
	return &Select{from: source}
}

// With adds a common table expression; CTEs render in insertion order.
func (s *Select) With(name string, body Expr) *Select {
	s.ctes = append(s.ctes, cte{name: name, body: body})
	return s
}

func (s *Select) Columns(cols ...string) *Select {
	for _, c := range cols {
		s.cols = append(s.cols, E(c))
	}
	return s
}

func (s *Select) Column(sql string, args ...any) *Select {
	s.cols = append(s.cols, E(sql, args...))
	return s
}

func (s *Select) ColumnExpr(e Expr) *Select {
	s.cols = append(s.cols, e)
	return s
}

func (s *Select) Join(clause string, args ...any) *Select {
	s.joins = append(s.joins, E(clause, args...))
	return s
}

func (s *Select) JoinExpr(e Expr) *Select {
	s.joins = append(s.joins, e)
	return s
}

// Where adds a predicate; predicates are ANDed and empty ones are skipped.
func (s *Select) Where(e Expr) *Select {
	if !e.IsZero() {
		s.where = append(s.where, e)
	}
	return s
}

func (s *Select) GroupBy(cols ...string) *Select {
	for _, c := range cols {
		s.groupBy = append(s.groupBy, E(c))
	}
	return s
}

func (s *Select) OrderBy(sql string, args ...any) *Select {
	s.orderBy = append(s.orderBy, E(sql, args...))
	return s
}

// Limit caps the row count; zero means no limit.
func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

// Expr renders the statement with unnumbered placeholders so it can be nested
// as a subquery or CTE body.
func (s *Select) Expr() Expr {
	var parts []Expr
	if len(s.ctes) > 0 {
		defs := make([]Expr, 0, len(s.ctes))
		for _, c := range s.ctes {
			defs = append(defs, Wrapf(c.name+" AS (%s)", c.body))
		}
		parts = append(parts, Wrapf("WITH %s", Join(", ", defs...)))
	}
	cols := Join(", ", s.cols...)
	if cols.IsZero() {
		cols = E("*")
	}
	parts = append(parts, Wrapf("SELECT %s", cols))
	if !s.from.IsZero() {
		parts = append(parts, Wrapf("FROM %s", s.from))
	}
	parts = append(parts, s.joins...)
	if len(s.where) > 0 {
		parts = append(parts, Wrapf("WHERE %s", And(s.where...)))
	}
	if len(s.groupBy) > 0 {
		parts = append(parts, Wrapf("GROUP BY %s", Join(", ", s.groupBy...)))
	}
	if len(s.orderBy) > 0 {
		parts = append(parts, Wrapf("ORDER BY %s", Join(", ", s.orderBy...)))
	}
	if s.limit > 0 {
		parts = append(parts, E("LIMIT ?", s.limit))
	}
	return Join(" ", parts...)
}

// Build renders the statement with numbered placeholders.
func (s *Select) Build() (string, []any, error) {
	return Build(s.Expr())
}
