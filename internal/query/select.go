package query

import (
	"strconv"
	"strings"
)

// CTE is a named common table expression.
type CTE struct {
	Name string
	Body string
}

// Select is a SELECT statement kept as parts until it is rendered. Where and
// Having conditions are ANDed.
type Select struct {
	With    []CTE
	Columns []string
	From    string
	Joins   []string
	Where   []string
	GroupBy []string
	Having  []string
	OrderBy []string
	Limit   int
}

// Column appends select expressions.
func (s *Select) Column(exprs ...string) *Select {
	s.Columns = append(s.Columns, exprs...)
	return s
}

// Join appends join clauses, skipping empty ones.
func (s *Select) Join(clauses ...string) *Select {
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			s.Joins = append(s.Joins, c)
		}
	}
	return s
}

// And appends WHERE conditions, skipping empty ones.
func (s *Select) And(conds ...string) *Select {
	for _, c := range conds {
		if strings.TrimSpace(c) != "" {
			s.Where = append(s.Where, c)
		}
	}
	return s
}

// Group appends GROUP BY expressions.
func (s *Select) Group(exprs ...string) *Select {
	s.GroupBy = append(s.GroupBy, exprs...)
	return s
}

// Order appends ORDER BY expressions.
func (s *Select) Order(exprs ...string) *Select {
	s.OrderBy = append(s.OrderBy, exprs...)
	return s
}

// String renders the statement as template text.
func (s *Select) String() string {
	var b strings.Builder

	if len(s.With) > 0 {
		b.WriteString(withPrefix(s.With))
	}

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(s.Columns, ",\n  "))
	if s.From != "" {
		b.WriteString("\nFROM ")
		b.WriteString(s.From)
	}
	for _, j := range s.Joins {
		b.WriteString("\n")
		b.WriteString(j)
	}
	if len(s.Where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(s.Where, "\n  AND "))
	}
	if len(s.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if len(s.Having) > 0 {
		b.WriteString("\nHAVING ")
		b.WriteString(strings.Join(s.Having, " AND "))
	}
	if len(s.OrderBy) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(s.OrderBy, ", "))
	}
	if s.Limit > 0 {
		b.WriteString("\nLIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}
	return b.String()
}

// With prefixes body with the given common table expressions.
func With(ctes []CTE, body string) string {
	if len(ctes) == 0 {
		return body
	}
	return withPrefix(ctes) + body
}

func withPrefix(ctes []CTE) string {
	var b strings.Builder
	b.WriteString("WITH ")
	for i, cte := range ctes {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString(cte.Name)
		b.WriteString(" AS (\n")
		b.WriteString(indent(cte.Body))
		b.WriteString("\n)")
	}
	b.WriteString("\n")
	return b.String()
}

// UnionAll joins statements with UNION ALL.
func UnionAll(parts ...string) string {
	return strings.Join(parts, "\nUNION ALL\n")
}

func indent(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}
