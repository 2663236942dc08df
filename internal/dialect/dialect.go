// Package dialect holds the backend-specific SQL primitives analytics queries
// are built from and the rendering of {{name}} placeholders into each
// backend's native parameter syntax.
package dialect

import (
	"fmt"
	"strings"

	"pulse/internal/query"
	"pulse/internal/timeframe"
)

// Name identifies a backend family.
type Name string

const (
	Relational Name = "relational"
	Columnar   Name = "columnar"
)

// Tables are the physical table names a dialect reads from.
type Tables struct {
	Event   string
	Session string
	Revenue string
}

// Statement is rendered SQL ready for a driver. Relational statements carry
// positional Args; columnar statements carry Named server-side parameters.
type Statement struct {
	SQL   string
	Args  []any
	Named map[string]string
}

// Dialect produces backend-native SQL expressions. Arguments that are
// placeholders are passed in template form, e.g. query.P("search").
type Dialect interface {
	Name() Name
	Tables() Tables

	// InlineSessionColumns reports whether session attributes live on the
	// event table, in which case session filters need no join.
	InlineSessionColumns() bool

	DateTrunc(field string, unit timeframe.Unit, tz string) string
	TimestampDiffSeconds(start, end string) string
	MultiMatch(column string, candidates []string) string
	Contains(column, placeholder string) string
	InList(column, placeholder string) string
	CountDistinct(expr string) string
	// Lag is the previous value of expr within partition, ordered by order.
	Lag(expr, partition, order string) string
	// AddMinutes adds the integer parameter called name, in minutes, to expr.
	AddMinutes(expr, name string) string

	Render(text string, params query.Params) (Statement, error)
	Paginate(text string, page, pageSize int) string
}

// For returns the dialect registered under name.
func For(name Name) (Dialect, error) {
	switch name {
	case Relational:
		return Postgres{}, nil
	case Columnar:
		return ClickHouse{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// paginate appends LIMIT/OFFSET for a 1-indexed page. A non-positive page
// size leaves the text as it is.
func paginate(text string, page, pageSize int) string {
	if pageSize <= 0 {
		return text
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("%s\nLIMIT %d OFFSET %d", text, pageSize, (page-1)*pageSize)
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
