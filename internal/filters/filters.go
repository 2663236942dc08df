// Package filters compiles request filters into SQL fragments and the
// parameter map their placeholders refer to. Fragments carry {{name}}
// placeholders only; dialects turn them into native parameters later.
package filters

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pulse/internal/events"
	"pulse/internal/segments"
	"pulse/internal/timeframe"
)

// Filter is a {name, operator, value} condition, the same shape segments persist.
type Filter = segments.Filter

// Operators
const (
	OpEquals         = "eq"
	OpNotEquals      = "neq"
	OpContains       = "c"
	OpDoesNotContain = "dnc"
)

// Filter names in the order they are compiled. The fixed order keeps the
// output identical for equal inputs regardless of how filters were listed.
var names = []string{
	"path", "referrer", "title", "query", "host", "tag", "event",
	"os", "browser", "device", "country", "region", "city", "language",
}

// columns maps a filter name to its column. Session-scoped columns are
// qualified by the dialect at compile time.
var columns = map[string]string{
	"path":     "url_path",
	"referrer": "referrer_domain",
	"title":    "page_title",
	"query":    "url_query",
	"host":     "hostname",
	"tag":      "tag",
	"event":    "event_name",
	"os":       "os",
	"browser":  "browser",
	"device":   "device",
	"country":  "country",
	"region":   "region",
	"city":     "city",
	"language": "language",
}

// IsName reports whether name is a filter the compiler understands.
func IsName(name string) bool {
	_, ok := columns[name]
	return ok
}

// Names returns the filter names in compile order.
func Names() []string {
	return append([]string(nil), names...)
}

// Column returns the unqualified column a filter name reads.
func Column(name string) (string, bool) {
	c, ok := columns[name]
	return c, ok
}

// QueryFilters is the per-request query scope: website, date range, the
// sparse dimension filters and presentation options.
type QueryFilters struct {
	WebsiteID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Timezone  string
	Unit      timeframe.Unit

	Filters   []Filter
	EventType events.EventType
	Segment   uuid.UUID
	Cohort    uuid.UUID

	Page           int
	PageSize       int
	Search         string
	OrderBy        string
	SortDescending bool
	Compare        bool
}

// Add appends an equality filter on name.
func (q *QueryFilters) Add(name string, value any) *QueryFilters {
	q.Filters = append(q.Filters, Filter{Name: name, Operator: OpEquals, Value: value})
	return q
}

// AddOp appends a filter on name with an explicit operator.
func (q *QueryFilters) AddOp(name, operator string, value any) *QueryFilters {
	q.Filters = append(q.Filters, Filter{Name: name, Operator: operator, Value: value})
	return q
}

// HasFilters reports whether any dimension, segment or cohort filter is set.
func (q *QueryFilters) HasFilters() bool {
	if q.Segment != uuid.Nil || q.Cohort != uuid.Nil {
		return true
	}
	for _, f := range q.Filters {
		if !isAbsent(f.Value) {
			return true
		}
	}
	return false
}

// Location returns the request timezone, UTC when none was given.
func (q *QueryFilters) Location() (*time.Location, error) {
	return timeframe.LoadTimezone(q.Timezone)
}

// TimezoneName is the timezone to inline into date truncation.
func (q *QueryFilters) TimezoneName() string {
	if q.Timezone == "" {
		return "UTC"
	}
	return q.Timezone
}

// isAbsent reports whether a filter value should be skipped.
func isAbsent(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// values turns a filter value into its string list. A single value yields
// one element and list reports false.
func values(v any) (vals []string, list bool, err error) {
	switch val := v.(type) {
	case string:
		return []string{val}, false, nil
	case []string:
		return append([]string(nil), val...), true, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false, fmt.Errorf("list values must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, true, nil
	case fmt.Stringer:
		return []string{val.String()}, false, nil
	case int, int64, float64, bool:
		return []string{fmt.Sprint(val)}, false, nil
	default:
		return nil, false, fmt.Errorf("unsupported value type %T", v)
	}
}

func normalizeOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	if op == "" {
		return OpEquals
	}
	return op
}
