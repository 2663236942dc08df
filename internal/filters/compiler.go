package filters

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pariz/gountries"
	"golang.org/x/text/language"

	"pulse/internal/dialect"
	"pulse/internal/events"
	"pulse/internal/query"
	"pulse/internal/segments"
)

// SegmentLookup resolves saved segments and cohorts.
type SegmentLookup interface {
	Get(ctx context.Context, websiteID, id uuid.UUID) (*segments.Segment, error)
}

// Options adjust what a compilation is anchored on.
type Options struct {
	// Table carries the website and date conditions. Defaults to the event table.
	Table string
	// DateColumn overrides <Table>.created_at for the date range.
	DateColumn string
	// JoinSession forces the session join even without a session filter.
	JoinSession bool
}

// Compiled holds the fragments of one compilation. Where and Joins are the
// pieces builders add to their statements; Params binds every placeholder
// used in them.
type Compiled struct {
	Website     string
	DateRange   []string
	Filters     []string
	JoinSession string
	Cohort      string
	Params      query.Params
}

// Where returns the website condition, the date range and the filters.
func (c *Compiled) Where() []string {
	out := make([]string, 0, 1+len(c.DateRange)+len(c.Filters))
	out = append(out, c.Website)
	out = append(out, c.DateRange...)
	return append(out, c.Filters...)
}

// Joins returns the session and cohort joins that are needed.
func (c *Compiled) Joins() []string {
	var out []string
	if c.JoinSession != "" {
		out = append(out, c.JoinSession)
	}
	if c.Cohort != "" {
		out = append(out, c.Cohort)
	}
	return out
}

// Apply adds the joins and conditions to s.
func (c *Compiled) Apply(s *query.Select) *query.Select {
	return s.Join(c.Joins()...).And(c.Where()...)
}

// Compiler turns QueryFilters into SQL fragments for one dialect.
type Compiler struct {
	dialect  dialect.Dialect
	segments SegmentLookup
}

// NewCompiler returns a compiler. lookup may be nil when segments are not
// available; segment and cohort filters then fail to compile.
func NewCompiler(d dialect.Dialect, lookup SegmentLookup) *Compiler {
	return &Compiler{dialect: d, segments: lookup}
}

// Compile produces the fragments for qf. Absent filter values are skipped;
// filters combine with AND.
func (c *Compiler) Compile(ctx context.Context, qf *QueryFilters, opts Options) (*Compiled, error) {
	if qf.WebsiteID == uuid.Nil {
		return nil, &CompileError{Field: "websiteId", Reason: "is required"}
	}
	if _, err := qf.Location(); err != nil {
		return nil, &CompileError{Field: "timezone", Reason: "is not a valid IANA timezone", Err: err}
	}

	tables := c.dialect.Tables()
	table := opts.Table
	if table == "" {
		table = tables.Event
	}
	dateColumn := opts.DateColumn
	if dateColumn == "" {
		dateColumn = table + ".created_at"
	}

	params := query.Params{"websiteId": qf.WebsiteID}
	out := &Compiled{
		Website:   fmt.Sprintf("%s.website_id = %s", table, query.PT("websiteId", "uuid")),
		DateRange: dateRange(dateColumn, qf.StartDate, qf.EndDate, "", params),
		Params:    params,
	}

	all := qf.Filters
	if qf.Segment != uuid.Nil {
		segment, err := c.lookup(ctx, "segment", qf.WebsiteID, qf.Segment)
		if err != nil {
			return nil, err
		}
		all = append(slices.Clone(all), segment.Parameters.Filters...)
	}

	conds, needsSession, err := c.conditions(all, "", params)
	if err != nil {
		return nil, err
	}
	out.Filters = conds

	if qf.EventType != 0 {
		out.Filters = append(out.Filters, fmt.Sprintf("%s.event_type = %s", tables.Event, query.P("eventType")))
		params["eventType"] = int(qf.EventType)
	}

	if (needsSession || opts.JoinSession) && !c.dialect.InlineSessionColumns() {
		out.JoinSession = c.sessionJoin()
	}

	if qf.Cohort != uuid.Nil {
		cohort, err := c.cohort(ctx, qf, table, params)
		if err != nil {
			return nil, err
		}
		out.Cohort = cohort
	}

	return out, nil
}

func (c *Compiler) sessionJoin() string {
	t := c.dialect.Tables()
	return fmt.Sprintf("inner join %[2]s on %[1]s.session_id = %[2]s.session_id and %[1]s.website_id = %[2]s.website_id", t.Event, t.Session)
}

// column qualifies the column behind a filter name.
func (c *Compiler) column(name string) string {
	col, _ := QualifiedColumn(c.dialect, name)
	return col
}

// QualifiedColumn returns the table-qualified column behind a filter name in d.
func QualifiedColumn(d dialect.Dialect, name string) (string, bool) {
	col, ok := columns[name]
	if !ok {
		return "", false
	}
	t := d.Tables()
	if events.IsSessionColumn(col) {
		return t.Session + "." + col, true
	}
	return t.Event + "." + col, true
}

func (c *Compiler) conditions(filters []Filter, prefix string, params query.Params) ([]string, bool, error) {
	for _, f := range filters {
		if !IsName(f.Name) {
			return nil, false, &CompileError{Field: f.Name, Reason: "unknown filter"}
		}
	}

	sorted := slices.Clone(filters)
	slices.SortStableFunc(sorted, func(a, b Filter) int {
		return slices.Index(names, a.Name) - slices.Index(names, b.Name)
	})

	var (
		conds        []string
		needsSession bool
		seen         = map[string]int{}
	)
	for _, f := range sorted {
		if isAbsent(f.Value) {
			continue
		}

		op := normalizeOperator(f.Operator)
		vals, list, err := values(f.Value)
		if err != nil {
			return nil, false, &CompileError{Field: f.Name, Reason: "invalid value", Err: err}
		}
		if vals, err = normalizeValues(f.Name, vals); err != nil {
			return nil, false, err
		}

		seen[f.Name]++
		name := prefix + f.Name
		if n := seen[f.Name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		placeholder := query.P(name)
		col := c.column(f.Name)

		var cond string
		switch {
		case op == OpEquals && list:
			cond = c.dialect.InList(col, placeholder)
		case op == OpEquals:
			cond = fmt.Sprintf("%s = %s", col, placeholder)
		case op == OpNotEquals && list:
			cond = "not " + c.dialect.InList(col, placeholder)
		case op == OpNotEquals:
			cond = fmt.Sprintf("%s != %s", col, placeholder)
		case (op == OpContains || op == OpDoesNotContain) && list:
			return nil, false, &CompileError{Field: f.Name, Reason: "contains operators take a single value"}
		case op == OpContains:
			cond = c.dialect.Contains(col, placeholder)
		case op == OpDoesNotContain:
			cond = "not " + c.dialect.Contains(col, placeholder)
		default:
			return nil, false, &CompileError{Field: f.Name, Reason: fmt.Sprintf("unknown operator %q", f.Operator)}
		}

		if list {
			params[name] = vals
		} else {
			params[name] = vals[0]
		}
		conds = append(conds, cond)
		if events.IsSessionColumn(columns[f.Name]) {
			needsSession = true
		}
	}
	return conds, needsSession, nil
}

func (c *Compiler) cohort(ctx context.Context, qf *QueryFilters, table string, params query.Params) (string, error) {
	segment, err := c.lookup(ctx, "cohort", qf.WebsiteID, qf.Cohort)
	if err != nil {
		return "", err
	}

	action := segment.Parameters.Action
	if action == nil || action.Value == "" {
		return "", &CompileError{Field: "cohort", Reason: "cohort has no action"}
	}
	var actionColumn string
	switch action.Type {
	case "path":
		actionColumn = "url_path"
	case "event":
		actionColumn = "event_name"
	default:
		return "", &CompileError{Field: "cohort", Reason: fmt.Sprintf("unknown action type %q", action.Type)}
	}

	start, end := qf.StartDate, qf.EndDate
	if segment.Parameters.StartDate != nil {
		start = *segment.Parameters.StartDate
	}
	if segment.Parameters.EndDate != nil {
		end = *segment.Parameters.EndDate
	}

	conds, needsSession, err := c.conditions(segment.Parameters.Filters, "cohort_", params)
	if err != nil {
		return "", err
	}

	event := c.dialect.Tables().Event
	params["cohort_action"] = action.Value

	inner := &query.Select{From: event}
	inner.Column("distinct " + event + ".session_id")
	if needsSession && !c.dialect.InlineSessionColumns() {
		inner.Join(c.sessionJoin())
	}
	inner.And(fmt.Sprintf("%s.website_id = %s", event, query.PT("websiteId", "uuid")))
	inner.And(dateRange(event+".created_at", start, end, "cohort_", params)...)
	inner.And(fmt.Sprintf("%s.%s = %s", event, actionColumn, query.P("cohort_action")))
	inner.And(conds...)

	return fmt.Sprintf("inner join (\n%s\n) cohort on cohort.session_id = %s.session_id", inner.String(), table), nil
}

func (c *Compiler) lookup(ctx context.Context, field string, websiteID, id uuid.UUID) (*segments.Segment, error) {
	if c.segments == nil {
		return nil, &CompileError{Field: field, Reason: "segments are not available", Err: segments.ErrNotFound}
	}
	segment, err := c.segments.Get(ctx, websiteID, id)
	if err != nil {
		if errors.Is(err, segments.ErrNotFound) {
			return nil, &CompileError{Field: field, Reason: fmt.Sprintf("%s does not resolve", id), Err: err}
		}
		return nil, fmt.Errorf("error resolving %s: %w", field, err)
	}
	return segment, nil
}

// dateRange builds the date conditions: BETWEEN with both bounds, a single
// comparison with one, nothing with none.
func dateRange(column string, start, end time.Time, prefix string, params query.Params) []string {
	startName, endName := prefix+"startDate", prefix+"endDate"

	switch {
	case !start.IsZero() && !end.IsZero():
		params[startName] = start.UTC()
		params[endName] = end.UTC()
		return []string{fmt.Sprintf("%s between %s and %s", column, query.P(startName), query.P(endName))}
	case !start.IsZero():
		params[startName] = start.UTC()
		return []string{fmt.Sprintf("%s >= %s", column, query.P(startName))}
	case !end.IsZero():
		params[endName] = end.UTC()
		return []string{fmt.Sprintf("%s <= %s", column, query.P(endName))}
	default:
		return nil
	}
}

var countries = sync.OnceValue(gountries.New)

// normalizeValues validates values that have a closed vocabulary and puts
// them in canonical form.
func normalizeValues(name string, vals []string) ([]string, error) {
	out := make([]string, len(vals))
	for i, v := range vals {
		switch name {
		case "country":
			code := strings.ToUpper(strings.TrimSpace(v))
			if _, err := countries().FindCountryByAlpha(code); err != nil || len(code) != 2 {
				return nil, &CompileError{Field: name, Reason: fmt.Sprintf("%q is not an ISO 3166 alpha-2 code", v), Err: err}
			}
			out[i] = code
		case "language":
			tag, err := language.Parse(v)
			if err != nil {
				return nil, &CompileError{Field: name, Reason: fmt.Sprintf("%q is not a BCP 47 tag", v), Err: err}
			}
			out[i] = tag.String()
		default:
			out[i] = v
		}
	}
	return out, nil
}
