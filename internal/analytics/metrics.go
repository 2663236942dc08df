package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pulse/internal/backend"
	"pulse/internal/events"
	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
)

const defaultPageSize = 500

// Breakdown types on top of the filter names.
const (
	TypeEntry = "entry"
	TypeExit  = "exit"
)

// MetricParams selects the dimension a breakdown groups by: any filter name,
// or entry/exit for the first/last page of each visit.
type MetricParams struct {
	Type string
}

// expandedOrder whitelists the expanded breakdown sort keys.
var expandedOrder = map[string]string{
	"name":      "name",
	"pageviews": "pageviews",
	"visitors":  "visitors",
	"visits":    "visits",
	"bounces":   "bounces",
	"totaltime": "totaltime",
}

type dimension struct {
	column  string
	session bool
	edge    string
}

func (e *Engine) dimension(metricType string) (dimension, error) {
	switch metricType {
	case TypeEntry, TypeExit:
		return dimension{column: e.Dialect().Tables().Event + ".url_path", edge: metricType}, nil
	}
	col, ok := filters.QualifiedColumn(e.Dialect(), metricType)
	if !ok {
		return dimension{}, invalidf("unknown metric type %q", metricType)
	}
	raw, _ := filters.Column(metricType)
	return dimension{column: col, session: events.IsSessionColumn(raw)}, nil
}

// breakdownScope compiles qf for a breakdown over dim.
func (e *Engine) breakdownScope(ctx context.Context, websiteID uuid.UUID, metricType string, qf *filters.QueryFilters) (dimension, *filters.Compiled, error) {
	dim, err := e.dimension(metricType)
	if err != nil {
		return dim, nil, err
	}

	eventType := events.EventTypePageView
	if metricType == "event" {
		eventType = events.EventTypeCustomEvent
	}
	qf = withEventType(scope(websiteID, qf), eventType)

	compiled, err := e.compile(ctx, qf, filters.Options{JoinSession: dim.session})
	if err != nil {
		return dim, nil, err
	}
	if qf.Search != "" {
		compiled.Params["search"] = qf.Search
	}
	return dim, compiled, nil
}

func (e *Engine) searchCondition(column string, qf *filters.QueryFilters) string {
	if qf == nil || qf.Search == "" {
		return ""
	}
	return e.Dialect().Contains(column, query.P("search"))
}

func (e *Engine) paginate(text string, qf *filters.QueryFilters) string {
	page, size := 1, defaultPageSize
	if qf != nil {
		if qf.Page > 0 {
			page = qf.Page
		}
		if qf.PageSize > 0 {
			size = qf.PageSize
		}
	}
	return e.Dialect().Paginate(text, page, size)
}

// visitEdges ranks the events of each visit and keeps the first (entry) or
// last (exit) one. Events sharing a timestamp are ordered by event id.
func (e *Engine) visitEdges(edge string, compiled *filters.Compiled) query.CTE {
	event := e.Dialect().Tables().Event
	direction := ""
	if edge == TypeExit {
		direction = " desc"
	}

	ranked := &query.Select{From: event}
	ranked.Column(
		event+".session_id",
		event+".visit_id",
		event+".url_path",
		fmt.Sprintf("row_number() over (partition by %[1]s.visit_id order by %[1]s.created_at%[2]s, %[1]s.event_id%[2]s) as rn", event, direction),
	)
	compiled.Apply(ranked)

	return query.CTE{
		Name: "visit_edges",
		Body: fmt.Sprintf("SELECT session_id, visit_id, url_path\nFROM (\n%s\n) ranked\nWHERE rn = 1", ranked.String()),
	}
}

// GetMetrics counts distinct sessions per value of one dimension, busiest
// first. Empty values are left out.
func (e *Engine) GetMetrics(ctx context.Context, websiteID uuid.UUID, params MetricParams, qf *filters.QueryFilters) ([]MetricCount, error) {
	dim, compiled, err := e.breakdownScope(ctx, websiteID, params.Type, qf)
	if err != nil {
		return nil, err
	}
	d := e.Dialect()

	var s *query.Select
	if dim.edge != "" {
		s = &query.Select{With: []query.CTE{e.visitEdges(dim.edge, compiled)}, From: "visit_edges"}
		s.Column("url_path as x", d.CountDistinct("session_id")+" as y").
			And("url_path != ''", e.searchCondition("url_path", qf)).
			Group("url_path")
	} else {
		s = &query.Select{From: d.Tables().Event}
		s.Column(dim.column+" as x", d.CountDistinct(d.Tables().Event+".session_id")+" as y")
		compiled.Apply(s).
			And(dim.column+" != ''", e.searchCondition(dim.column, qf)).
			Group(dim.column)
	}
	s.Order("y desc", "x")

	rows, err := e.run(ctx, params.Type+" metrics", e.paginate(s.String(), qf), compiled.Params)
	if err != nil {
		return nil, err
	}
	return toMetricCounts(rows), nil
}

// GetExpandedMetrics is GetMetrics with pageviews, visits, bounces and total
// time per value. A bounce is a visit with a single event; total time sums
// each visit's span in seconds.
func (e *Engine) GetExpandedMetrics(ctx context.Context, websiteID uuid.UUID, params MetricParams, qf *filters.QueryFilters) ([]ExpandedMetric, error) {
	dim, compiled, err := e.breakdownScope(ctx, websiteID, params.Type, qf)
	if err != nil {
		return nil, err
	}
	d := e.Dialect()
	event := d.Tables().Event

	inner := &query.Select{From: event}
	var with []query.CTE
	name := dim.column
	if dim.edge != "" {
		with = append(with, e.visitEdges(dim.edge, compiled))
		name = "visit_edges.url_path"
		inner.Join("inner join visit_edges on visit_edges.visit_id = " + event + ".visit_id")
	}
	inner.Column(
		name+" as name",
		event+".session_id",
		event+".visit_id",
		"count(*) as c",
		"min("+event+".created_at) as min_time",
		"max("+event+".created_at) as max_time",
	)
	compiled.Apply(inner).
		And(name+" != ''", e.searchCondition(name, qf)).
		Group(name, event+".session_id", event+".visit_id")
	with = append(with, query.CTE{Name: "visit_totals", Body: inner.String()})

	orderBy, direction := "visitors", " desc"
	if qf != nil && qf.OrderBy != "" {
		col, ok := expandedOrder[qf.OrderBy]
		if !ok {
			return nil, invalidf("cannot order by %q", qf.OrderBy)
		}
		orderBy = col
		if !qf.SortDescending {
			direction = " asc"
		}
	}

	s := &query.Select{With: with, From: "visit_totals"}
	s.Column(
		"name",
		"sum(c) as pageviews",
		d.CountDistinct("session_id")+" as visitors",
		d.CountDistinct("visit_id")+" as visits",
		"sum(case when c = 1 then 1 else 0 end) as bounces",
		"sum("+d.TimestampDiffSeconds("min_time", "max_time")+") as totaltime",
	).Group("name").Order(orderBy+direction)
	if orderBy != "name" {
		s.Order("name")
	}

	rows, err := e.run(ctx, params.Type+" expanded metrics", e.paginate(s.String(), qf), compiled.Params)
	if err != nil {
		return nil, err
	}

	out := make([]ExpandedMetric, 0, len(rows))
	for _, r := range rows {
		out = append(out, ExpandedMetric{
			Name:      normalize.String(r["name"]),
			Pageviews: normalize.Float(r["pageviews"]),
			Visitors:  normalize.Float(r["visitors"]),
			Visits:    normalize.Float(r["visits"]),
			Bounces:   normalize.Float(r["bounces"]),
			TotalTime: normalize.Float(r["totaltime"]),
		})
	}
	return out, nil
}

func toMetricCounts(rows []backend.Row) []MetricCount {
	out := make([]MetricCount, 0, len(rows))
	for _, r := range rows {
		x := normalize.String(r["x"])
		if x == "" {
			continue
		}
		out = append(out, MetricCount{X: x, Y: normalize.Float(r["y"])})
	}
	return out
}
