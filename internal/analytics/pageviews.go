package analytics

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"pulse/internal/backend"
	"pulse/internal/events"
	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
	"pulse/internal/timeframe"
)

// GetPageviewStats returns pageviews and distinct sessions per time bucket in
// the request timezone. With both range bounds set, buckets without traffic
// are filled with zeros.
func (e *Engine) GetPageviewStats(ctx context.Context, websiteID uuid.UUID, qf *filters.QueryFilters) (*PageviewStats, error) {
	qf = withEventType(scope(websiteID, qf), events.EventTypePageView)
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return nil, err
	}
	loc, err := qf.Location()
	if err != nil {
		return nil, err
	}

	unit := qf.Unit
	if !unit.Valid() {
		unit = timeframe.UnitDay
		if !qf.StartDate.IsZero() && !qf.EndDate.IsZero() {
			unit = timeframe.AppropriateUnit(qf.StartDate, qf.EndDate)
		}
	}

	d := e.Dialect()
	event := d.Tables().Event
	bucket := d.DateTrunc(event+".created_at", unit, qf.TimezoneName())

	series := func(value string) string {
		s := &query.Select{From: event}
		s.Column(bucket+" as x", value+" as y")
		compiled.Apply(s).Group(bucket).Order("x")
		return s.String()
	}

	results, err := e.parallel(ctx, map[string]string{
		"pageview series": series("count(*)"),
		"session series":  series(d.CountDistinct(event + ".session_id")),
	}, compiled.Params)
	if err != nil {
		return nil, err
	}

	var labels []string
	if !qf.StartDate.IsZero() && !qf.EndDate.IsZero() {
		frame, err := timeframe.NewTimeFrame(qf.StartDate, qf.EndDate, unit, loc)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		labels = frame.Buckets()
	}

	return &PageviewStats{
		Pageviews: fillSeries(labels, results["pageview series"]),
		Sessions:  fillSeries(labels, results["session series"]),
	}, nil
}

// fillSeries orders rows by bucket label. When labels is set every label is
// present, with 0 where no row matched; rows outside labels are kept.
func fillSeries(labels []string, rows []backend.Row) []SeriesPoint {
	values := make(map[string]float64, len(rows))
	var order []string
	for _, r := range rows {
		x := normalize.String(r["x"])
		if _, seen := values[x]; !seen {
			order = append(order, x)
		}
		values[x] += normalize.Float(r["y"])
	}

	out := make([]SeriesPoint, 0, max(len(labels), len(rows)))
	used := make(map[string]bool, len(labels))
	for _, l := range labels {
		out = append(out, SeriesPoint{X: l, Y: values[l]})
		used[l] = true
	}
	for _, x := range order {
		if !used[x] {
			out = append(out, SeriesPoint{X: x, Y: values[x]})
		}
	}
	if len(labels) > 0 {
		sortSeries(out)
	}
	return out
}

func sortSeries(points []SeriesPoint) {
	slices.SortStableFunc(points, func(a, b SeriesPoint) int {
		return strings.Compare(a.X, b.X)
	})
}
