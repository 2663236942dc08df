package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
	"pulse/internal/timeframe"
)

type RevenueParams struct {
	Currency string
}

// GetRevenue sums revenue in one currency per event name and time bucket, per
// country, and overall. Revenue rows are only joined to their events when
// dimension filters need it.
func (e *Engine) GetRevenue(ctx context.Context, websiteID uuid.UUID, params RevenueParams, qf *filters.QueryFilters) (*RevenueResult, error) {
	if params.Currency == "" {
		return nil, invalidf("currency is required")
	}

	qf = scope(websiteID, qf)
	d := e.Dialect()
	tables := d.Tables()
	revenue := tables.Revenue

	compiled, err := e.compile(ctx, qf, filters.Options{Table: revenue})
	if err != nil {
		return nil, err
	}
	bind := compiled.Params.Merge(query.Params{"currency": params.Currency})
	joinEvents := qf.HasFilters() || qf.EventType != 0

	base := func() *query.Select {
		s := &query.Select{From: revenue}
		if joinEvents {
			s.Join(fmt.Sprintf(
				"inner join %[1]s on %[1]s.event_id = %[2]s.event_id and %[1]s.session_id = %[2]s.session_id and %[1]s.website_id = %[2]s.website_id",
				tables.Event, revenue,
			))
		}
		compiled.Apply(s).And(fmt.Sprintf("%s.currency = %s", revenue, query.P("currency")))
		return s
	}

	unit := qf.Unit
	if !unit.Valid() {
		unit = timeframe.UnitDay
	}
	bucket := d.DateTrunc(revenue+".created_at", unit, qf.TimezoneName())
	chart := base()
	chart.Column(revenue+".event_name as x", bucket+" as t", "sum("+revenue+".revenue) as y").
		Group(revenue+".event_name", bucket).
		Order("t", "x")

	country := base()
	country.Column("session_country.country as x", "sum("+revenue+".revenue) as y").
		Join(fmt.Sprintf(
			"inner join (\nSELECT %[1]s.session_id, max(%[1]s.country) as country\nFROM %[1]s\nWHERE %[1]s.website_id = %[2]s\nGROUP BY %[1]s.session_id\n) session_country on session_country.session_id = %[3]s.session_id",
			tables.Session, query.PT("websiteId", "uuid"), revenue,
		)).
		Group("session_country.country").
		Order("y desc", "x")

	total := base()
	total.Column(
		"coalesce(sum("+revenue+".revenue), 0) as total_sum",
		d.CountDistinct(revenue+".event_id")+" as total_count",
		d.CountDistinct(revenue+".session_id")+" as unique_count",
	)

	results, err := e.parallel(ctx, map[string]string{
		"revenue chart":   chart.String(),
		"revenue country": country.String(),
		"revenue total":   total.String(),
	}, bind)
	if err != nil {
		return nil, err
	}

	out := &RevenueResult{
		Chart:   make([]RevenuePoint, 0, len(results["revenue chart"])),
		Country: toMetricCounts(results["revenue country"]),
	}
	for _, r := range results["revenue chart"] {
		out.Chart = append(out.Chart, RevenuePoint{
			X: normalize.String(r["x"]),
			T: normalize.String(r["t"]),
			Y: normalize.Float(r["y"]),
		})
	}
	if rows := results["revenue total"]; len(rows) > 0 {
		out.Total = revenueTotal(
			normalize.Float(rows[0]["total_sum"]),
			normalize.Float(rows[0]["total_count"]),
			normalize.Float(rows[0]["unique_count"]),
		)
	}
	return out, nil
}

// revenueTotal computes the average per revenue event, 0 without events.
func revenueTotal(sum, count, unique float64) RevenueTotal {
	return RevenueTotal{
		Sum:         sum,
		Count:       count,
		UniqueCount: unique,
		Average:     normalize.Ratio(sum, count),
	}
}
