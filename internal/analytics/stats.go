package analytics

import (
	"context"

	"github.com/google/uuid"

	"pulse/internal/events"
	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
	"pulse/internal/timeframe"
)

// GetWebsiteStats returns the pageview totals for the range and, when
// qf.Compare is set, the same totals for the preceding range of equal length.
func (e *Engine) GetWebsiteStats(ctx context.Context, websiteID uuid.UUID, qf *filters.QueryFilters) (*WebsiteStats, error) {
	qf = withEventType(scope(websiteID, qf), events.EventTypePageView)

	current, err := e.statsStatement(ctx, qf)
	if err != nil {
		return nil, err
	}
	statements := map[string]query.Statement{"stats": current}

	if qf.Compare {
		if qf.StartDate.IsZero() || qf.EndDate.IsZero() {
			return nil, invalidf("comparison needs both a start and an end date")
		}
		frame, err := timeframe.NewTimeFrame(qf.StartDate, qf.EndDate, qf.Unit, nil)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		previous := frame.Previous()
		prev := *qf
		prev.StartDate, prev.EndDate = previous.From, previous.To
		stmt, err := e.statsStatement(ctx, &prev)
		if err != nil {
			return nil, err
		}
		statements["comparison stats"] = stmt
	}

	results, err := e.parallelStatements(ctx, statements)
	if err != nil {
		return nil, err
	}

	stats := toWebsiteStats(results["stats"])
	if qf.Compare {
		stats.Comparison = toWebsiteStats(results["comparison stats"])
	}
	return stats, nil
}

func (e *Engine) statsStatement(ctx context.Context, qf *filters.QueryFilters) (query.Statement, error) {
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return query.Statement{}, err
	}
	d := e.Dialect()
	event := d.Tables().Event

	visits := &query.Select{From: event}
	visits.Column(
		event+".session_id",
		event+".visit_id",
		"count(*) as c",
		"min("+event+".created_at) as min_time",
		"max("+event+".created_at) as max_time",
	)
	compiled.Apply(visits).Group(event+".session_id", event+".visit_id")

	s := &query.Select{With: []query.CTE{{Name: "visit_totals", Body: visits.String()}}, From: "visit_totals"}
	s.Column(
		"coalesce(sum(c), 0) as pageviews",
		d.CountDistinct("session_id")+" as visitors",
		d.CountDistinct("visit_id")+" as visits",
		"coalesce(sum(case when c = 1 then 1 else 0 end), 0) as bounces",
		"coalesce(sum("+d.TimestampDiffSeconds("min_time", "max_time")+"), 0) as totaltime",
	)
	return query.Statement{Text: s.String(), Params: compiled.Params}, nil
}

func toWebsiteStats(rows []map[string]any) *WebsiteStats {
	stats := &WebsiteStats{}
	if len(rows) == 0 {
		return stats
	}
	r := rows[0]
	stats.Pageviews = normalize.Float(r["pageviews"])
	stats.Visitors = normalize.Float(r["visitors"])
	stats.Visits = normalize.Float(r["visits"])
	stats.Bounces = normalize.Float(r["bounces"])
	stats.TotalTime = normalize.Float(r["totaltime"])
	return stats
}
