package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/internal/dialect"
	"pulse/internal/timeframe"
)

func TestGetWebsiteStats(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("visit_totals", map[string]any{
		"pageviews": int64(40), "visitors": int64(10), "visits": int64(12), "bounces": int64(3), "totaltime": "1800",
	})

	stats, err := engine.GetWebsiteStats(context.Background(), websiteID, newFilters())
	require.NoError(t, err)
	assert.Equal(t, &analytics.WebsiteStats{Pageviews: 40, Visitors: 10, Visits: 12, Bounces: 3, TotalTime: 1800}, stats)
	assert.Len(t, exec.Calls(), 1)
}

func TestGetWebsiteStatsCompare(t *testing.T) {
	engine, exec := newEngine(dialect.ClickHouse{})
	exec.On("visit_totals", map[string]any{"pageviews": uint64(5), "visitors": uint64(2)})
	qf := newFilters()
	qf.Compare = true

	stats, err := engine.GetWebsiteStats(context.Background(), websiteID, qf)
	require.NoError(t, err)
	require.NotNil(t, stats.Comparison)
	assert.Equal(t, float64(5), stats.Comparison.Pageviews)

	calls := exec.Calls()
	require.Len(t, calls, 2)
	var starts []time.Time
	for _, c := range calls {
		starts = append(starts, c.Params["startDate"].(time.Time))
	}
	previousEnd := start.Add(-time.Second)
	previousStart := previousEnd.Add(-end.Sub(start))
	assert.ElementsMatch(t, []time.Time{start, previousStart}, starts)
}

func TestGetWebsiteStatsCompareNeedsBounds(t *testing.T) {
	engine, _ := newEngine(dialect.Postgres{})
	qf := newFilters()
	qf.Compare = true
	qf.EndDate = time.Time{}

	_, err := engine.GetWebsiteStats(context.Background(), websiteID, qf)
	assert.ErrorIs(t, err, analytics.ErrInvalidRequest)
}

func TestGetPageviewStats(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("count(*) as y",
		map[string]any{"x": "2024-07-03 00:00:00", "y": int64(8)},
		map[string]any{"x": "2024-07-01 00:00:00", "y": int64(5)},
	).On("count(distinct website_event.session_id) as y",
		map[string]any{"x": "2024-07-01 00:00:00", "y": int64(2)},
	)

	stats, err := engine.GetPageviewStats(context.Background(), websiteID, newFilters())
	require.NoError(t, err)

	require.Len(t, stats.Pageviews, 7)
	assert.Equal(t, analytics.SeriesPoint{X: "2024-07-01 00:00:00", Y: 5}, stats.Pageviews[0])
	assert.Equal(t, analytics.SeriesPoint{X: "2024-07-02 00:00:00", Y: 0}, stats.Pageviews[1])
	assert.Equal(t, analytics.SeriesPoint{X: "2024-07-03 00:00:00", Y: 8}, stats.Pageviews[2])
	assert.Equal(t, "2024-07-07 00:00:00", stats.Pageviews[6].X)

	require.Len(t, stats.Sessions, 7)
	assert.Equal(t, float64(2), stats.Sessions[0].Y)

	text := statementWith(t, exec, "count(*) as y")
	assert.Contains(t, text, "GROUP BY to_char(date_trunc('day', website_event.created_at at time zone 'UTC')")
	assert.Contains(t, text, "ORDER BY x")
}

func TestGetPageviewStatsHourlyColumnar(t *testing.T) {
	engine, exec := newEngine(dialect.ClickHouse{})
	qf := newFilters()
	qf.EndDate = start.Add(5 * time.Hour)
	qf.Unit = timeframe.UnitHour
	qf.Timezone = "America/New_York"

	stats, err := engine.GetPageviewStats(context.Background(), websiteID, qf)
	require.NoError(t, err)
	assert.Len(t, stats.Pageviews, 6)
	assert.Equal(t, "2024-06-30 20:00:00", stats.Pageviews[0].X)

	text := statementWith(t, exec, "count(*) as y")
	assert.Contains(t, text, "toStartOfHour(website_event.created_at, 'America/New_York')")
}
