package analytics_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/internal/dialect"
	"pulse/internal/events"
	"pulse/internal/timeframe"
)

func TestGetRevenue(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("total_sum", map[string]any{"total_sum": "30.00", "total_count": int64(2), "unique_count": int64(2)}).
		On("session_country", map[string]any{"x": "US", "y": "30.00"}).
		On("as t,", map[string]any{"x": "purchase", "t": "2024-07-01 00:00:00", "y": "30.00"})

	result, err := engine.GetRevenue(context.Background(), websiteID, analytics.RevenueParams{Currency: "USD"}, newFilters())
	require.NoError(t, err)

	assert.Equal(t, analytics.RevenueTotal{Sum: 30, Count: 2, UniqueCount: 2, Average: 15}, result.Total)
	assert.Equal(t, []analytics.MetricCount{{X: "US", Y: 30}}, result.Country)
	assert.Equal(t, []analytics.RevenuePoint{{X: "purchase", T: "2024-07-01 00:00:00", Y: 30}}, result.Chart)

	for _, c := range exec.Calls() {
		assert.Contains(t, c.Text, "revenue.website_id = {{websiteId::uuid}}")
		assert.Contains(t, c.Text, "revenue.created_at between {{startDate}} and {{endDate}}")
		assert.Contains(t, c.Text, "revenue.currency = {{currency}}")
		assert.NotContains(t, c.Text, "inner join website_event", "no filters, no event join")
	}
	chart := statementWith(t, exec, "as t,")
	assert.Contains(t, chart, "date_trunc('day', revenue.created_at at time zone 'UTC')")
}

func TestGetRevenueZeroCount(t *testing.T) {
	engine, exec := newEngine(dialect.ClickHouse{})
	exec.On("total_sum", map[string]any{"total_sum": decimal.Zero, "total_count": uint64(0), "unique_count": uint64(0)})

	result, err := engine.GetRevenue(context.Background(), websiteID, analytics.RevenueParams{Currency: "EUR"}, newFilters())
	require.NoError(t, err)
	assert.Equal(t, analytics.RevenueTotal{}, result.Total)
	assert.Empty(t, result.Chart)
	assert.Empty(t, result.Country)

	total := statementWith(t, exec, "total_sum")
	assert.Contains(t, total, "FROM website_revenue")
	assert.Contains(t, total, "uniqExact(website_revenue.event_id) as total_count")
}

func TestGetRevenueEventTypeJoinsEvents(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	qf := newFilters()
	qf.EventType = events.EventTypeCustomEvent

	_, err := engine.GetRevenue(context.Background(), websiteID, analytics.RevenueParams{Currency: "USD"}, qf)
	require.NoError(t, err)

	for _, c := range exec.Calls() {
		assert.Contains(t, c.Text, "website_event.event_type = {{eventType}}")
		assert.Contains(t, c.Text, "inner join website_event on website_event.event_id = revenue.event_id")
	}
}

func TestGetRevenueJoinsEventsOnlyWithFilters(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	qf := newFilters().Add("path", "/checkout").Add("country", "us")
	qf.Unit = timeframe.UnitMonth
	qf.Timezone = "Europe/Madrid"

	_, err := engine.GetRevenue(context.Background(), websiteID, analytics.RevenueParams{Currency: "USD"}, qf)
	require.NoError(t, err)

	chart := statementWith(t, exec, "as t,")
	assert.Contains(t, chart, "inner join website_event on website_event.event_id = revenue.event_id")
	assert.Contains(t, chart, "inner join session on website_event.session_id = session.session_id")
	assert.Contains(t, chart, "website_event.url_path = {{path}}")
	assert.Contains(t, chart, "session.country = {{country}}")
	assert.Contains(t, chart, "date_trunc('month', revenue.created_at at time zone 'Europe/Madrid')")
	assert.Less(t,
		indexOf(chart, "inner join website_event"),
		indexOf(chart, "inner join session"),
		"the event join must precede the session join")
}

func TestGetRevenueRequiresCurrency(t *testing.T) {
	engine, _ := newEngine(dialect.Postgres{})
	_, err := engine.GetRevenue(context.Background(), websiteID, analytics.RevenueParams{}, newFilters())
	assert.ErrorIs(t, err, analytics.ErrInvalidRequest)
}
