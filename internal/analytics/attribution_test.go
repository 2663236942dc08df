package analytics_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/internal/dialect"
	"pulse/internal/testsupport"
)

var signupConversion = analytics.Step{Type: "path", Value: "/signup"}

func statementWith(t *testing.T, exec *testsupport.FakeExecutor, fragment string) string {
	t.Helper()
	for _, c := range exec.Calls() {
		if contains(c.Text, fragment) {
			return c.Text
		}
	}
	t.Fatalf("no statement contains %q", fragment)
	return ""
}

func TestGetAttributionFirstClick(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("coalesce(website_event.referrer_domain, '')", map[string]any{"name": "a.com", "value": int64(1)}).
		On("then 'Google'", map[string]any{"name": "Google", "value": int64(1)}).
		On("as total FROM conversions", map[string]any{"total": int64(1)})

	result, err := engine.GetAttribution(context.Background(), websiteID, analytics.AttributionParams{
		Model: analytics.FirstClick,
		Step:  signupConversion,
	}, newFilters())
	require.NoError(t, err)

	assert.Equal(t, []analytics.MetricCount{{X: "a.com", Y: 1}}, result.Referrer)
	assert.Equal(t, []analytics.MetricCount{{X: "Google", Y: 1}}, result.PaidAds)
	assert.Empty(t, result.UTMSource)
	assert.Equal(t, float64(1), result.Total)
	assert.Len(t, exec.Calls(), 8)

	referrer := statementWith(t, exec, "coalesce(website_event.referrer_domain, '')")
	assert.Contains(t, referrer, "website_event.url_path = {{conversionStep}}")
	assert.Contains(t, referrer, "max(website_event.created_at) as max_dt")
	assert.Contains(t, referrer, "min(website_event.created_at) as created_at")
	assert.NotContains(t, referrer, "< conversions.max_dt")
	assert.Contains(t, referrer, "min(coalesce(website_event.referrer_domain, '')) as name")
	assert.Contains(t, referrer, "website_event.created_at = model.created_at")
	assert.Contains(t, referrer, "WHERE name != ''")
	assert.Contains(t, referrer, "LIMIT 20")

	ads := statementWith(t, exec, "then 'Google'")
	assert.Regexp(t, `'Google'.*'Facebook'.*'Microsoft'.*'TikTok'.*'LinkedIn'.*'Twitter'`, ads)
}

func TestGetAttributionLastClick(t *testing.T) {
	engine, exec := newEngine(dialect.ClickHouse{})

	_, err := engine.GetAttribution(context.Background(), websiteID, analytics.AttributionParams{
		Step: analytics.Step{Type: "event", Value: "purchase"},
	}, newFilters())
	require.NoError(t, err)

	text := statementWith(t, exec, "coalesce(website_event.utm_campaign, '')")
	assert.Contains(t, text, "website_event.event_name = {{conversionStep}}")
	assert.Contains(t, text, "max(website_event.created_at) as created_at")
	assert.Contains(t, text, "website_event.created_at < conversions.max_dt")
	assert.Contains(t, text, "uniqExact(touches.session_id) as value")
}

func TestGetAttributionRevenue(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("coalesce(website_event.utm_source, '')",
		map[string]any{"name": "newsletter", "value": decimal.RequireFromString("25.50")},
		map[string]any{"name": "", "value": "4.50"},
	).On("FROM revenue_sums", map[string]any{"total": decimal.RequireFromString("30")})

	result, err := engine.GetAttribution(context.Background(), websiteID, analytics.AttributionParams{
		Model:    analytics.FirstClick,
		Step:     signupConversion,
		Currency: "USD",
	}, newFilters())
	require.NoError(t, err)

	assert.Equal(t, []analytics.MetricCount{{X: "newsletter", Y: 25.5}, {X: "", Y: 4.5}}, result.UTMSource)
	assert.Equal(t, float64(30), result.Total)

	text := statementWith(t, exec, "coalesce(website_event.utm_source, '')")
	assert.Contains(t, text, "revenue_sums AS (")
	assert.Contains(t, text, "revenue.currency = {{currency}}")
	assert.Contains(t, text, "sum(revenue_sums.revenue) as value")
	assert.NotContains(t, text, "name != ''")
}

func TestGetAttributionRejectsUnknownModel(t *testing.T) {
	engine, _ := newEngine(dialect.Postgres{})
	_, err := engine.GetAttribution(context.Background(), websiteID, analytics.AttributionParams{
		Model: "linear",
		Step:  signupConversion,
	}, newFilters())
	assert.ErrorIs(t, err, analytics.ErrInvalidRequest)
}
