package analytics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/analytics"
	"pulse/internal/dialect"
)

func TestGetChannels(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	exec.On("channels",
		map[string]any{"x": "organicSearch", "y": int64(3)},
		map[string]any{"x": "direct", "y": uint64(2)},
	)

	result, err := engine.GetChannels(context.Background(), websiteID, newFilters())
	require.NoError(t, err)
	assert.Equal(t, []analytics.MetricCount{{X: "organicSearch", Y: 3}, {X: "direct", Y: 2}}, result)

	text := exec.LastCall().Text
	assert.Contains(t, text, "WITH sources AS (")
	assert.Contains(t, text, "coalesce(website_event.referrer_domain, '') as referrer_domain")
	assert.Contains(t, text, "case when (utm_medium ilike '%cp%'")
	assert.Contains(t, text, "WHERE channel != ''")
	assert.Contains(t, text, "sum(visitors) as y")
}

func TestChannelDecisionOrder(t *testing.T) {
	engine, exec := newEngine(dialect.ClickHouse{})
	_, err := engine.GetChannels(context.Background(), websiteID, newFilters())
	require.NoError(t, err)
	text := exec.LastCall().Text

	labels := []string{
		"then 'direct'",
		"then 'paidAds'",
		"then 'referral'",
		"then 'affiliate'",
		"then 'sms'",
		"'paidSearch' else 'organicSearch'",
		"then 'social'",
		"then 'email'",
		"'paidShopping' else 'organicShopping'",
		"'paidVideo' else 'organicVideo'",
	}
	last := -1
	for _, l := range labels {
		i := strings.Index(text, l)
		require.NotEqual(t, -1, i, "missing branch %s", l)
		assert.Greater(t, i, last, "branch %s is out of order", l)
		last = i
	}

	assert.Contains(t, text, "when referrer_domain = '' and url_query = '' then 'direct'")
	assert.Contains(t, text, "multiSearchAnyCaseInsensitive(referrer_domain, ['google'")
	assert.Contains(t, text, "multiSearchAnyCaseInsensitive(url_query, ['gclid='")
}

func TestChannelSocialShortHostsMatchWholeHost(t *testing.T) {
	engine, exec := newEngine(dialect.Postgres{})
	_, err := engine.GetChannels(context.Background(), websiteID, newFilters())
	require.NoError(t, err)
	text := exec.LastCall().Text

	assert.Contains(t, text, "lower(referrer_domain) in ('t.co', 'x.com'")
	assert.Contains(t, text, "lower(referrer_domain) like '%.x.com'")
	assert.NotContains(t, text, "referrer_domain ilike '%t.co%'")
	assert.NotContains(t, text, "referrer_domain ilike '%x.com%'")
	assert.NotContains(t, text, "yahoo.mail")
}
