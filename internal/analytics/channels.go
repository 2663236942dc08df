package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pulse/internal/dialect"
	"pulse/internal/events"
	"pulse/internal/filters"
	"pulse/internal/pkg/referrers"
	"pulse/internal/query"
)

// GetChannels classifies traffic into channels and sums distinct sessions per
// channel, busiest first. Rows no rule matches are left out.
func (e *Engine) GetChannels(ctx context.Context, websiteID uuid.UUID, qf *filters.QueryFilters) ([]MetricCount, error) {
	qf = withEventType(scope(websiteID, qf), events.EventTypePageView)
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return nil, err
	}
	d := e.Dialect()
	event := d.Tables().Event

	fields := []string{"referrer_domain", "url_query", "utm_source", "utm_medium"}
	sources := &query.Select{From: event}
	for _, f := range fields {
		expr := fmt.Sprintf("coalesce(%s.%s, '')", event, f)
		sources.Column(expr + " as " + f).Group(expr)
	}
	sources.Column(d.CountDistinct(event+".session_id") + " as visitors")
	compiled.Apply(sources)

	flagged := fmt.Sprintf(
		"SELECT referrer_domain, url_query, utm_source, utm_medium, visitors,\n  case when %s then 1 else 0 end as paid\nFROM sources",
		d.MultiMatch("utm_medium", referrers.PaidMediums),
	)
	channels := fmt.Sprintf("SELECT %s as channel, visitors\nFROM (\n%s\n) flagged", channelCase(d), flagged)

	s := &query.Select{
		With: []query.CTE{
			{Name: "sources", Body: sources.String()},
			{Name: "channels", Body: channels},
		},
		From: "channels",
	}
	s.Column("channel as x", "sum(visitors) as y").
		And("channel != ''").
		Group("channel").
		Order("y desc", "x")

	rows, err := e.run(ctx, "channels", s.String(), compiled.Params)
	if err != nil {
		return nil, err
	}
	return toMetricCounts(rows), nil
}

// channelCase renders the channel decision tree over the flagged sources
// columns. The first matching branch wins.
func channelCase(d dialect.Dialect) string {
	prefixed := func(paid, organic referrers.Channel) string {
		return fmt.Sprintf("case when paid = 1 then '%s' else '%s' end", paid, organic)
	}
	contains := func(column string, words ...string) string {
		return d.MultiMatch(column, words)
	}

	branches := []struct {
		when string
		then string
	}{
		{"referrer_domain = '' and url_query = ''", literal(referrers.Direct)},
		{d.MultiMatch("url_query", referrers.PaidAdParams), literal(referrers.PaidAds)},
		{"lower(utm_medium) in (" + strings.Join(quoted(referrers.ReferralMediums), ", ") + ")", literal(referrers.Referral)},
		{contains("utm_medium", "affiliate"), literal(referrers.Affiliate)},
		{"lower(utm_medium) = 'sms' or lower(utm_source) = 'sms'", literal(referrers.SMS)},
		{d.MultiMatch("referrer_domain", referrers.SearchDomains) + " or " + contains("utm_medium", "organic"),
			prefixed(referrers.PaidSearch, referrers.OrganicSearch)},
		{d.MultiMatch("referrer_domain", referrers.SocialDomains) + " or " + referrers.HostCondition("referrer_domain", referrers.SocialHosts) +
			" or lower(utm_medium) = 'social'", literal(referrers.Social)},
		{d.MultiMatch("referrer_domain", referrers.EmailDomains) + " or " + contains("utm_medium", "mail"), literal(referrers.Email)},
		{d.MultiMatch("referrer_domain", referrers.ShoppingDomains) + " or " + contains("utm_medium", "shop"),
			prefixed(referrers.PaidShopping, referrers.OrganicShopping)},
		{d.MultiMatch("referrer_domain", referrers.VideoDomains) + " or " + contains("utm_medium", "video"),
			prefixed(referrers.PaidVideo, referrers.OrganicVideo)},
	}

	var b strings.Builder
	b.WriteString("case")
	for _, br := range branches {
		fmt.Fprintf(&b, "\n    when %s then %s", br.when, br.then)
	}
	b.WriteString("\n    else ''\n  end")
	return b.String()
}

func literal(c referrers.Channel) string {
	return "'" + string(c) + "'"
}

// quoted renders constant words as SQL string literals. Only used for the
// static lists in referrers, which hold no quotes.
func quoted(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = "'" + w + "'"
	}
	return out
}
