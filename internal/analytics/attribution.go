package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pulse/internal/backend"
	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/pkg/referrers"
	"pulse/internal/query"
)

// Attribution models.
const (
	FirstClick = "first-click"
	LastClick  = "last-click"
)

const attributionLimit = 20

type AttributionParams struct {
	// Model is FirstClick or LastClick. Empty means LastClick.
	Model string
	// Step is the conversion.
	Step Step
	// Currency switches every figure from converting sessions to revenue in
	// that currency.
	Currency string
}

// GetAttribution credits conversions to the touchpoint the model picks for
// each converting session: its first event for first-click, its last event
// before the final conversion for last-click. Each dimension is an
// independent top list.
func (e *Engine) GetAttribution(ctx context.Context, websiteID uuid.UUID, params AttributionParams, qf *filters.QueryFilters) (*AttributionResult, error) {
	model := params.Model
	if model == "" {
		model = LastClick
	}
	if model != FirstClick && model != LastClick {
		return nil, invalidf("unknown attribution model %q", params.Model)
	}

	qf = scope(websiteID, qf)
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return nil, err
	}
	d := e.Dialect()
	tables := d.Tables()
	event := tables.Event
	bind := compiled.Params.Clone()

	conversion, err := stepCondition(event, params.Step, "conversionStep", bind)
	if err != nil {
		return nil, err
	}

	conversions := &query.Select{From: event}
	conversions.Column(event+".session_id", "max("+event+".created_at) as max_dt")
	compiled.Apply(conversions).And(conversion).Group(event + ".session_id")

	anchor := &query.Select{From: "conversions"}
	anchor.Column("conversions.session_id").
		Join(fmt.Sprintf("inner join %[1]s on %[1]s.session_id = conversions.session_id", event)).
		And(compiled.Website).
		And(compiled.DateRange...).
		Group("conversions.session_id")
	if model == FirstClick {
		anchor.Column("min(" + event + ".created_at) as created_at")
	} else {
		anchor.Column("max(" + event + ".created_at) as created_at").
			And(event + ".created_at < conversions.max_dt")
	}

	ctes := []query.CTE{
		{Name: "conversions", Body: conversions.String()},
		{Name: "model", Body: anchor.String()},
	}

	if params.Currency != "" {
		bind["currency"] = params.Currency
		revenue := &query.Select{From: tables.Revenue}
		revenue.Column(tables.Revenue+".session_id", "sum("+tables.Revenue+".revenue) as revenue").
			Join(fmt.Sprintf("inner join conversions on conversions.session_id = %s.session_id", tables.Revenue)).
			And(fmt.Sprintf("%s.website_id = %s", tables.Revenue, query.PT("websiteId", "uuid"))).
			And(rangeOn(tables.Revenue+".created_at", qf)...).
			And(fmt.Sprintf("%s.currency = %s", tables.Revenue, query.P("currency"))).
			Group(tables.Revenue + ".session_id")
		ctes = append(ctes, query.CTE{Name: "revenue_sums", Body: revenue.String()})
	}

	statements := make(map[string]string, len(attributionDimensions)+1)
	for _, dim := range attributionDimensions {
		statements[dim.name] = query.With(ctes, e.attributionTouches(dim.expr(event), params.Currency != ""))
	}
	statements["total"] = query.With(ctes, attributionTotal(d.CountDistinct("session_id"), params.Currency != ""))

	results, err := e.parallel(ctx, statements, bind)
	if err != nil {
		return nil, err
	}

	out := &AttributionResult{
		Referrer:    toAttribution(results["referrer"]),
		PaidAds:     toAttribution(results["paidAds"]),
		UTMSource:   toAttribution(results["utm_source"]),
		UTMMedium:   toAttribution(results["utm_medium"]),
		UTMCampaign: toAttribution(results["utm_campaign"]),
		UTMContent:  toAttribution(results["utm_content"]),
		UTMTerm:     toAttribution(results["utm_term"]),
	}
	if rows := results["total"]; len(rows) > 0 {
		out.Total = normalize.Float(rows[0]["total"])
	}
	return out, nil
}

type attributionDimension struct {
	name string
	expr func(event string) string
}

func columnOf(column string) func(string) string {
	return func(event string) string {
		return fmt.Sprintf("coalesce(%s.%s, '')", event, column)
	}
}

var attributionDimensions = []attributionDimension{
	{name: "referrer", expr: columnOf("referrer_domain")},
	{name: "paidAds", expr: adPlatform},
	{name: "utm_source", expr: columnOf("utm_source")},
	{name: "utm_medium", expr: columnOf("utm_medium")},
	{name: "utm_campaign", expr: columnOf("utm_campaign")},
	{name: "utm_content", expr: columnOf("utm_content")},
	{name: "utm_term", expr: columnOf("utm_term")},
}

// adPlatform names the platform of the first non-empty click id.
func adPlatform(event string) string {
	var b strings.Builder
	b.WriteString("case")
	for _, p := range referrers.AdPlatforms {
		fmt.Fprintf(&b, " when coalesce(%s.%s, '') != '' then '%s'", event, p.Column, p.Name)
	}
	b.WriteString(" else '' end")
	return b.String()
}

// attributionTouches credits each session's anchor event. Events sharing the
// anchor timestamp resolve to the smallest value.
func (e *Engine) attributionTouches(expr string, revenue bool) string {
	d := e.Dialect()
	event := d.Tables().Event

	touches := &query.Select{From: "model"}
	touches.Column("model.session_id", "min("+expr+") as name").
		Join(fmt.Sprintf("inner join %[1]s on %[1]s.session_id = model.session_id and %[1]s.created_at = model.created_at", event)).
		And(fmt.Sprintf("%s.website_id = %s", event, query.PT("websiteId", "uuid"))).
		Group("model.session_id")

	s := &query.Select{From: fmt.Sprintf("(\n%s\n) touches", touches.String()), Limit: attributionLimit}
	if revenue {
		s.Column("name", "sum(revenue_sums.revenue) as value").
			Join("inner join revenue_sums on revenue_sums.session_id = touches.session_id")
	} else {
		s.Column("name", d.CountDistinct("touches.session_id")+" as value").
			And("name != ''")
	}
	return s.Group("name").Order("value desc", "name").String()
}

func attributionTotal(countDistinct string, revenue bool) string {
	if revenue {
		return "SELECT coalesce(sum(revenue), 0) as total FROM revenue_sums"
	}
	return "SELECT " + countDistinct + " as total FROM conversions"
}

// rangeOn applies the request range to column. The range values are bound by
// the filter compiler under startDate and endDate.
func rangeOn(column string, qf *filters.QueryFilters) []string {
	switch {
	case !qf.StartDate.IsZero() && !qf.EndDate.IsZero():
		return []string{fmt.Sprintf("%s between %s and %s", column, query.P("startDate"), query.P("endDate"))}
	case !qf.StartDate.IsZero():
		return []string{fmt.Sprintf("%s >= %s", column, query.P("startDate"))}
	case !qf.EndDate.IsZero():
		return []string{fmt.Sprintf("%s <= %s", column, query.P("endDate"))}
	}
	return nil
}

func toAttribution(rows []backend.Row) []MetricCount {
	out := make([]MetricCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, MetricCount{X: normalize.String(r["name"]), Y: normalize.Float(r["value"])})
	}
	return out
}
