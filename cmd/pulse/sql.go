package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pulse/internal/analytics"
	"pulse/internal/backend"
	"pulse/internal/dialect"
	"pulse/internal/filters"
	"pulse/internal/logging"
	"pulse/internal/timeframe"
)

var builders = []string{
	"metrics", "expanded", "channels", "stats", "pageviews",
	"journey", "funnel", "attribution", "revenue",
}

type sqlOptions struct {
	website     string
	startAt     string
	endAt       string
	unit        string
	timezone    string
	filters     []string
	metricType  string
	steps       []string
	window      int
	journeySize int
	model       string
	currency    string
	compare     bool
}

func newSQLCmd() *cobra.Command {
	opts := &sqlOptions{}
	cmd := &cobra.Command{
		Use:       "sql <builder>",
		Short:     "Print the SQL a builder generates for both backends",
		Long:      "Runs a builder against recording executors and prints the rendered statements.\nBuilders: " + strings.Join(builders, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: builders,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSQL(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.website, "website", "", "website id")
	f.StringVar(&opts.startAt, "start", "", "range start (date, RFC 3339 or epoch ms)")
	f.StringVar(&opts.endAt, "end", "", "range end (date, RFC 3339 or epoch ms)")
	f.StringVar(&opts.unit, "unit", "", "bucket unit: "+unitNames())
	f.StringVar(&opts.timezone, "timezone", "", "IANA timezone")
	f.StringArrayVar(&opts.filters, "filter", nil, "filter as name=[op:]value, repeatable")
	f.StringVar(&opts.metricType, "type", "path", "breakdown dimension")
	f.StringArrayVar(&opts.steps, "step", nil, "funnel or conversion step as type:value, repeatable")
	f.IntVar(&opts.window, "window", 60, "funnel window in minutes")
	f.IntVar(&opts.journeySize, "steps", 3, "journey length")
	f.StringVar(&opts.model, "model", analytics.LastClick, "attribution model")
	f.StringVar(&opts.currency, "currency", "USD", "revenue currency")
	f.BoolVar(&opts.compare, "compare", false, "include the previous period in stats")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}

func unitNames() string {
	names := make([]string, len(timeframe.Units))
	for i, u := range timeframe.Units {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}

func printSQL(ctx context.Context, w io.Writer, builder string, opts *sqlOptions) error {
	websiteID, err := uuid.Parse(opts.website)
	if err != nil {
		return fmt.Errorf("invalid website id: %w", err)
	}
	qf, err := opts.queryFilters()
	if err != nil {
		return err
	}
	steps, err := opts.parseSteps()
	if err != nil {
		return err
	}

	for _, d := range []dialect.Dialect{dialect.Postgres{}, dialect.ClickHouse{}} {
		rec := backend.NewRecorder(d)
		engine := analytics.NewEngine(rec, nil, 1, logging.Discard())
		if err := runBuilder(ctx, engine, builder, websiteID, opts, steps, qf); err != nil {
			return fmt.Errorf("%s: %w", d.Name(), err)
		}

		for _, r := range rec.Recorded() {
			fmt.Fprintf(w, "-- %s\n%s;\n", d.Name(), r.Statement.SQL)
			for i, arg := range r.Statement.Args {
				fmt.Fprintf(w, "--   $%d = %v\n", i+1, arg)
			}
			names := make([]string, 0, len(r.Statement.Named))
			for name := range r.Statement.Named {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "--   %s = %s\n", name, r.Statement.Named[name])
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func runBuilder(ctx context.Context, e *analytics.Engine, builder string, websiteID uuid.UUID, opts *sqlOptions, steps []analytics.Step, qf *filters.QueryFilters) error {
	var err error
	switch builder {
	case "metrics":
		_, err = e.GetMetrics(ctx, websiteID, analytics.MetricParams{Type: opts.metricType}, qf)
	case "expanded":
		_, err = e.GetExpandedMetrics(ctx, websiteID, analytics.MetricParams{Type: opts.metricType}, qf)
	case "channels":
		_, err = e.GetChannels(ctx, websiteID, qf)
	case "stats":
		_, err = e.GetWebsiteStats(ctx, websiteID, qf)
	case "pageviews":
		_, err = e.GetPageviewStats(ctx, websiteID, qf)
	case "journey":
		_, err = e.GetJourney(ctx, websiteID, analytics.JourneyParams{Steps: opts.journeySize}, qf)
	case "funnel":
		_, err = e.GetFunnel(ctx, websiteID, analytics.FunnelParams{Steps: steps, Window: opts.window}, qf)
	case "attribution":
		var step analytics.Step
		if len(steps) > 0 {
			step = steps[0]
		}
		_, err = e.GetAttribution(ctx, websiteID, analytics.AttributionParams{Model: opts.model, Step: step}, qf)
	case "revenue":
		_, err = e.GetRevenue(ctx, websiteID, analytics.RevenueParams{Currency: opts.currency}, qf)
	default:
		return fmt.Errorf("unknown builder %q, expected one of: %s", builder, strings.Join(builders, ", "))
	}
	return err
}

func (o *sqlOptions) queryFilters() (*filters.QueryFilters, error) {
	if o.unit != "" && !timeframe.Unit(o.unit).Valid() {
		return nil, fmt.Errorf("invalid unit %q, expected one of: %s", o.unit, unitNames())
	}
	tf, err := timeframe.NewParser().Parse(timeframe.ParserParams{
		StartAt:  o.startAt,
		EndAt:    o.endAt,
		Unit:     o.unit,
		Timezone: o.timezone,
	})
	if err != nil {
		return nil, err
	}

	qf := &filters.QueryFilters{
		StartDate: tf.From,
		EndDate:   tf.To,
		Unit:      tf.Unit,
		Timezone:  o.timezone,
		Compare:   o.compare,
	}
	for _, raw := range o.filters {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || !filters.IsName(name) {
			return nil, fmt.Errorf("invalid filter %q, expected name=[op:]value", raw)
		}
		op := filters.OpEquals
		if prefix, rest, found := strings.Cut(value, ":"); found {
			switch prefix {
			case filters.OpEquals, filters.OpNotEquals, filters.OpContains, filters.OpDoesNotContain:
				op, value = prefix, rest
			}
		}
		qf.AddOp(name, op, value)
	}
	return qf, nil
}

func (o *sqlOptions) parseSteps() ([]analytics.Step, error) {
	steps := make([]analytics.Step, 0, len(o.steps))
	for _, raw := range o.steps {
		typ, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid step %q, expected type:value", raw)
		}
		steps = append(steps, analytics.Step{Type: typ, Value: value})
	}
	return steps, nil
}
