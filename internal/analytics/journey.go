package analytics

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
)

const (
	minJourneySteps = 2
	maxJourneySteps = 7
	journeyLimit    = 100
)

type JourneyParams struct {
	// Steps is how many steps of each visit are compared.
	Steps     int
	StartStep string
	EndStep   string
}

// GetJourney groups visits by the sequence of their first steps and returns
// the most frequent sequences. A step is the event name, or the path for
// pageviews, and consecutive repeats collapse into one step.
func (e *Engine) GetJourney(ctx context.Context, websiteID uuid.UUID, params JourneyParams, qf *filters.QueryFilters) ([]JourneyPath, error) {
	if params.Steps < minJourneySteps || params.Steps > maxJourneySteps {
		return nil, invalidf("a journey has %d to %d steps, got %d", minJourneySteps, maxJourneySteps, params.Steps)
	}

	qf = scope(websiteID, qf)
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return nil, err
	}
	d := e.Dialect()
	event := d.Tables().Event
	bind := compiled.Params.Clone()

	stepName := fmt.Sprintf("coalesce(nullif(%[1]s.event_name, ''), %[1]s.url_path)", event)
	ordered := &query.Select{From: event}
	ordered.Column(
		event+".visit_id",
		event+".created_at",
		event+".event_id",
		stepName+" as step_name",
		d.Lag(stepName, event+".visit_id", event+".created_at, "+event+".event_id")+" as previous_step",
	)
	compiled.Apply(ordered)

	deduped := &query.Select{From: "ordered"}
	deduped.Column(
		"visit_id",
		"step_name",
		"row_number() over (partition by visit_id order by created_at, event_id) as step_number",
	).And("step_name != ''", "coalesce(previous_step, '') != step_name")

	stepColumns := make([]string, params.Steps)
	pivoted := &query.Select{From: "deduped"}
	pivoted.Column("visit_id")
	for i := range stepColumns {
		stepColumns[i] = fmt.Sprintf("e%d", i+1)
		pivoted.Column(fmt.Sprintf("max(case when step_number = %d then step_name else null end) as %s", i+1, stepColumns[i]))
	}
	pivoted.Group("visit_id")

	sequences := &query.Select{From: fmt.Sprintf("(\n%s\n) pivoted", pivoted.String())}
	sequences.Column(stepColumns...).Column("count(*) as sequence_count").Group(stepColumns...)

	s := &query.Select{
		With: []query.CTE{
			{Name: "ordered", Body: ordered.String()},
			{Name: "deduped", Body: deduped.String()},
			{Name: "sequences", Body: sequences.String()},
		},
		From:  "sequences",
		Limit: journeyLimit,
	}
	s.Column(stepColumns...).Column("sequence_count")
	if params.StartStep != "" {
		bind["startStep"] = params.StartStep
		s.And("e1 = " + query.P("startStep"))
	}
	if params.EndStep != "" {
		bind["endStep"] = params.EndStep
		s.And(endStepCondition(stepColumns))
	}
	s.Order("sequence_count desc").Order(stepColumns...)

	rows, err := e.run(ctx, "journey", s.String(), bind)
	if err != nil {
		return nil, err
	}

	out := make([]JourneyPath, 0, len(rows))
	index := map[string]int{}
	for _, r := range rows {
		items := make([]string, 0, len(stepColumns))
		for _, col := range stepColumns {
			if normalize.IsNull(r[col]) {
				break
			}
			items = append(items, normalize.String(r[col]))
		}
		items = CollapseRepeats(items)
		count := normalize.Float(r["sequence_count"])

		key := strings.Join(items, "\x00")
		if i, ok := index[key]; ok {
			out[i].Count += count
			continue
		}
		index[key] = len(out)
		out = append(out, JourneyPath{Items: items, Count: count})
	}
	slices.SortStableFunc(out, func(a, b JourneyPath) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})
	return out, nil
}

// endStepCondition matches sequences that end at the end step: either the
// last column holds it, or it is followed by no further step.
func endStepCondition(columns []string) string {
	end := query.P("endStep")
	last := len(columns) - 1
	conds := []string{fmt.Sprintf("%s = %s", columns[last], end)}
	for i := 0; i < last; i++ {
		conds = append(conds, fmt.Sprintf("(%s = %s and %s is null)", columns[i], end, columns[i+1]))
	}
	return "(" + strings.Join(conds, " or ") + ")"
}

// CollapseRepeats merges adjacent equal steps. Non-adjacent repeats stay.
func CollapseRepeats(items []string) []string {
	return slices.Compact(slices.Clone(items))
}
