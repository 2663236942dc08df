package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pulse/internal/filters"
	"pulse/internal/normalize"
	"pulse/internal/query"
)

const (
	minFunnelSteps = 2
	maxFunnelSteps = 8
)

// Step is one funnel or attribution target: a page path or an event name.
// A value with a leading or trailing * matches as a pattern.
type Step struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type FunnelParams struct {
	Steps []Step
	// Window is the number of minutes a session has to reach the next step.
	Window int
}

func stepColumn(stepType string) (string, error) {
	switch stepType {
	case "path", "url":
		return "url_path", nil
	case "event":
		return "event_name", nil
	default:
		return "", invalidf("unknown step type %q", stepType)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a leading or trailing * into a LIKE wildcard. Everything
// else, including a * inside the value, matches literally. ok is false when
// the value has no wildcard.
func likePattern(value string) (pattern string, ok bool) {
	core := value
	leading := strings.HasPrefix(core, "*")
	if leading {
		core = core[1:]
	}
	trailing := strings.HasSuffix(core, "*")
	if trailing {
		core = core[:len(core)-1]
	}
	if !leading && !trailing {
		return "", false
	}

	pattern = likeEscaper.Replace(core)
	if leading {
		pattern = "%" + pattern
	}
	if trailing {
		pattern += "%"
	}
	return pattern, true
}

// stepCondition matches table's column for s, binding the value to name.
func stepCondition(table string, s Step, name string, params query.Params) (string, error) {
	col, err := stepColumn(s.Type)
	if err != nil {
		return "", err
	}
	if s.Value == "" {
		return "", invalidf("step %s has no value", name)
	}
	col = table + "." + col
	if pattern, ok := likePattern(s.Value); ok {
		params[name] = pattern
		return fmt.Sprintf("%s like %s", col, query.P(name)), nil
	}
	params[name] = s.Value
	return fmt.Sprintf("%s = %s", col, query.P(name)), nil
}

// GetFunnel counts the sessions reaching each step. Step 1 matches anywhere
// in the range; every later step must follow the previous one within the
// window and no later than the end of the range.
func (e *Engine) GetFunnel(ctx context.Context, websiteID uuid.UUID, params FunnelParams, qf *filters.QueryFilters) ([]FunnelStepResult, error) {
	if n := len(params.Steps); n < minFunnelSteps || n > maxFunnelSteps {
		return nil, invalidf("a funnel needs %d to %d steps, got %d", minFunnelSteps, maxFunnelSteps, n)
	}
	if params.Window <= 0 {
		return nil, invalidf("funnel window must be positive, got %d", params.Window)
	}

	qf = scope(websiteID, qf)
	compiled, err := e.compile(ctx, qf, filters.Options{})
	if err != nil {
		return nil, err
	}
	d := e.Dialect()
	event := d.Tables().Event
	bind := compiled.Params.Merge(query.Params{"window": params.Window})

	var (
		ctes   []query.CTE
		levels []string
	)
	for i, step := range params.Steps {
		level := i + 1
		name := fmt.Sprintf("level%d", level)
		cond, err := stepCondition(event, step, fmt.Sprintf("step%d", level), bind)
		if err != nil {
			return nil, err
		}

		s := &query.Select{}
		if level == 1 {
			s.From = event
			s.Column("distinct "+event+".session_id", event+".created_at")
			compiled.Apply(s).And(cond)
		} else {
			s.From = fmt.Sprintf("level%d prev", level-1)
			s.Column("distinct prev.session_id", event+".created_at").
				Join(fmt.Sprintf("inner join %s on %s.session_id = prev.session_id", event, event)).
				And(
					compiled.Website,
					fmt.Sprintf("%s.created_at between prev.created_at and %s", event, d.AddMinutes("prev.created_at", "window")),
				)
			if !qf.EndDate.IsZero() {
				s.And(fmt.Sprintf("%s.created_at <= %s", event, query.P("endDate")))
			}
			s.And(cond)
		}
		ctes = append(ctes, query.CTE{Name: name, Body: s.String()})
		levels = append(levels, fmt.Sprintf("SELECT %d as level, %s as visitors FROM %s", level, d.CountDistinct("session_id"), name))
	}

	rows, err := e.run(ctx, "funnel", query.With(ctes, query.UnionAll(levels...)), bind)
	if err != nil {
		return nil, err
	}

	visitors := make([]float64, len(params.Steps))
	for _, r := range rows {
		level := normalize.Int(r["level"])
		if level >= 1 && level <= len(visitors) {
			visitors[level-1] = normalize.Float(r["visitors"])
		}
	}
	return funnelSteps(params.Steps, visitors), nil
}

// funnelSteps derives dropoff and remaining from the per-step visitors.
// Zero denominators give 0.
func funnelSteps(steps []Step, visitors []float64) []FunnelStepResult {
	out := make([]FunnelStepResult, len(steps))
	for i, s := range steps {
		r := FunnelStepResult{Type: s.Type, Value: s.Value, Visitors: visitors[i]}
		if i == 0 {
			if visitors[0] > 0 {
				r.Remaining = 1
			}
		} else {
			r.Previous = visitors[i-1]
			r.Dropped = r.Previous - r.Visitors
			r.Dropoff = normalize.Ratio(r.Dropped, r.Previous)
			r.Remaining = normalize.Ratio(r.Visitors, visitors[0])
		}
		out[i] = r
	}
	return out
}
