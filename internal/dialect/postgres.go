package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"pulse/internal/query"
	"pulse/internal/timeframe"
)

// Postgres is the relational dialect.
type Postgres struct{}

func (Postgres) Name() Name { return Relational }

func (Postgres) Tables() Tables {
	return Tables{Event: "website_event", Session: "session", Revenue: "revenue"}
}

func (Postgres) InlineSessionColumns() bool { return false }

// DateTrunc renders the bucket label of field in tz as 'YYYY-MM-DD HH24:MI:SS'.
func (Postgres) DateTrunc(field string, unit timeframe.Unit, tz string) string {
	if !unit.Valid() {
		unit = timeframe.UnitDay
	}
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf("to_char(date_trunc('%s', %s at time zone '%s'), 'YYYY-MM-DD HH24:MI:SS')", unit, field, tz)
}

func (Postgres) TimestampDiffSeconds(start, end string) string {
	return fmt.Sprintf("floor(extract(epoch from (%s - %s)))", end, start)
}

func (Postgres) MultiMatch(column string, candidates []string) string {
	if len(candidates) == 0 {
		return "false"
	}
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		pattern := "%" + escapeLike(c) + "%"
		parts[i] = fmt.Sprintf("%s ilike '%s'", column, strings.ReplaceAll(pattern, "'", "''"))
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

func (Postgres) Contains(column, placeholder string) string {
	return fmt.Sprintf("strpos(lower(%s), lower(%s)) > 0", column, placeholder)
}

func (Postgres) InList(column, placeholder string) string {
	return fmt.Sprintf("%s = any(%s)", column, placeholder)
}

func (Postgres) CountDistinct(expr string) string {
	return "count(distinct " + expr + ")"
}

func (Postgres) Lag(expr, partition, order string) string {
	return fmt.Sprintf("lag(%s) over (partition by %s order by %s)", expr, partition, order)
}

func (Postgres) AddMinutes(expr, name string) string {
	return fmt.Sprintf("%s + make_interval(mins => %s)", expr, query.PT(name, "int"))
}

// Render rewrites placeholders into $n markers. Each distinct name gets one
// slot, assigned in first-seen order, and repeated names reuse it. A type
// hint stays attached as a cast: {{websiteId::uuid}} becomes $1::uuid.
func (Postgres) Render(text string, params query.Params) (Statement, error) {
	slots := map[string]int{}
	var args []any

	sql, err := query.Expand(text, params, func(ph query.Placeholder, value any) (string, error) {
		n, ok := slots[ph.Name]
		if !ok {
			args = append(args, value)
			n = len(args)
			slots[ph.Name] = n
		}
		marker := "$" + strconv.Itoa(n)
		if ph.Type != "" {
			marker += "::" + ph.Type
		}
		return marker, nil
	})
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Args: args}, nil
}

func (Postgres) Paginate(text string, page, pageSize int) string {
	return paginate(text, page, pageSize)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}
