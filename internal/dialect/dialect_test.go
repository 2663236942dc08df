package dialect_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/dialect"
	"pulse/internal/query"
	"pulse/internal/timeframe"
)

func TestFor(t *testing.T) {
	d, err := dialect.For(dialect.Relational)
	require.NoError(t, err)
	assert.Equal(t, dialect.Relational, d.Name())

	d, err = dialect.For(dialect.Columnar)
	require.NoError(t, err)
	assert.Equal(t, dialect.Columnar, d.Name())

	_, err = dialect.For("mysql")
	assert.Error(t, err)
}

func TestPostgresRender(t *testing.T) {
	pg := dialect.Postgres{}

	t.Run("repeated names reuse their slot", func(t *testing.T) {
		stmt, err := pg.Render("select {{a}}, {{b}}, {{a}}", query.Params{"a": "x", "b": 2})
		require.NoError(t, err)
		assert.Equal(t, "select $1, $2, $1", stmt.SQL)
		assert.Equal(t, []any{"x", 2}, stmt.Args)
	})

	t.Run("type hints become casts", func(t *testing.T) {
		stmt, err := pg.Render("where website_id = {{websiteId::uuid}} and created_at >= {{startDate}}",
			query.Params{"websiteId": "2b6a", "startDate": "2024-01-01"})
		require.NoError(t, err)
		assert.Equal(t, "where website_id = $1::uuid and created_at >= $2", stmt.SQL)
		assert.Len(t, stmt.Args, 2)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := pg.Render("select {{a}}", query.Params{})
		var missing *query.MissingParamError
		assert.True(t, errors.As(err, &missing))
	})

	t.Run("unused parameters are not bound", func(t *testing.T) {
		stmt, err := pg.Render("select 1", query.Params{"a": 1})
		require.NoError(t, err)
		assert.Empty(t, stmt.Args)
	})
}

func TestClickHouseRender(t *testing.T) {
	ch := dialect.ClickHouse{}
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	stmt, err := ch.Render(
		"where website_id = {{websiteId::uuid}} and created_at >= {{startDate}} and has({{path}}, url_path) and x = {{websiteId::uuid}} and n = {{window::int}}",
		query.Params{
			"websiteId": "0b8c0c0e-34a4-4b55-9d7a-b2c6b7f9c1a2",
			"startDate": start,
			"path":      []string{"/a", "/it's"},
			"window":    30,
		})
	require.NoError(t, err)

	assert.Equal(t,
		"where website_id = {websiteId:UUID} and created_at >= {startDate:DateTime64(3, 'UTC')} and has({path:Array(String)}, url_path) and x = {websiteId:UUID} and n = {window:Int64}",
		stmt.SQL)
	assert.Equal(t, map[string]string{
		"websiteId": "0b8c0c0e-34a4-4b55-9d7a-b2c6b7f9c1a2",
		"startDate": "2024-07-01 00:00:00.000",
		"path":      `['/a','/it\'s']`,
		"window":    "30",
	}, stmt.Named)
	assert.Empty(t, stmt.Args)

	_, err = ch.Render("select {{a::geometry}}", query.Params{"a": 1})
	assert.Error(t, err)
}

func TestDateTrunc(t *testing.T) {
	tests := []struct {
		name     string
		d        dialect.Dialect
		unit     timeframe.Unit
		expected string
	}{
		{"postgres day", dialect.Postgres{}, timeframe.UnitDay,
			"to_char(date_trunc('day', created_at at time zone 'Europe/Madrid'), 'YYYY-MM-DD HH24:MI:SS')"},
		{"postgres unknown falls back to day", dialect.Postgres{}, "minute",
			"to_char(date_trunc('day', created_at at time zone 'Europe/Madrid'), 'YYYY-MM-DD HH24:MI:SS')"},
		{"clickhouse hour", dialect.ClickHouse{}, timeframe.UnitHour,
			"formatDateTime(toStartOfHour(created_at, 'Europe/Madrid'), '%Y-%m-%d %H:00:00')"},
		{"clickhouse week starts monday", dialect.ClickHouse{}, timeframe.UnitWeek,
			"formatDateTime(toStartOfWeek(created_at, 1, 'Europe/Madrid'), '%Y-%m-%d 00:00:00')"},
		{"clickhouse unknown falls back to day", dialect.ClickHouse{}, "quarter",
			"formatDateTime(toStartOfDay(created_at, 'Europe/Madrid'), '%Y-%m-%d 00:00:00')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.DateTrunc("created_at", tt.unit, "Europe/Madrid"))
		})
	}
}

func TestMultiMatch(t *testing.T) {
	assert.Equal(t,
		"(referrer_domain ilike '%google%' or referrer_domain ilike '%bing\\_x%')",
		dialect.Postgres{}.MultiMatch("referrer_domain", []string{"google", "bing_x"}))
	assert.Equal(t,
		"multiSearchAnyCaseInsensitive(referrer_domain, ['google', 'bing'])",
		dialect.ClickHouse{}.MultiMatch("referrer_domain", []string{"google", "bing"}))

	assert.Equal(t, "false", dialect.Postgres{}.MultiMatch("x", nil))
	assert.Equal(t, "false", dialect.ClickHouse{}.MultiMatch("x", nil))
}

func TestExpressions(t *testing.T) {
	pg, ch := dialect.Postgres{}, dialect.ClickHouse{}

	assert.Equal(t, "floor(extract(epoch from (max_time - min_time)))", pg.TimestampDiffSeconds("min_time", "max_time"))
	assert.Equal(t, "dateDiff('second', min_time, max_time)", ch.TimestampDiffSeconds("min_time", "max_time"))

	assert.Equal(t, "count(distinct session_id)", pg.CountDistinct("session_id"))
	assert.Equal(t, "uniqExact(session_id)", ch.CountDistinct("session_id"))

	assert.Equal(t, "l.created_at + make_interval(mins => {{window::int}})", pg.AddMinutes("l.created_at", "window"))
	assert.Equal(t, "l.created_at + toIntervalMinute({{window::int}})", ch.AddMinutes("l.created_at", "window"))

	assert.Equal(t, "url_path = any({{path}})", pg.InList("url_path", "{{path}}"))
	assert.Equal(t, "has({{path}}, url_path)", ch.InList("url_path", "{{path}}"))

	assert.Equal(t, "lag(event) over (partition by visit_id order by created_at, event_id)", pg.Lag("event", "visit_id", "created_at, event_id"))
	assert.Equal(t, "lagInFrame(event) over (partition by visit_id order by created_at rows between unbounded preceding and current row)", ch.Lag("event", "visit_id", "created_at"))

	assert.False(t, pg.InlineSessionColumns())
	assert.True(t, ch.InlineSessionColumns())
}

func TestPaginate(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.Postgres{}, dialect.ClickHouse{}} {
		assert.Equal(t, "select 1\nLIMIT 10 OFFSET 20", d.Paginate("select 1", 3, 10))
		assert.Equal(t, "select 1\nLIMIT 10 OFFSET 0", d.Paginate("select 1", 0, 10))
		assert.Equal(t, "select 1", d.Paginate("select 1", 2, 0))
	}
}
