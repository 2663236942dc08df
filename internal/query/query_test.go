package query_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/query"
)

func TestPlaceholders(t *testing.T) {
	text := "where website_id = {{websiteId::uuid}} and url_path = {{ path }} and x = {{websiteId::uuid}}"

	phs := query.Placeholders(text)
	require.Len(t, phs, 3)

	assert.Equal(t, "websiteId", phs[0].Name)
	assert.Equal(t, "uuid", phs[0].Type)
	assert.Equal(t, "path", phs[1].Name)
	assert.Equal(t, "", phs[1].Type)
	assert.Equal(t, "{{websiteId::uuid}}", text[phs[2].Start:phs[2].End])
}

func TestExpand(t *testing.T) {
	t.Run("replaces every occurrence", func(t *testing.T) {
		out, err := query.Expand("a = {{a}} and b = {{b}}", query.Params{"a": 1, "b": 2},
			func(ph query.Placeholder, value any) (string, error) {
				return ":" + ph.Name, nil
			})
		require.NoError(t, err)
		assert.Equal(t, "a = :a and b = :b", out)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := query.Expand("a = {{a}}", query.Params{}, func(query.Placeholder, any) (string, error) {
			return "", nil
		})
		var missing *query.MissingParamError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "a", missing.Name)
	})

	t.Run("text without placeholders is untouched", func(t *testing.T) {
		out, err := query.Expand("select 1", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "select 1", out)
	})
}

func TestParamsMerge(t *testing.T) {
	base := query.Params{"a": 1}
	merged := base.Merge(query.Params{"b": 2}, query.Params{"a": 3})

	assert.Equal(t, query.Params{"a": 3, "b": 2}, merged)
	assert.Equal(t, query.Params{"a": 1}, base, "merge must not mutate the receiver")
	assert.Equal(t, []string{"a", "b"}, merged.Names())
}

func TestSelectString(t *testing.T) {
	s := &query.Select{
		With:  []query.CTE{{Name: "visits", Body: "SELECT 1 AS x"}},
		From:  "visits",
		Limit: 10,
	}
	s.Column("x", "count(*) y").
		Join("", "JOIN other ON other.x = visits.x").
		And("x != ''", " ").
		Group("x").
		Order("y DESC")

	sql := s.String()
	assert.True(t, strings.HasPrefix(sql, "WITH visits AS (\n  SELECT 1 AS x\n)\nSELECT x,"))
	assert.Contains(t, sql, "\nJOIN other ON other.x = visits.x")
	assert.Contains(t, sql, "\nWHERE x != ''\nGROUP BY x\nORDER BY y DESC\nLIMIT 10")
	assert.NotContains(t, sql, "AND  ")
}

func TestUnionAll(t *testing.T) {
	assert.Equal(t, "a\nUNION ALL\nb", query.UnionAll("a", "b"))
}

func TestWith(t *testing.T) {
	ctes := []query.CTE{{Name: "a", Body: "SELECT 1"}, {Name: "b", Body: "SELECT 2\nFROM a"}}
	assert.Equal(t, "WITH a AS (\n  SELECT 1\n),\nb AS (\n  SELECT 2\n  FROM a\n)\nSELECT * FROM b",
		query.With(ctes, "SELECT * FROM b"))
	assert.Equal(t, "SELECT 1", query.With(nil, "SELECT 1"))
}
