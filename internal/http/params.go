package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pulse/internal/filters"
	"pulse/internal/timeframe"
)

var operators = map[string]bool{
	filters.OpEquals:         true,
	filters.OpNotEquals:      true,
	filters.OpContains:       true,
	filters.OpDoesNotContain: true,
}

// parseQueryFilters reads the shared analytics query string:
//
//	startAt, endAt, unit, timezone   date range
//	<filter>=[op:]value              repeated values become a list
//	segment, cohort                  saved segment ids
//	page, pageSize, search, orderBy, sortDescending, compare
func parseQueryFilters(c *fiber.Ctx, parser *timeframe.Parser) (*filters.QueryFilters, error) {
	tf, err := parser.Parse(timeframe.ParserParams{
		StartAt:  c.Query("startAt"),
		EndAt:    c.Query("endAt"),
		Unit:     c.Query("unit"),
		Timezone: c.Query("timezone"),
	})
	if err != nil {
		return nil, &filters.CompileError{Field: "dateRange", Reason: "invalid date range", Err: err}
	}

	qf := &filters.QueryFilters{
		StartDate:      tf.From,
		EndDate:        tf.To,
		Timezone:       c.Query("timezone"),
		Unit:           tf.Unit,
		Search:         c.Query("search"),
		OrderBy:        c.Query("orderBy"),
		SortDescending: c.QueryBool("sortDescending"),
		Compare:        c.QueryBool("compare"),
	}

	if qf.Page, err = queryInt(c, "page"); err != nil {
		return nil, err
	}
	if qf.PageSize, err = queryInt(c, "pageSize"); err != nil {
		return nil, err
	}
	if qf.Segment, err = queryUUID(c, "segment"); err != nil {
		return nil, err
	}
	if qf.Cohort, err = queryUUID(c, "cohort"); err != nil {
		return nil, err
	}

	args := c.Context().QueryArgs()
	for _, name := range filters.Names() {
		raw := args.PeekMulti(name)
		if len(raw) == 0 {
			continue
		}
		op := ""
		vals := make([]string, 0, len(raw))
		for _, r := range raw {
			valueOp, value := splitOperator(string(r))
			if op != "" && valueOp != op {
				return nil, &filters.CompileError{Field: name, Reason: "mixed operators"}
			}
			op = valueOp
			vals = append(vals, value)
		}
		if len(vals) == 1 {
			qf.AddOp(name, op, vals[0])
		} else {
			qf.AddOp(name, op, vals)
		}
	}
	return qf, nil
}

// splitOperator separates a known "op:" prefix from a filter value.
func splitOperator(raw string) (string, string) {
	if op, value, ok := strings.Cut(raw, ":"); ok && operators[op] {
		return op, value
	}
	return filters.OpEquals, raw
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid '"+key+"': must be a non-negative integer")
	}
	return n, nil
}

func queryUUID(c *fiber.Ctx, key string) (uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &filters.CompileError{Field: key, Reason: "invalid id", Err: err}
	}
	return id, nil
}
