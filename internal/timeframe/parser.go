package timeframe

import (
	"fmt"
	"strconv"
	"time"
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// ParserParams are the raw request values a frame is built from. StartAt and
// EndAt accept epoch milliseconds, RFC 3339 timestamps or plain dates.
type ParserParams struct {
	StartAt  string
	EndAt    string
	Unit     string
	Timezone string
}

type Parser struct {
	timeProvider TimeProvider
}

func NewParser(timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Parser{timeProvider: provider}
}

// Parse builds a TimeFrame. Missing bounds default to the last 30 days ending now.
func (p *Parser) Parse(params ParserParams) (*TimeFrame, error) {
	loc, err := LoadTimezone(params.Timezone)
	if err != nil {
		return nil, err
	}
	now := p.timeProvider.Now(loc)

	from, err := parseBound(params.StartAt, loc, false)
	if err != nil {
		return nil, fmt.Errorf("invalid 'startAt': %w", err)
	}
	to, err := parseBound(params.EndAt, loc, true)
	if err != nil {
		return nil, fmt.Errorf("invalid 'endAt': %w", err)
	}
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = TruncateInTimezone(to, UnitDay, loc).AddDate(0, 0, -30)
	}

	unit := Unit(params.Unit)
	if params.Unit == "" {
		unit = AppropriateUnit(from, to)
	} else {
		unit = ParseUnit(params.Unit)
	}

	return NewTimeFrame(from, to, unit, loc)
}

func parseBound(s string, loc *time.Location, isEnd bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	date, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if isEnd {
		return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999000000, loc).UTC(), nil
	}
	return date.UTC(), nil
}
