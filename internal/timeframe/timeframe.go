// Package timeframe resolves the date range, bucket unit and timezone an
// analytics request is evaluated in.
package timeframe

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// Unit is the granularity time series are bucketed by.
type Unit string

const (
	UnitYear  Unit = "year"
	UnitMonth Unit = "month"
	UnitWeek  Unit = "week"
	UnitDay   Unit = "day"
	UnitHour  Unit = "hour"
)

// Units lists the known units from finest to coarsest.
var Units = []Unit{UnitHour, UnitDay, UnitWeek, UnitMonth, UnitYear}

// BucketLayout is the Go layout of the bucket labels both backends produce.
const BucketLayout = "2006-01-02 15:04:05"

// maxBuckets caps gap filling so a wide range with hourly buckets cannot
// produce an unbounded series.
const maxBuckets = 1000

var timezonePattern = regexp.MustCompile(`^[A-Za-z0-9_+\-]+(/[A-Za-z0-9_+\-]+)*$`)

// ParseUnit maps s to a Unit. Unrecognised values fall back to UnitDay.
func ParseUnit(s string) Unit {
	switch Unit(s) {
	case UnitYear, UnitMonth, UnitWeek, UnitDay, UnitHour:
		return Unit(s)
	default:
		return UnitDay
	}
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	return slices.Contains(Units, u)
}

// AppropriateUnit picks a bucket unit for a range when the caller did not ask
// for one.
func AppropriateUnit(from, to time.Time) Unit {
	days := to.Sub(from).Hours() / 24

	switch {
	case days >= 5*365:
		return UnitYear
	case days >= 3*30:
		return UnitMonth
	case days >= 2:
		return UnitDay
	default:
		return UnitHour
	}
}

// LoadTimezone validates name and loads it. An empty name is UTC. Names are
// inlined into generated SQL, so anything that is not a plain IANA
// identifier is rejected before time.LoadLocation sees it.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	if !timezonePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid timezone %q", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}
	return loc, nil
}

// TimeFrame is a closed interval [From, To] with the unit and timezone its
// buckets are computed in.
type TimeFrame struct {
	From time.Time
	To   time.Time
	Unit Unit
	Tz   *time.Location
}

// NewTimeFrame validates the bounds and fills in defaults for unit and tz.
func NewTimeFrame(from, to time.Time, unit Unit, tz *time.Location) (*TimeFrame, error) {
	if from.After(to) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	if tz == nil {
		tz = time.UTC
	}
	if !unit.Valid() {
		unit = AppropriateUnit(from, to)
	}
	return &TimeFrame{From: from.UTC(), To: to.UTC(), Unit: unit, Tz: tz}, nil
}

// Duration is the length of the frame.
func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// TimezoneName is the IANA name of the frame's timezone.
func (tf *TimeFrame) TimezoneName() string {
	if tf.Tz == nil {
		return "UTC"
	}
	return tf.Tz.String()
}

// Previous returns the frame of equal length that ends right before tf starts.
// It backs comparison-period queries.
func (tf *TimeFrame) Previous() *TimeFrame {
	d := tf.Duration()
	return &TimeFrame{
		From: tf.From.Add(-d).Add(-time.Second),
		To:   tf.From.Add(-time.Second),
		Unit: tf.Unit,
		Tz:   tf.Tz,
	}
}

// Buckets lists the bucket labels between From and To, in the frame's
// timezone, formatted with BucketLayout.
func (tf *TimeFrame) Buckets() []string {
	tz := tf.Tz
	if tz == nil {
		tz = time.UTC
	}

	current := TruncateInTimezone(tf.From, tf.Unit, tz)
	end := tf.To.In(tz)

	labels := []string{}
	for !current.After(end) && len(labels) < maxBuckets {
		labels = append(labels, current.Format(BucketLayout))
		current = advance(current, tf.Unit)
	}
	return labels
}

// TruncateInTimezone truncates t to the start of its bucket as observed in loc.
// Weeks start on Monday.
func TruncateInTimezone(t time.Time, unit Unit, loc *time.Location) time.Time {
	local := t.In(loc)
	year, month, day := local.Year(), local.Month(), local.Day()

	switch unit {
	case UnitYear:
		return time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	case UnitMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case UnitWeek:
		weekday := int(local.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, loc)
	case UnitHour:
		return time.Date(year, month, day, local.Hour(), 0, 0, 0, loc)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

func advance(t time.Time, unit Unit) time.Time {
	switch unit {
	case UnitYear:
		return t.AddDate(1, 0, 0)
	case UnitMonth:
		return t.AddDate(0, 1, 0)
	case UnitWeek:
		return t.AddDate(0, 0, 7)
	case UnitHour:
		return t.Add(time.Hour)
	default:
		return t.AddDate(0, 0, 1)
	}
}
