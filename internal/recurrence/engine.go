package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
)

// Pattern names a supported recurrence cadence.
type Pattern string

const (
	// PatternWeekly generates an occurrence on every selected weekday.
	PatternWeekly Pattern = "weekly"
	// PatternBiWeekly generates occurrences on selected weekdays of every other week.
	PatternBiWeekly Pattern = "bi-weekly"
	// PatternMonthly generates the first occurrence of each selected weekday per month.
	PatternMonthly Pattern = "monthly"
)

// ErrInvalidPattern indicates the recurrence pattern is not one of the supported literals.
var ErrInvalidPattern = errors.New("recurrence: pattern must be weekly, bi-weekly or monthly")

// ErrInvalidWindow indicates the generation window ends before it starts.
var ErrInvalidWindow = errors.New("recurrence: end date precedes start date")

// ErrOpenEnded indicates the series has no end date and no horizon was supplied.
var ErrOpenEnded = errors.New("recurrence: generation window requires an end bound")

// ParsePattern validates a pattern literal.
func ParsePattern(value string) (Pattern, error) {
	switch p := Pattern(value); p {
	case PatternWeekly, PatternBiWeekly, PatternMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, value)
	}
}

// Series describes the template a set of class instances is generated from.
type Series struct {
	Pattern   Pattern
	Days      []time.Weekday
	StartTime campustime.Clock
	EndTime   campustime.Clock
	StartsOn  campustime.Date
	EndsOn    *campustime.Date
}

// Occurrence is one generated class slot.
type Occurrence struct {
	Date  campustime.Date
	Start time.Time
	End   time.Time
}

// Engine expands series definitions into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that builds timestamps in the provided location.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone occurrences are anchored in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Expand produces every occurrence of a bounded series.
//
// The engine enforces the following semantics:
//   - Every civil day from StartsOn to EndsOn inclusive is considered once, in order.
//   - Bi-weekly parity follows a week counter that starts at zero and advances whenever
//     the epoch week (days since 1970-01-01 divided by seven) changes, so the first
//     evaluated day always lands on an odd week.
//   - Monthly series keep only the first matching weekday of each calendar month.
//   - An unrecognised pattern matches no days and yields an empty result.
func (e *Engine) Expand(series Series) ([]Occurrence, error) {
	if series.EndsOn == nil {
		return nil, ErrOpenEnded
	}
	return e.expand(series, *series.EndsOn)
}

// ExpandThrough expands a series up to horizon, or to EndsOn when that comes first.
// Open-ended series are accepted. Parity is always counted from StartsOn, so
// successive horizons produce prefixes of one another.
func (e *Engine) ExpandThrough(series Series, horizon campustime.Date) ([]Occurrence, error) {
	through := horizon
	if series.EndsOn != nil && series.EndsOn.Before(through) {
		through = *series.EndsOn
	}
	if series.EndsOn != nil && series.EndsOn.Before(series.StartsOn) {
		return nil, ErrInvalidWindow
	}
	if through.Before(series.StartsOn) {
		return nil, nil
	}
	return e.expand(series, through)
}

func (e *Engine) expand(series Series, through campustime.Date) ([]Occurrence, error) {
	if through.Before(series.StartsOn) {
		return nil, ErrInvalidWindow
	}

	days := make(map[time.Weekday]struct{}, len(series.Days))
	for _, day := range series.Days {
		days[day] = struct{}{}
	}
	if len(days) == 0 {
		return nil, nil
	}

	loc := e.Location()
	occurrences := make([]Occurrence, 0)

	week := 0
	lastEpochWeek := int64(0)
	first := true
	for current := series.StartsOn; !current.After(through); current = current.AddDays(1) {
		epochWeek := floorDiv(current.EpochDays(), 7)
		if first || epochWeek != lastEpochWeek {
			week++
			lastEpochWeek = epochWeek
			first = false
		}

		if _, ok := days[current.Weekday()]; !ok {
			continue
		}
		if !matches(series.Pattern, current, week) {
			continue
		}

		occurrences = append(occurrences, Occurrence{
			Date:  current,
			Start: current.At(series.StartTime, loc),
			End:   current.At(series.EndTime, loc),
		})
	}

	return occurrences, nil
}

func matches(pattern Pattern, day campustime.Date, week int) bool {
	switch pattern {
	case PatternWeekly:
		return true
	case PatternBiWeekly:
		return week%2 == 0
	case PatternMonthly:
		return day.Day == firstWeekdayOfMonth(day)
	default:
		return false
	}
}

// firstWeekdayOfMonth returns the day-of-month on which day's weekday first occurs.
func firstWeekdayOfMonth(day campustime.Date) int {
	offset := (int(day.Weekday()) - int(day.FirstOfMonth().Weekday()) + 7) % 7
	return offset + 1
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
