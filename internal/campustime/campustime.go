// Package campustime holds the calendar primitives shared by the recurrence
// expander and the calendar views: civil dates, wall-clock times of day, and
// the single campus timezone every local-day computation is performed in.
package campustime

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // campus zone must resolve on hosts without zoneinfo
)

// DefaultTimezone is the campus timezone used when configuration leaves it unset.
const DefaultTimezone = "America/Chicago"

const (
	dateLayout    = "2006-01-02"
	clockLayout   = "15:04"
	secondsPerDay = 24 * 60 * 60
)

var (
	// ErrInvalidDate indicates a date string is not a valid YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("campustime: date must use YYYY-MM-DD")
	// ErrInvalidClock indicates a time string is not a valid 24-hour HH:MM value.
	ErrInvalidClock = errors.New("campustime: time must use 24-hour HH:MM")
)

// Load resolves the campus timezone. An empty name selects DefaultTimezone.
func Load(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("campustime: load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Date is a civil calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalises the supplied components the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return dateFromUTC(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	if len(value) != len(dateLayout) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return dateFromUTC(t), nil
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateKey formats the calendar date of t in loc as YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	return DateOf(t, loc).String()
}

func dateFromUTC(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday returns the day of the week, Sunday == 0.
func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// EpochDays returns the number of days between 1970-01-01 and d.
func (d Date) EpochDays() int64 {
	return d.utc().Unix() / secondsPerDay
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines d with a wall-clock time of day in loc.
func (d Date) At(clock Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, clock.Hour, clock.Minute, 0, 0, loc)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict 24-hour HH:MM string.
func ParseClock(value string) (Clock, error) {
	if len(value) != len(clockLayout) {
		return Clock{}, ErrInvalidClock
	}
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return Clock{}, ErrInvalidClock
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClockOf returns the wall-clock time of t in loc.
func ClockOf(t time.Time, loc *time.Location) Clock {
	if loc != nil {
		t = t.In(loc)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// HourFraction returns the time of day in fractional hours, e.g. 7:30 -> 7.5.
func (c Clock) HourFraction() float64 {
	return float64(c.Hour) + float64(c.Minute)/60
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
