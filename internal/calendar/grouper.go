// Package calendar buckets class instances into campus-local days and derives the
// month and week view state rendered by the schedule pages.
package calendar

import (
	"sort"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
)

// Entry is the grouper's view of a class instance. Payload is carried through untouched.
type Entry struct {
	ID        string
	Start     time.Time
	End       time.Time
	Cancelled bool
	Payload   any
}

func (e Entry) malformed() bool {
	return e.Start.IsZero() || e.End.Before(e.Start)
}

// Grouper assigns entries to calendar days observed in a single campus location.
type Grouper struct {
	location *time.Location
}

// NewGrouper constructs a Grouper for loc. If loc is nil, UTC is used.
func NewGrouper(loc *time.Location) *Grouper {
	if loc == nil {
		loc = time.UTC
	}
	return &Grouper{location: loc}
}

// Location returns the campus location used for day keys.
func (g *Grouper) Location() *time.Location {
	if g == nil || g.location == nil {
		return time.UTC
	}
	return g.location
}

// BucketByDay groups entries under the index of the supplied day they fall on.
//
// Day matching is exact calendar-date equality in the campus location. Entries with
// a zero start or an end before their start are skipped. Each bucket is ordered by
// local start time of day; entries sharing a start keep their input order.
func (g *Grouper) BucketByDay(entries []Entry, days []time.Time) map[int][]Entry {
	buckets := make(map[int][]Entry)
	if len(days) == 0 {
		return buckets
	}

	loc := g.Location()
	index := make(map[campustime.Date][]int, len(days))
	for i, day := range days {
		key := campustime.DateOf(day, loc)
		index[key] = append(index[key], i)
	}

	for _, entry := range entries {
		if entry.malformed() {
			continue
		}
		for _, i := range index[campustime.DateOf(entry.Start, loc)] {
			buckets[i] = append(buckets[i], entry)
		}
	}

	for i := range buckets {
		bucket := buckets[i]
		sort.SliceStable(bucket, func(a, b int) bool {
			return campustime.ClockOf(bucket[a].Start, loc).Minutes() < campustime.ClockOf(bucket[b].Start, loc).Minutes()
		})
	}
	return buckets
}

// WeekDays returns local midnight for the seven days of the Sunday-start week containing ref.
func (g *Grouper) WeekDays(ref time.Time) []time.Time {
	loc := g.Location()
	first := campustime.DateOf(ref, loc)
	first = first.AddDays(-int(first.Weekday()))
	return dayRange(first, 7, loc)
}

// MonthDays returns the Sunday-start grid of whole weeks covering month, including the
// trailing days of the previous month and the leading days of the next.
func (g *Grouper) MonthDays(year int, month time.Month) []time.Time {
	loc := g.Location()
	first := campustime.NewDate(year, month, 1)
	last := campustime.NewDate(year, month+1, 0)

	start := first.AddDays(-int(first.Weekday()))
	end := last.AddDays(int(time.Saturday - last.Weekday()))
	count := int(end.EpochDays()-start.EpochDays()) + 1
	return dayRange(start, count, loc)
}

func dayRange(first campustime.Date, count int, loc *time.Location) []time.Time {
	days := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		days = append(days, first.AddDays(i).In(loc))
	}
	return days
}
