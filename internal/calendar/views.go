package calendar

import (
	"fmt"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
)

// MaxEntriesPerCell caps how many classes a collapsed month cell lists.
const MaxEntriesPerCell = 2

// IsToday reports whether day and now fall on the same campus calendar date.
func (g *Grouper) IsToday(day, now time.Time) bool {
	loc := g.Location()
	return campustime.DateOf(day, loc).Equal(campustime.DateOf(now, loc))
}

// IsPast reports whether the entry has started. A class starting exactly at now counts.
func IsPast(entry Entry, now time.Time) bool {
	return !now.Before(entry.Start)
}

// EntryView is an entry annotated for rendering.
type EntryView struct {
	Entry
	Past       bool
	StartLabel string
	EndLabel   string
}

func (g *Grouper) annotate(entries []Entry, now time.Time) []EntryView {
	loc := g.Location()
	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, EntryView{
			Entry:      entry,
			Past:       IsPast(entry, now),
			StartLabel: campustime.ClockOf(entry.Start, loc).String(),
			EndLabel:   campustime.ClockOf(entry.End, loc).String(),
		})
	}
	return views
}

// CellState holds the per-day toggles a client keeps for a month cell.
type CellState struct {
	Expanded bool
	ShowPast bool
}

// MonthCellView is the derived state of a single month grid cell.
type MonthCellView struct {
	Date           campustime.Date
	IsToday        bool
	InCurrentMonth bool
	Total          int
	// Visible lists the classes rendered in the cell body.
	Visible []EntryView
	// Started lists today's classes that already began; only filled when ShowPast is set.
	Started      []EntryView
	StartedCount int
	HasMore      bool
	MoreCount    int
}

// MonthCell derives what a month cell shows for day.
//
// Today's classes are split into started and upcoming ones while at least one is still
// upcoming; the overflow cap then applies to the upcoming subset only and started classes
// stay hidden unless ShowPast is set. Any other day, including a today whose classes have
// all started, shows up to MaxEntriesPerCell classes unless expanded.
func (g *Grouper) MonthCell(day time.Time, bucket []Entry, now time.Time, state CellState) MonthCellView {
	cell := MonthCellView{
		Date:    campustime.DateOf(day, g.Location()),
		IsToday: g.IsToday(day, now),
		Total:   len(bucket),
	}

	listed := bucket
	if cell.IsToday {
		var started, upcoming []Entry
		for _, entry := range bucket {
			if IsPast(entry, now) {
				started = append(started, entry)
			} else {
				upcoming = append(upcoming, entry)
			}
		}
		if len(upcoming) > 0 {
			cell.StartedCount = len(started)
			if state.ShowPast {
				cell.Started = g.annotate(started, now)
			}
			listed = upcoming
		}
	}

	shown := listed
	if !state.Expanded && len(shown) > MaxEntriesPerCell {
		shown = shown[:MaxEntriesPerCell]
	}
	cell.Visible = g.annotate(shown, now)
	if len(listed) > MaxEntriesPerCell {
		cell.HasMore = true
		cell.MoreCount = len(listed) - MaxEntriesPerCell
	}
	return cell
}

// MonthView is the derived month grid.
type MonthView struct {
	Title string
	Year  int
	Month time.Month
	Weeks [][]MonthCellView
}

// MonthView buckets entries into the month grid for year and month. States are keyed by
// YYYY-MM-DD; days without an entry use the zero CellState.
func (g *Grouper) MonthView(year int, month time.Month, entries []Entry, now time.Time, states map[string]CellState) MonthView {
	days := g.MonthDays(year, month)
	buckets := g.BucketByDay(entries, days)

	view := MonthView{
		Title: fmt.Sprintf("%s %d", month, year),
		Year:  year,
		Month: month,
	}
	var week []MonthCellView
	for i, day := range days {
		cell := g.MonthCell(day, buckets[i], now, states[campustime.DateKey(day, g.Location())])
		cell.InCurrentMonth = cell.Date.Month == month
		week = append(week, cell)
		if len(week) == 7 {
			view.Weeks = append(view.Weeks, week)
			week = nil
		}
	}
	return view
}

// WeekGrid describes the vertical time axis of the week view.
type WeekGrid struct {
	StartHour     int
	EndHour       int
	PixelsPerHour float64
	Gutter        float64
}

// DefaultWeekGrid spans 6:00 to 21:00 at sixty pixels per hour.
var DefaultWeekGrid = WeekGrid{StartHour: 6, EndHour: 21, PixelsPerHour: 60, Gutter: 4}

// Placement is the vertical position of an entry within a day column, in pixels.
type Placement struct {
	Top    float64
	Height float64
}

// Place positions entry on the grid. Entries outside the visible hours keep their
// computed offsets and are clipped by the client.
func (w WeekGrid) Place(entry Entry, loc *time.Location) Placement {
	start := campustime.ClockOf(entry.Start, loc).HourFraction()
	height := entry.End.Sub(entry.Start).Hours()*w.PixelsPerHour - w.Gutter
	if height < 0 {
		height = 0
	}
	return Placement{
		Top:    (start - float64(w.StartHour)) * w.PixelsPerHour,
		Height: height,
	}
}

// HourLabels returns the row labels of the grid, e.g. "6 AM" through "8 PM".
func (w WeekGrid) HourLabels() []string {
	labels := make([]string, 0, w.EndHour-w.StartHour)
	for hour := w.StartHour; hour < w.EndHour; hour++ {
		switch {
		case hour == 12:
			labels = append(labels, "12 PM")
		case hour > 12:
			labels = append(labels, fmt.Sprintf("%d PM", hour-12))
		default:
			labels = append(labels, fmt.Sprintf("%d AM", hour))
		}
	}
	return labels
}

// PlacedEntry is an entry positioned in a week column.
type PlacedEntry struct {
	EntryView
	Placement
}

// WeekColumn is one day of the week view.
type WeekColumn struct {
	Date    campustime.Date
	IsToday bool
	Entries []PlacedEntry
}

// WeekView is the derived week grid.
type WeekView struct {
	Title   string
	Hours   []string
	Columns []WeekColumn
}

// WeekView buckets entries into the Sunday-start week containing ref.
func (g *Grouper) WeekView(ref time.Time, entries []Entry, now time.Time, grid WeekGrid) WeekView {
	loc := g.Location()
	days := g.WeekDays(ref)
	buckets := g.BucketByDay(entries, days)

	view := WeekView{
		Title: WeekTitle(campustime.DateOf(days[0], loc), campustime.DateOf(days[len(days)-1], loc)),
		Hours: grid.HourLabels(),
	}
	for i, day := range days {
		column := WeekColumn{
			Date:    campustime.DateOf(day, loc),
			IsToday: g.IsToday(day, now),
		}
		for _, annotated := range g.annotate(buckets[i], now) {
			column.Entries = append(column.Entries, PlacedEntry{
				EntryView: annotated,
				Placement: grid.Place(annotated.Entry, loc),
			})
		}
		view.Columns = append(view.Columns, column)
	}
	return view
}

// WeekTitle formats a week range, e.g. "March 10 - 16, 2024" or "March 31 - April 6, 2024".
func WeekTitle(first, last campustime.Date) string {
	switch {
	case first.Year != last.Year:
		return fmt.Sprintf("%s %d, %d - %s %d, %d", first.Month, first.Day, first.Year, last.Month, last.Day, last.Year)
	case first.Month != last.Month:
		return fmt.Sprintf("%s %d - %s %d, %d", first.Month, first.Day, last.Month, last.Day, first.Year)
	default:
		return fmt.Sprintf("%s %d - %d, %d", first.Month, first.Day, last.Day, first.Year)
	}
}
