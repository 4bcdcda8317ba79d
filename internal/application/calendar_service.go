package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/campus-yoga/internal/calendar"
)

// CalendarService renders the month and week schedule views and the class detail page.
type CalendarService struct {
	classes   ClassRepository
	buildings BuildingCatalog
	lookup    RegistrationLookup
	grouper   *calendar.Grouper
	grid      calendar.WeekGrid
	now       func() time.Time
	logger    *slog.Logger
}

// NewCalendarService constructs a calendar service observing dates in loc.
func NewCalendarService(classes ClassRepository, buildings BuildingCatalog, lookup RegistrationLookup, loc *time.Location, now func() time.Time) *CalendarService {
	return NewCalendarServiceWithLogger(classes, buildings, lookup, loc, now, nil)
}

// NewCalendarServiceWithLogger constructs a calendar service with a specified logger.
func NewCalendarServiceWithLogger(classes ClassRepository, buildings BuildingCatalog, lookup RegistrationLookup, loc *time.Location, now func() time.Time, logger *slog.Logger) *CalendarService {
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		classes:   classes,
		buildings: buildings,
		lookup:    lookup,
		grouper:   calendar.NewGrouper(loc),
		grid:      calendar.DefaultWeekGrid,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

func (s *CalendarService) configured() error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if s.classes == nil {
		return fmt.Errorf("class repository not configured")
	}
	return nil
}

// Location returns the campus location the views are rendered in.
func (s *CalendarService) Location() *time.Location {
	return s.grouper.Location()
}

// MonthView renders the month grid. Past and cancelled classes are included; states carries
// the client's per-day toggles keyed by YYYY-MM-DD.
func (s *CalendarService) MonthView(ctx context.Context, year int, month time.Month, states map[string]calendar.CellState) (calendar.MonthView, error) {
	if err := s.configured(); err != nil {
		return calendar.MonthView{}, err
	}
	if month < time.January || month > time.December {
		vErr := &ValidationError{}
		vErr.add("month", "must be between 1 and 12")
		return calendar.MonthView{}, vErr
	}

	days := s.grouper.MonthDays(year, month)
	entries, err := s.entriesBetween(ctx, days[0], days[len(days)-1].AddDate(0, 0, 1))
	if err != nil {
		s.loggerWith(ctx, "MonthView", "year", year, "month", int(month)).
			ErrorContext(ctx, "failed to load classes", "error", err)
		return calendar.MonthView{}, err
	}
	return s.grouper.MonthView(year, month, entries, s.now(), states), nil
}

// WeekView renders the Sunday-start week containing ref.
func (s *CalendarService) WeekView(ctx context.Context, ref time.Time) (calendar.WeekView, error) {
	if err := s.configured(); err != nil {
		return calendar.WeekView{}, err
	}

	days := s.grouper.WeekDays(ref)
	entries, err := s.entriesBetween(ctx, days[0], days[len(days)-1].AddDate(0, 0, 1))
	if err != nil {
		s.loggerWith(ctx, "WeekView", "ref", ref).ErrorContext(ctx, "failed to load classes", "error", err)
		return calendar.WeekView{}, err
	}
	return s.grouper.WeekView(ref, entries, s.now(), s.grid), nil
}

// ClassDetails returns a class with its building and the principal's registration status.
func (s *CalendarService) ClassDetails(ctx context.Context, principal Principal, classID string) (ClassDetails, error) {
	if err := s.configured(); err != nil {
		return ClassDetails{}, err
	}

	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		return ClassDetails{}, mapRepoError(err)
	}

	details := ClassDetails{Class: class, Past: class.Started(s.now())}
	if s.buildings != nil && class.BuildingID != "" {
		building, err := s.buildings.GetBuilding(ctx, class.BuildingID)
		switch {
		case err == nil:
			details.Building = &building
		case isNotFound(err):
		default:
			return ClassDetails{}, fmt.Errorf("lookup building: %w", err)
		}
	}

	if s.lookup != nil {
		details.Status, err = s.lookup.GetRegistrationStatus(ctx, principal, classID)
		if err != nil {
			return ClassDetails{}, err
		}
	} else {
		details.Status.IsAuthenticated = principal.Authenticated()
	}
	return details, nil
}

func (s *CalendarService) entriesBetween(ctx context.Context, from, until time.Time) ([]calendar.Entry, error) {
	classes, err := s.classes.ListClasses(ctx, ClassFilter{StartsFrom: &from, StartsBefore: &until})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return ToEntries(classes), nil
}

// ToEntries converts class instances to calendar entries carrying the instance as payload.
func ToEntries(classes []ClassInstance) []calendar.Entry {
	entries := make([]calendar.Entry, 0, len(classes))
	for _, class := range classes {
		entries = append(entries, calendar.Entry{
			ID:        class.ID,
			Start:     class.Start,
			End:       class.End,
			Cancelled: class.IsCancelled,
			Payload:   class,
		})
	}
	return entries
}
