package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/recurrence"
)

// SeriesCreation reports the outcome of creating a series.
type SeriesCreation struct {
	Series    ClassSeries
	Generated int
	Warnings  []ConflictWarning
}

// SeriesService manages recurring class templates and the instances they generate.
type SeriesService struct {
	series      SeriesRepository
	classes     ClassRepository
	buildings   BuildingCatalog
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	observe     GenerationObserver
}

// NewSeriesService wires dependencies for series operations.
func NewSeriesService(series SeriesRepository, classes ClassRepository, buildings BuildingCatalog, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *SeriesService {
	return NewSeriesServiceWithLogger(series, classes, buildings, engine, idGenerator, now, nil)
}

// NewSeriesServiceWithLogger wires dependencies for series operations with a specified logger.
func NewSeriesServiceWithLogger(series SeriesRepository, classes ClassRepository, buildings BuildingCatalog, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SeriesService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	return &SeriesService{
		series:      series,
		classes:     classes,
		buildings:   buildings,
		engine:      engine,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		observe:     func(string, int) {},
	}
}

// ObserveGeneration registers a callback invoked after instances are materialised.
func (s *SeriesService) ObserveGeneration(fn GenerationObserver) {
	if s == nil || fn == nil {
		return
	}
	s.observe = fn
}

func (s *SeriesService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SeriesService", operation, attrs...)
}

func (s *SeriesService) configured() error {
	if s == nil {
		return fmt.Errorf("SeriesService is nil")
	}
	if s.series == nil || s.classes == nil {
		return fmt.Errorf("series repositories not configured")
	}
	return nil
}

// CreateSeriesWithClasses validates the definition, stores the template and materialises every
// instance it implies. Open-ended series are stored without instances; ExtendOpenSeries fills
// them up to the rolling horizon. Conflicts are reported as warnings and never block creation.
func (s *SeriesService) CreateSeriesWithClasses(ctx context.Context, principal Principal, input SeriesInput) (result SeriesCreation, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateSeriesWithClasses", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series created",
			"series_id", result.Series.ID,
			"pattern", string(result.Series.Pattern),
			"instances", result.Generated,
			"warnings", len(result.Warnings))
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var series ClassSeries
	series, err = s.parseSeriesInput(ctx, input)
	if err != nil {
		return
	}

	var instances []ClassInstance
	if !series.OpenEnded() {
		var occurrences []recurrence.Occurrence
		occurrences, err = s.engine.Expand(series.definition())
		if err != nil {
			err = fmt.Errorf("expand series: %w", err)
			return
		}
		instances = s.instancesFor(series, occurrences)
		through := *series.EndsOn
		series.GeneratedThrough = &through
	}

	var warnings []ConflictWarning
	warnings, err = conflictWarnings(ctx, s.classes, instances)
	if err != nil {
		return
	}

	if err = s.series.InsertSeries(ctx, series); err != nil {
		err = mapRepoError(err)
		return
	}

	generated := 0
	if len(instances) > 0 {
		generated, err = s.classes.BulkInsertInstances(ctx, instances)
		if err != nil {
			if cleanupErr := s.series.DeleteSeries(ctx, series.ID); cleanupErr != nil {
				logger.WarnContext(ctx, "failed to remove series after instance insert failure",
					"series_id", series.ID, "error", cleanupErr)
			}
			err = mapRepoError(err)
			return
		}
		s.observe("create", generated)
	}

	result = SeriesCreation{Series: series, Generated: generated, Warnings: warnings}
	return
}

// UpdateSeries changes the template's non-temporal fields and propagates them to every
// instance that has not started yet. Start and end timestamps are never touched.
func (s *SeriesService) UpdateSeries(ctx context.Context, principal Principal, seriesID string, patch SeriesPatch) (series ClassSeries, propagated int, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateSeries", "principal_id", principal.UserID, "series_id", seriesID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series updated", "propagated", propagated)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateStruct(patch)
	if patch.IsEmpty() {
		vErr.add("patch", "at least one field must change")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	series, err = s.series.GetSeries(ctx, seriesID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if patch.BuildingID != nil {
		if err = s.ensureBuilding(ctx, strings.TrimSpace(*patch.BuildingID)); err != nil {
			return
		}
	}

	instancePatch := applySeriesPatch(&series, patch)
	series.UpdatedAt = s.now()

	if err = s.series.UpdateSeries(ctx, series); err != nil {
		err = mapRepoError(err)
		return
	}

	propagated, err = s.classes.UpdateSeriesInstances(ctx, series.ID, instancePatch, s.now())
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteSeries removes the template only. Generated instances stay and lose their series link.
func (s *SeriesService) DeleteSeries(ctx context.Context, principal Principal, seriesID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteSeries", "principal_id", principal.UserID, "series_id", seriesID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	err = mapRepoError(s.series.DeleteSeries(ctx, seriesID))
	return
}

// CancelFutureClasses soft-cancels every instance of the series that has not started and
// deactivates the series so no further instances are generated.
func (s *SeriesService) CancelFutureClasses(ctx context.Context, principal Principal, seriesID string) (count int, err error) {
	return s.retireFuture(ctx, principal, seriesID, "CancelFutureClasses", "future classes cancelled",
		func(from time.Time) (int, error) {
			return s.classes.SetSeriesInstancesCancelled(ctx, seriesID, true, from)
		})
}

// DeleteFutureClasses hard-deletes every instance of the series that has not started, together
// with their registrations, and deactivates the series.
func (s *SeriesService) DeleteFutureClasses(ctx context.Context, principal Principal, seriesID string) (count int, err error) {
	return s.retireFuture(ctx, principal, seriesID, "DeleteFutureClasses", "future classes deleted",
		func(from time.Time) (int, error) {
			return s.classes.DeleteInstancesForSeries(ctx, seriesID, from)
		})
}

func (s *SeriesService) retireFuture(ctx context.Context, principal Principal, seriesID, operation, message string, apply func(from time.Time) (int, error)) (count int, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, operation, "principal_id", principal.UserID, "series_id", seriesID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to retire series classes", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, message, "count", count)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var series ClassSeries
	series, err = s.series.GetSeries(ctx, seriesID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	count, err = apply(s.now())
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if series.IsActive {
		series.IsActive = false
		series.UpdatedAt = s.now()
		if err = s.series.UpdateSeries(ctx, series); err != nil {
			err = mapRepoError(err)
		}
	}
	return
}

// ExtendOpenSeries materialises the missing instances of every active open-ended series up to
// and including horizon. A failing series is logged and skipped; the joined errors are returned
// alongside the number of instances created.
func (s *SeriesService) ExtendOpenSeries(ctx context.Context, horizon campustime.Date) (created int, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ExtendOpenSeries", "horizon", horizon.String())

	var open []ClassSeries
	open, err = s.series.ListSeries(ctx, SeriesFilter{ActiveOnly: true, OpenEndedOnly: true})
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to list open series", "error", err)
		return
	}

	var errs []error
	for _, series := range open {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, extendErr := s.extendSeries(ctx, series, horizon)
		if extendErr != nil {
			logger.WarnContext(ctx, "failed to extend series",
				"series_id", series.ID, "error", extendErr, "error_kind", ErrorKind(extendErr))
			errs = append(errs, fmt.Errorf("series %s: %w", series.ID, extendErr))
			continue
		}
		created += n
	}

	if created > 0 {
		s.observe("extend", created)
	}
	logger.InfoContext(ctx, "open series extended", "series", len(open), "instances", created, "failures", len(errs))
	err = errors.Join(errs...)
	return
}

// extendSeries reloads the series so progress recorded by a concurrent run is honoured. Runs
// that still race are absorbed by the store, which skips an instance already present for the
// same series and start.
func (s *SeriesService) extendSeries(ctx context.Context, listed ClassSeries, horizon campustime.Date) (int, error) {
	series, err := s.series.GetSeries(ctx, listed.ID)
	if err != nil {
		return 0, mapRepoError(err)
	}
	if !series.IsActive || !series.OpenEnded() {
		return 0, nil
	}
	if series.GeneratedThrough != nil && !series.GeneratedThrough.Before(horizon) {
		return 0, nil
	}

	occurrences, err := s.engine.ExpandThrough(series.definition(), horizon)
	if err != nil {
		return 0, fmt.Errorf("expand: %w", err)
	}
	if series.GeneratedThrough != nil {
		done := *series.GeneratedThrough
		occurrences = slices.DeleteFunc(occurrences, func(o recurrence.Occurrence) bool {
			return !o.Date.After(done)
		})
	}

	created := 0
	if len(occurrences) > 0 {
		created, err = s.classes.BulkInsertInstances(ctx, s.instancesFor(series, occurrences))
		if err != nil {
			return 0, mapRepoError(err)
		}
	}

	through := horizon
	series.GeneratedThrough = &through
	series.UpdatedAt = s.now()
	if err := s.series.UpdateSeries(ctx, series); err != nil {
		return created, mapRepoError(err)
	}
	return created, nil
}

// GetSeries returns a single series for administrators.
func (s *SeriesService) GetSeries(ctx context.Context, principal Principal, seriesID string) (ClassSeries, error) {
	if err := s.configured(); err != nil {
		return ClassSeries{}, err
	}
	if !principal.IsAdmin {
		return ClassSeries{}, ErrUnauthorized
	}
	series, err := s.series.GetSeries(ctx, seriesID)
	if err != nil {
		return ClassSeries{}, mapRepoError(err)
	}
	return series, nil
}

// ListSeries returns series for administrators, optionally only the active ones.
func (s *SeriesService) ListSeries(ctx context.Context, principal Principal, activeOnly bool) ([]ClassSeries, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	series, err := s.series.ListSeries(ctx, SeriesFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return series, nil
}

func (s *SeriesService) parseSeriesInput(ctx context.Context, input SeriesInput) (ClassSeries, error) {
	vErr := validateStruct(input)

	var (
		series ClassSeries
		err    error
	)
	series.Pattern, err = recurrence.ParsePattern(input.Pattern)
	if err != nil {
		vErr.add("pattern", "must be one of: weekly bi-weekly monthly")
	}
	if series.StartsOn, err = campustime.ParseDate(input.StartDate); err != nil {
		vErr.add("start_date", "must be a date in YYYY-MM-DD format")
	}
	if input.EndDate != "" {
		endsOn, parseErr := campustime.ParseDate(input.EndDate)
		if parseErr != nil {
			vErr.add("end_date", "must be a date in YYYY-MM-DD format")
		} else {
			series.EndsOn = &endsOn
		}
	}
	if series.EndsOn != nil && !series.StartsOn.IsZero() && series.EndsOn.Before(series.StartsOn) {
		vErr.add("end_date", "must not be before the start date")
	}

	startClock, startErr := campustime.ParseClock(input.StartTime)
	if startErr != nil {
		vErr.add("start_time", "must be a time in 24-hour HH:MM format")
	}
	endClock, endErr := campustime.ParseClock(input.EndTime)
	if endErr != nil {
		vErr.add("end_time", "must be a time in 24-hour HH:MM format")
	}
	if startErr == nil && endErr == nil {
		validateDuration(time.Duration(endClock.Minutes()-startClock.Minutes())*time.Minute, vErr)
	}
	series.StartTime, series.EndTime = startClock, endClock

	series.Days = normalizeDays(input.Days)

	if vErr.HasErrors() {
		return ClassSeries{}, vErr
	}

	series.BuildingID = strings.TrimSpace(input.BuildingID)
	if err := s.ensureBuilding(ctx, series.BuildingID); err != nil {
		return ClassSeries{}, err
	}

	now := s.now()
	series.ID = s.idGenerator()
	series.Name = strings.TrimSpace(input.Name)
	series.Description = strings.TrimSpace(input.Description)
	series.InstructorName = strings.TrimSpace(input.InstructorName)
	series.Room = strings.TrimSpace(input.Room)
	series.MatsProvided = input.MatsProvided
	series.IsActive = true
	series.CreatedAt = now
	series.UpdatedAt = now
	return series, nil
}

func (s *SeriesService) ensureBuilding(ctx context.Context, id string) error {
	return ensureBuilding(ctx, s.buildings, id)
}

func ensureBuilding(ctx context.Context, buildings BuildingCatalog, id string) error {
	if buildings == nil {
		return nil
	}
	if _, err := buildings.GetBuilding(ctx, id); err != nil {
		if isNotFound(err) {
			vErr := &ValidationError{}
			vErr.add("building_id", "unknown building")
			return vErr
		}
		return fmt.Errorf("lookup building: %w", err)
	}
	return nil
}

func (s *SeriesService) instancesFor(series ClassSeries, occurrences []recurrence.Occurrence) []ClassInstance {
	now := s.now()
	instances := make([]ClassInstance, 0, len(occurrences))
	for _, occurrence := range occurrences {
		seriesID := series.ID
		instances = append(instances, ClassInstance{
			ID:             s.idGenerator(),
			SeriesID:       &seriesID,
			ClassName:      series.Name,
			Description:    series.Description,
			InstructorName: series.InstructorName,
			BuildingID:     series.BuildingID,
			Room:           series.Room,
			MatsProvided:   series.MatsProvided,
			Start:          occurrence.Start,
			End:            occurrence.End,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return instances
}

func applySeriesPatch(series *ClassSeries, patch SeriesPatch) InstancePatch {
	var out InstancePatch
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		series.Name = name
		out.ClassName = &name
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		series.Description = description
		out.Description = &description
	}
	if patch.InstructorName != nil {
		instructor := strings.TrimSpace(*patch.InstructorName)
		series.InstructorName = instructor
		out.InstructorName = &instructor
	}
	if patch.BuildingID != nil {
		building := strings.TrimSpace(*patch.BuildingID)
		series.BuildingID = building
		out.BuildingID = &building
	}
	if patch.Room != nil {
		room := strings.TrimSpace(*patch.Room)
		series.Room = room
		out.Room = &room
	}
	if patch.MatsProvided != nil {
		mats := *patch.MatsProvided
		series.MatsProvided = mats
		out.MatsProvided = &mats
	}
	return out
}

func validateDuration(d time.Duration, vErr *ValidationError) {
	switch {
	case d <= 0:
		vErr.add("end_time", "must be after the start time")
	case d < MinClassDuration:
		vErr.add("end_time", "class must last at least 30 minutes")
	case d > MaxClassDuration:
		vErr.add("end_time", "class must last at most 120 minutes")
	}
}

// normalizeDays converts 0-6 integers to weekdays, dropping duplicates and out-of-range values.
func normalizeDays(days []int) []time.Weekday {
	seen := make(map[int]struct{}, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, time.Weekday(d))
	}
	slices.Sort(out)
	return out
}

func isNotFound(err error) bool {
	return errors.Is(mapRepoError(err), ErrNotFound)
}
