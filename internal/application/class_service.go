package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ClassService manages individual class instances.
type ClassService struct {
	classes     ClassRepository
	buildings   BuildingCatalog
	series      *SeriesService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewClassService constructs a class service with the provided dependencies.
func NewClassService(classes ClassRepository, buildings BuildingCatalog, series *SeriesService, idGenerator func() string, now func() time.Time) *ClassService {
	return NewClassServiceWithLogger(classes, buildings, series, idGenerator, now, nil)
}

// NewClassServiceWithLogger constructs a class service with a specified logger.
func NewClassServiceWithLogger(classes ClassRepository, buildings BuildingCatalog, series *SeriesService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ClassService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ClassService{
		classes:     classes,
		buildings:   buildings,
		series:      series,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ClassService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClassService", operation, attrs...)
}

func (s *ClassService) configured() error {
	if s == nil {
		return fmt.Errorf("ClassService is nil")
	}
	if s.classes == nil {
		return fmt.Errorf("class repository not configured")
	}
	return nil
}

// CreateClass schedules a one-off class for administrators.
func (s *ClassService) CreateClass(ctx context.Context, principal Principal, input ClassInput) (class ClassInstance, warnings []ConflictWarning, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateClass", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create class", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("class_id", class.ID).InfoContext(ctx, "class created", "warnings", len(warnings))
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if err = s.validateInput(ctx, input); err != nil {
		return
	}

	now := s.now()
	class = ClassInstance{ID: s.idGenerator(), CreatedAt: now}
	applyClassInput(&class, input)
	class.UpdatedAt = now

	warnings, err = conflictWarnings(ctx, s.classes, []ClassInstance{class})
	if err != nil {
		class = ClassInstance{}
		return
	}

	if err = s.classes.CreateClass(ctx, class); err != nil {
		err = mapRepoError(err)
		class = ClassInstance{}
		warnings = nil
	}
	return
}

// UpdateClass edits a class. Occurrence mode rewrites the addressed instance, times included.
// Series mode forwards the non-temporal fields to the owning series, which propagates them to
// every instance that has not started; times in the input are ignored.
func (s *ClassService) UpdateClass(ctx context.Context, params UpdateClassParams) (class ClassInstance, warnings []ConflictWarning, err error) {
	if err = s.configured(); err != nil {
		return
	}

	mode := params.Mode
	if mode == "" {
		mode = UpdateModeOccurrence
	}

	logger := s.loggerWith(ctx, "UpdateClass",
		"principal_id", params.Principal.UserID,
		"class_id", params.ClassID,
		"mode", string(mode),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update class", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "class updated", "warnings", len(warnings))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	switch mode {
	case UpdateModeOccurrence:
		return s.updateOccurrence(ctx, params)
	case UpdateModeSeries:
		class, err = s.updateThroughSeries(ctx, params)
		return
	default:
		vErr := &ValidationError{}
		vErr.add("mode", "must be one of: occurrence series")
		err = vErr
		return
	}
}

func (s *ClassService) updateOccurrence(ctx context.Context, params UpdateClassParams) (ClassInstance, []ConflictWarning, error) {
	if err := s.validateInput(ctx, params.Input); err != nil {
		return ClassInstance{}, nil, err
	}

	class, err := s.classes.GetClass(ctx, params.ClassID)
	if err != nil {
		return ClassInstance{}, nil, mapRepoError(err)
	}

	rescheduled := !class.Start.Equal(params.Input.Start) || !class.End.Equal(params.Input.End) ||
		!strings.EqualFold(class.BuildingID, strings.TrimSpace(params.Input.BuildingID)) ||
		!strings.EqualFold(class.Room, strings.TrimSpace(params.Input.Room)) ||
		!strings.EqualFold(class.InstructorName, strings.TrimSpace(params.Input.InstructorName))

	applyClassInput(&class, params.Input)
	class.UpdatedAt = s.now()

	var warnings []ConflictWarning
	if rescheduled {
		warnings, err = conflictWarnings(ctx, s.classes, []ClassInstance{class})
		if err != nil {
			return ClassInstance{}, nil, err
		}
	}

	if err := s.classes.UpdateClass(ctx, class); err != nil {
		return ClassInstance{}, nil, mapRepoError(err)
	}
	return class, warnings, nil
}

func (s *ClassService) updateThroughSeries(ctx context.Context, params UpdateClassParams) (ClassInstance, error) {
	class, err := s.classes.GetClass(ctx, params.ClassID)
	if err != nil {
		return ClassInstance{}, mapRepoError(err)
	}
	if class.SeriesID == nil || *class.SeriesID == "" {
		vErr := &ValidationError{}
		vErr.add("mode", "class does not belong to a series")
		return ClassInstance{}, vErr
	}
	if s.series == nil {
		return ClassInstance{}, fmt.Errorf("series service not configured")
	}

	input := params.Input
	patch := SeriesPatch{
		Name:           &input.ClassName,
		Description:    &input.Description,
		InstructorName: &input.InstructorName,
		BuildingID:     &input.BuildingID,
		Room:           &input.Room,
		MatsProvided:   &input.MatsProvided,
	}
	if _, _, err := s.series.UpdateSeries(ctx, params.Principal, *class.SeriesID, patch); err != nil {
		return ClassInstance{}, err
	}

	class, err = s.classes.GetClass(ctx, params.ClassID)
	if err != nil {
		return ClassInstance{}, mapRepoError(err)
	}
	return class, nil
}

// CancelClass soft-cancels a single class. Registrations are kept.
func (s *ClassService) CancelClass(ctx context.Context, principal Principal, classID string) (ClassInstance, error) {
	return s.setCancelled(ctx, principal, classID, true)
}

// UncancelClass restores a cancelled class.
func (s *ClassService) UncancelClass(ctx context.Context, principal Principal, classID string) (ClassInstance, error) {
	return s.setCancelled(ctx, principal, classID, false)
}

func (s *ClassService) setCancelled(ctx context.Context, principal Principal, classID string, cancelled bool) (class ClassInstance, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetCancelled",
		"principal_id", principal.UserID,
		"class_id", classID,
		"cancelled", cancelled,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change class cancellation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "class cancellation changed")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	class, err = s.classes.GetClass(ctx, classID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if class.IsCancelled == cancelled {
		return
	}

	class.IsCancelled = cancelled
	class.UpdatedAt = s.now()
	if err = s.classes.UpdateClass(ctx, class); err != nil {
		err = mapRepoError(err)
		class = ClassInstance{}
	}
	return
}

// DeleteClass removes a class together with its registrations.
func (s *ClassService) DeleteClass(ctx context.Context, principal Principal, classID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteClass", "principal_id", principal.UserID, "class_id", classID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete class", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "class deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	err = mapRepoError(s.classes.DeleteClass(ctx, classID))
	return
}

// GetClass returns a class. Anyone may read class data.
func (s *ClassService) GetClass(ctx context.Context, classID string) (ClassInstance, error) {
	if err := s.configured(); err != nil {
		return ClassInstance{}, err
	}
	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		return ClassInstance{}, mapRepoError(err)
	}
	return class, nil
}

// ListClasses returns classes starting in [from, until), cancelled ones included.
func (s *ClassService) ListClasses(ctx context.Context, from, until time.Time) ([]ClassInstance, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if !until.After(from) {
		vErr := &ValidationError{}
		vErr.add("until", "must be after from")
		return nil, vErr
	}
	classes, err := s.classes.ListClasses(ctx, ClassFilter{StartsFrom: &from, StartsBefore: &until})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return classes, nil
}

func (s *ClassService) validateInput(ctx context.Context, input ClassInput) error {
	vErr := validateStruct(input)
	if !input.Start.IsZero() && !input.End.IsZero() {
		validateDuration(input.End.Sub(input.Start), vErr)
	}
	if vErr.HasErrors() {
		return vErr
	}
	return ensureBuilding(ctx, s.buildings, strings.TrimSpace(input.BuildingID))
}

func applyClassInput(class *ClassInstance, input ClassInput) {
	class.ClassName = strings.TrimSpace(input.ClassName)
	class.Description = strings.TrimSpace(input.Description)
	class.InstructorName = strings.TrimSpace(input.InstructorName)
	class.BuildingID = strings.TrimSpace(input.BuildingID)
	class.Room = strings.TrimSpace(input.Room)
	class.MatsProvided = input.MatsProvided
	class.Start = input.Start
	class.End = input.End
}
