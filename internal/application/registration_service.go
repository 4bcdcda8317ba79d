package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// RegistrationService signs users up for classes.
type RegistrationService struct {
	registrations RegistrationRepository
	classes       ClassRepository
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewRegistrationService constructs a registration service with the provided dependencies.
func NewRegistrationService(registrations RegistrationRepository, classes ClassRepository, idGenerator func() string, now func() time.Time) *RegistrationService {
	return NewRegistrationServiceWithLogger(registrations, classes, idGenerator, now, nil)
}

// NewRegistrationServiceWithLogger constructs a registration service with a specified logger.
func NewRegistrationServiceWithLogger(registrations RegistrationRepository, classes ClassRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RegistrationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		registrations: registrations,
		classes:       classes,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

func (s *RegistrationService) configured() error {
	if s == nil {
		return fmt.Errorf("RegistrationService is nil")
	}
	if s.registrations == nil || s.classes == nil {
		return fmt.Errorf("registration repositories not configured")
	}
	return nil
}

// Register signs the principal up for a class. Cancelled and started classes are closed.
func (s *RegistrationService) Register(ctx context.Context, principal Principal, classID string) (registration Registration, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Register", "principal_id", principal.UserID, "class_id", classID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("registration_id", registration.ID).InfoContext(ctx, "registration created")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	var class ClassInstance
	class, err = s.classes.GetClass(ctx, classID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	now := s.now()
	switch {
	case class.IsCancelled:
		err = fmt.Errorf("class is cancelled: %w", ErrConflict)
		return
	case class.Started(now):
		err = fmt.Errorf("class has already started: %w", ErrConflict)
		return
	}

	if _, lookupErr := s.registrations.GetRegistration(ctx, principal.UserID, classID); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !isNotFound(lookupErr) {
		err = fmt.Errorf("lookup registration: %w", lookupErr)
		return
	}

	registration = Registration{
		ID:           s.idGenerator(),
		UserID:       principal.UserID,
		ClassID:      classID,
		RegisteredAt: now,
	}
	if err = s.registrations.CreateRegistration(ctx, registration); err != nil {
		err = mapRepoError(err)
		registration = Registration{}
	}
	return
}

// Unregister removes the principal's registration. Started classes can no longer be left.
func (s *RegistrationService) Unregister(ctx context.Context, principal Principal, classID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Unregister", "principal_id", principal.UserID, "class_id", classID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to unregister", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration removed")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	var class ClassInstance
	class, err = s.classes.GetClass(ctx, classID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if class.Started(s.now()) {
		err = fmt.Errorf("class has already started: %w", ErrConflict)
		return
	}

	err = mapRepoError(s.registrations.DeleteRegistration(ctx, principal.UserID, classID))
	return
}

// Status reports whether the principal is signed in and registered for the class.
func (s *RegistrationService) Status(ctx context.Context, principal Principal, classID string) (RegistrationStatus, error) {
	if err := s.configured(); err != nil {
		return RegistrationStatus{}, err
	}
	if !principal.Authenticated() {
		return RegistrationStatus{}, nil
	}

	status := RegistrationStatus{IsAuthenticated: true}
	_, err := s.registrations.GetRegistration(ctx, principal.UserID, classID)
	switch {
	case err == nil:
		status.IsRegistered = true
	case isNotFound(err):
	default:
		return RegistrationStatus{}, fmt.Errorf("lookup registration: %w", err)
	}
	return status, nil
}

// GetRegistrationStatus satisfies RegistrationLookup.
func (s *RegistrationService) GetRegistrationStatus(ctx context.Context, principal Principal, classID string) (RegistrationStatus, error) {
	return s.Status(ctx, principal, classID)
}

// UpcomingClasses lists the principal's registered classes that have not started, soonest first.
func (s *RegistrationService) UpcomingClasses(ctx context.Context, principal Principal) ([]RegisteredClass, error) {
	all, err := s.registeredClasses(ctx, principal)
	if err != nil {
		return nil, err
	}
	now := s.now()
	upcoming := make([]RegisteredClass, 0, len(all))
	for _, rc := range all {
		if !rc.Class.Started(now) {
			upcoming = append(upcoming, rc)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Class.Start.Before(upcoming[j].Class.Start)
	})
	return upcoming, nil
}

// PastClasses lists the principal's registered classes that have started, most recent first.
func (s *RegistrationService) PastClasses(ctx context.Context, principal Principal) ([]RegisteredClass, error) {
	all, err := s.registeredClasses(ctx, principal)
	if err != nil {
		return nil, err
	}
	now := s.now()
	past := make([]RegisteredClass, 0, len(all))
	for _, rc := range all {
		if rc.Class.Started(now) {
			past = append(past, rc)
		}
	}
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].Class.Start.After(past[j].Class.Start)
	})
	return past, nil
}

func (s *RegistrationService) registeredClasses(ctx context.Context, principal Principal) ([]RegisteredClass, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if !principal.Authenticated() {
		return nil, ErrUnauthorized
	}

	registrations, err := s.registrations.ListRegistrationsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(registrations) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(registrations))
	for _, r := range registrations {
		ids = append(ids, r.ClassID)
	}
	classes, err := s.classes.ListClasses(ctx, ClassFilter{IDs: ids})
	if err != nil {
		return nil, mapRepoError(err)
	}
	byID := make(map[string]ClassInstance, len(classes))
	for _, class := range classes {
		byID[class.ID] = class
	}

	out := make([]RegisteredClass, 0, len(registrations))
	for _, r := range registrations {
		class, ok := byID[r.ClassID]
		if !ok {
			s.loggerWith(ctx, "registeredClasses").WarnContext(ctx, "registration references missing class",
				"registration_id", r.ID, "class_id", r.ClassID)
			continue
		}
		out = append(out, RegisteredClass{Registration: r, Class: class})
	}
	return out, nil
}

var _ RegistrationLookup = (*RegistrationService)(nil)
