package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    Campus(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = Campus()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the campus timezone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// SeriesServiceDeps captures dependencies for constructing a series service.
type SeriesServiceDeps struct {
	Series      application.SeriesRepository
	Classes     application.ClassRepository
	Buildings   application.BuildingCatalog
	Engine      *recurrence.Engine
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewSeriesService builds a series service expanding in the factory's timezone
// unless an engine is supplied.
func (f *ServiceFactory) NewSeriesService(deps SeriesServiceDeps) *application.SeriesService {
	engine := deps.Engine
	if engine == nil {
		engine = recurrence.NewEngine(f.Location)
	}
	return application.NewSeriesServiceWithLogger(
		deps.Series,
		deps.Classes,
		deps.Buildings,
		engine,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// ClassServiceDeps captures dependencies for constructing a class service.
type ClassServiceDeps struct {
	Classes     application.ClassRepository
	Buildings   application.BuildingCatalog
	Series      *application.SeriesService
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewClassService builds a class service.
func (f *ServiceFactory) NewClassService(deps ClassServiceDeps) *application.ClassService {
	return application.NewClassServiceWithLogger(
		deps.Classes,
		deps.Buildings,
		deps.Series,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// RegistrationServiceDeps captures dependencies for constructing a registration service.
type RegistrationServiceDeps struct {
	Registrations application.RegistrationRepository
	Classes       application.ClassRepository
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewRegistrationService builds a registration service.
func (f *ServiceFactory) NewRegistrationService(deps RegistrationServiceDeps) *application.RegistrationService {
	return application.NewRegistrationServiceWithLogger(
		deps.Registrations,
		deps.Classes,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// CalendarServiceDeps captures dependencies for constructing a calendar service.
type CalendarServiceDeps struct {
	Classes   application.ClassRepository
	Buildings application.BuildingCatalog
	Lookup    application.RegistrationLookup
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewCalendarService builds a calendar service in the factory's timezone.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	return application.NewCalendarServiceWithLogger(
		deps.Classes,
		deps.Buildings,
		deps.Lookup,
		f.Location,
		f.now(deps.Now),
		deps.Logger,
	)
}

// NewBuildingService builds a building service.
func (f *ServiceFactory) NewBuildingService(buildings application.BuildingRepository, logger *slog.Logger) *application.BuildingService {
	return application.NewBuildingServiceWithLogger(buildings, logger)
}
