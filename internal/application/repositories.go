package application

import (
	"context"
	"time"
)

// SeriesRepository captures the series persistence operations needed by the services.
type SeriesRepository interface {
	InsertSeries(ctx context.Context, series ClassSeries) error
	GetSeries(ctx context.Context, id string) (ClassSeries, error)
	UpdateSeries(ctx context.Context, series ClassSeries) error
	DeleteSeries(ctx context.Context, id string) error
	ListSeries(ctx context.Context, filter SeriesFilter) ([]ClassSeries, error)
}

// SeriesFilter narrows series queries.
type SeriesFilter struct {
	ActiveOnly    bool
	OpenEndedOnly bool
}

// ClassRepository captures the class instance persistence operations needed by the services.
type ClassRepository interface {
	CreateClass(ctx context.Context, class ClassInstance) error
	GetClass(ctx context.Context, id string) (ClassInstance, error)
	UpdateClass(ctx context.Context, class ClassInstance) error
	DeleteClass(ctx context.Context, id string) error
	ListClasses(ctx context.Context, filter ClassFilter) ([]ClassInstance, error)

	BulkInsertInstances(ctx context.Context, classes []ClassInstance) (int, error)
	UpdateSeriesInstances(ctx context.Context, seriesID string, patch InstancePatch, from time.Time) (int, error)
	SetSeriesInstancesCancelled(ctx context.Context, seriesID string, cancelled bool, from time.Time) (int, error)
	DeleteInstancesForSeries(ctx context.Context, seriesID string, from time.Time) (int, error)
}

// ClassFilter narrows class queries. StartsFrom is inclusive, StartsBefore exclusive.
type ClassFilter struct {
	IDs              []string
	SeriesID         string
	BuildingID       string
	Room             string
	StartsFrom       *time.Time
	StartsBefore     *time.Time
	ExcludeCancelled bool
}

// InstancePatch lists the non-temporal fields propagated from a series to its instances.
type InstancePatch struct {
	ClassName      *string
	Description    *string
	InstructorName *string
	BuildingID     *string
	Room           *string
	MatsProvided   *bool
}

// RegistrationRepository captures the registration persistence operations.
type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, registration Registration) error
	DeleteRegistration(ctx context.Context, userID, classID string) error
	GetRegistration(ctx context.Context, userID, classID string) (Registration, error)
	ListRegistrationsForUser(ctx context.Context, userID string) ([]Registration, error)
}

// BuildingCatalog exposes the location catalog.
type BuildingCatalog interface {
	GetBuilding(ctx context.Context, id string) (Building, error)
	ListBuildings(ctx context.Context) ([]Building, error)
}

// BuildingRepository extends the catalog with administrative writes.
type BuildingRepository interface {
	BuildingCatalog
	UpsertBuilding(ctx context.Context, building Building) error
}

// RegistrationLookup resolves a principal's registration status for a class.
type RegistrationLookup interface {
	GetRegistrationStatus(ctx context.Context, principal Principal, classID string) (RegistrationStatus, error)
}

// GenerationObserver is told how many instances were materialised and why.
type GenerationObserver func(source string, count int)
