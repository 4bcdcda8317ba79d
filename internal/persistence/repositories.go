package persistence

import (
	"context"
	"time"
)

// BuildingRepository exposes the location catalog.
type BuildingRepository interface {
	UpsertBuilding(ctx context.Context, building Building) error
	GetBuilding(ctx context.Context, id string) (Building, error)
	ListBuildings(ctx context.Context) ([]Building, error)
}

// SeriesFilter narrows series queries.
type SeriesFilter struct {
	ActiveOnly    bool
	OpenEndedOnly bool
}

// SeriesRepository stores recurring class templates.
type SeriesRepository interface {
	InsertSeries(ctx context.Context, series ClassSeries) error
	GetSeries(ctx context.Context, id string) (ClassSeries, error)
	UpdateSeries(ctx context.Context, series ClassSeries) error
	// DeleteSeries removes the template and clears the series reference of its instances.
	DeleteSeries(ctx context.Context, id string) error
	ListSeries(ctx context.Context, filter SeriesFilter) ([]ClassSeries, error)
}

// ClassFilter narrows class instance queries. StartsFrom is inclusive, StartsBefore exclusive.
type ClassFilter struct {
	IDs              []string
	SeriesID         string
	BuildingID       string
	Room             string
	StartsFrom       *time.Time
	StartsBefore     *time.Time
	ExcludeCancelled bool
}

// ClassRepository stores class instances.
type ClassRepository interface {
	CreateClass(ctx context.Context, class ClassInstance) error
	GetClass(ctx context.Context, id string) (ClassInstance, error)
	UpdateClass(ctx context.Context, class ClassInstance) error
	// DeleteClass removes the instance together with its registrations.
	DeleteClass(ctx context.Context, id string) error
	ListClasses(ctx context.Context, filter ClassFilter) ([]ClassInstance, error)

	BulkInsertInstances(ctx context.Context, classes []ClassInstance) (int, error)
	UpdateSeriesInstances(ctx context.Context, seriesID string, patch InstancePatch, from time.Time) (int, error)
	SetSeriesInstancesCancelled(ctx context.Context, seriesID string, cancelled bool, from time.Time) (int, error)
	DeleteInstancesForSeries(ctx context.Context, seriesID string, from time.Time) (int, error)
}

// RegistrationRepository stores class sign-ups and keeps enrollment counters in step.
type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, registration Registration) error
	DeleteRegistration(ctx context.Context, userID, classID string) error
	GetRegistration(ctx context.Context, userID, classID string) (Registration, error)
	ListRegistrationsForUser(ctx context.Context, userID string) ([]Registration, error)
}
