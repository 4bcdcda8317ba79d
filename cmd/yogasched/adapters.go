package main

import (
	"context"
	"time"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/persistence"
	"github.com/example/campus-yoga/internal/recurrence"
)

type buildingRepositoryAdapter struct {
	repo persistence.BuildingRepository
}

func newBuildingRepositoryAdapter(repo persistence.BuildingRepository) *buildingRepositoryAdapter {
	return &buildingRepositoryAdapter{repo: repo}
}

func (a *buildingRepositoryAdapter) UpsertBuilding(ctx context.Context, building application.Building) error {
	return a.repo.UpsertBuilding(ctx, toPersistenceBuilding(building))
}

func (a *buildingRepositoryAdapter) GetBuilding(ctx context.Context, id string) (application.Building, error) {
	stored, err := a.repo.GetBuilding(ctx, id)
	if err != nil {
		return application.Building{}, err
	}
	return toApplicationBuilding(stored), nil
}

func (a *buildingRepositoryAdapter) ListBuildings(ctx context.Context) ([]application.Building, error) {
	stored, err := a.repo.ListBuildings(ctx)
	if err != nil {
		return nil, err
	}
	buildings := make([]application.Building, 0, len(stored))
	for _, b := range stored {
		buildings = append(buildings, toApplicationBuilding(b))
	}
	return buildings, nil
}

type seriesRepositoryAdapter struct {
	repo persistence.SeriesRepository
}

func newSeriesRepositoryAdapter(repo persistence.SeriesRepository) *seriesRepositoryAdapter {
	return &seriesRepositoryAdapter{repo: repo}
}

func (a *seriesRepositoryAdapter) InsertSeries(ctx context.Context, series application.ClassSeries) error {
	return a.repo.InsertSeries(ctx, toPersistenceSeries(series))
}

func (a *seriesRepositoryAdapter) GetSeries(ctx context.Context, id string) (application.ClassSeries, error) {
	stored, err := a.repo.GetSeries(ctx, id)
	if err != nil {
		return application.ClassSeries{}, err
	}
	return toApplicationSeries(stored), nil
}

func (a *seriesRepositoryAdapter) UpdateSeries(ctx context.Context, series application.ClassSeries) error {
	return a.repo.UpdateSeries(ctx, toPersistenceSeries(series))
}

func (a *seriesRepositoryAdapter) DeleteSeries(ctx context.Context, id string) error {
	return a.repo.DeleteSeries(ctx, id)
}

func (a *seriesRepositoryAdapter) ListSeries(ctx context.Context, filter application.SeriesFilter) ([]application.ClassSeries, error) {
	stored, err := a.repo.ListSeries(ctx, persistence.SeriesFilter{
		ActiveOnly:    filter.ActiveOnly,
		OpenEndedOnly: filter.OpenEndedOnly,
	})
	if err != nil {
		return nil, err
	}
	series := make([]application.ClassSeries, 0, len(stored))
	for _, s := range stored {
		series = append(series, toApplicationSeries(s))
	}
	return series, nil
}

type classRepositoryAdapter struct {
	repo persistence.ClassRepository
}

func newClassRepositoryAdapter(repo persistence.ClassRepository) *classRepositoryAdapter {
	return &classRepositoryAdapter{repo: repo}
}

func (a *classRepositoryAdapter) CreateClass(ctx context.Context, class application.ClassInstance) error {
	return a.repo.CreateClass(ctx, toPersistenceClass(class))
}

func (a *classRepositoryAdapter) GetClass(ctx context.Context, id string) (application.ClassInstance, error) {
	stored, err := a.repo.GetClass(ctx, id)
	if err != nil {
		return application.ClassInstance{}, err
	}
	return toApplicationClass(stored), nil
}

func (a *classRepositoryAdapter) UpdateClass(ctx context.Context, class application.ClassInstance) error {
	return a.repo.UpdateClass(ctx, toPersistenceClass(class))
}

func (a *classRepositoryAdapter) DeleteClass(ctx context.Context, id string) error {
	return a.repo.DeleteClass(ctx, id)
}

func (a *classRepositoryAdapter) ListClasses(ctx context.Context, filter application.ClassFilter) ([]application.ClassInstance, error) {
	stored, err := a.repo.ListClasses(ctx, persistence.ClassFilter{
		IDs:              append([]string(nil), filter.IDs...),
		SeriesID:         filter.SeriesID,
		BuildingID:       filter.BuildingID,
		Room:             filter.Room,
		StartsFrom:       cloneTime(filter.StartsFrom),
		StartsBefore:     cloneTime(filter.StartsBefore),
		ExcludeCancelled: filter.ExcludeCancelled,
	})
	if err != nil {
		return nil, err
	}
	classes := make([]application.ClassInstance, 0, len(stored))
	for _, c := range stored {
		classes = append(classes, toApplicationClass(c))
	}
	return classes, nil
}

func (a *classRepositoryAdapter) BulkInsertInstances(ctx context.Context, classes []application.ClassInstance) (int, error) {
	models := make([]persistence.ClassInstance, 0, len(classes))
	for _, c := range classes {
		models = append(models, toPersistenceClass(c))
	}
	return a.repo.BulkInsertInstances(ctx, models)
}

func (a *classRepositoryAdapter) UpdateSeriesInstances(ctx context.Context, seriesID string, patch application.InstancePatch, from time.Time) (int, error) {
	return a.repo.UpdateSeriesInstances(ctx, seriesID, persistence.InstancePatch{
		ClassName:      cloneString(patch.ClassName),
		Description:    cloneString(patch.Description),
		InstructorName: cloneString(patch.InstructorName),
		BuildingID:     cloneString(patch.BuildingID),
		Room:           cloneString(patch.Room),
		MatsProvided:   cloneBool(patch.MatsProvided),
	}, from)
}

func (a *classRepositoryAdapter) SetSeriesInstancesCancelled(ctx context.Context, seriesID string, cancelled bool, from time.Time) (int, error) {
	return a.repo.SetSeriesInstancesCancelled(ctx, seriesID, cancelled, from)
}

func (a *classRepositoryAdapter) DeleteInstancesForSeries(ctx context.Context, seriesID string, from time.Time) (int, error) {
	return a.repo.DeleteInstancesForSeries(ctx, seriesID, from)
}

type registrationRepositoryAdapter struct {
	repo persistence.RegistrationRepository
}

func newRegistrationRepositoryAdapter(repo persistence.RegistrationRepository) *registrationRepositoryAdapter {
	return &registrationRepositoryAdapter{repo: repo}
}

func (a *registrationRepositoryAdapter) CreateRegistration(ctx context.Context, registration application.Registration) error {
	return a.repo.CreateRegistration(ctx, persistence.Registration(registration))
}

func (a *registrationRepositoryAdapter) DeleteRegistration(ctx context.Context, userID, classID string) error {
	return a.repo.DeleteRegistration(ctx, userID, classID)
}

func (a *registrationRepositoryAdapter) GetRegistration(ctx context.Context, userID, classID string) (application.Registration, error) {
	stored, err := a.repo.GetRegistration(ctx, userID, classID)
	if err != nil {
		return application.Registration{}, err
	}
	return application.Registration(stored), nil
}

func (a *registrationRepositoryAdapter) ListRegistrationsForUser(ctx context.Context, userID string) ([]application.Registration, error) {
	stored, err := a.repo.ListRegistrationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	registrations := make([]application.Registration, 0, len(stored))
	for _, r := range stored {
		registrations = append(registrations, application.Registration(r))
	}
	return registrations, nil
}

func toApplicationBuilding(model persistence.Building) application.Building {
	return application.Building{
		ID:        model.ID,
		Name:      model.Name,
		Address:   model.Address,
		Latitude:  cloneFloat(model.Latitude),
		Longitude: cloneFloat(model.Longitude),
	}
}

func toPersistenceBuilding(building application.Building) persistence.Building {
	return persistence.Building{
		ID:        building.ID,
		Name:      building.Name,
		Address:   building.Address,
		Latitude:  cloneFloat(building.Latitude),
		Longitude: cloneFloat(building.Longitude),
	}
}

func toApplicationSeries(model persistence.ClassSeries) application.ClassSeries {
	return application.ClassSeries{
		ID:               model.ID,
		Name:             model.Name,
		Description:      model.Description,
		InstructorName:   model.InstructorName,
		BuildingID:       model.BuildingID,
		Room:             model.Room,
		MatsProvided:     model.MatsProvided,
		Pattern:          recurrence.Pattern(model.Pattern),
		Days:             append([]time.Weekday(nil), model.Days...),
		StartTime:        model.StartTime,
		EndTime:          model.EndTime,
		StartsOn:         model.StartsOn,
		EndsOn:           cloneDate(model.EndsOn),
		GeneratedThrough: cloneDate(model.GeneratedThrough),
		IsActive:         model.IsActive,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toPersistenceSeries(series application.ClassSeries) persistence.ClassSeries {
	return persistence.ClassSeries{
		ID:               series.ID,
		Name:             series.Name,
		Description:      series.Description,
		InstructorName:   series.InstructorName,
		BuildingID:       series.BuildingID,
		Room:             series.Room,
		MatsProvided:     series.MatsProvided,
		Pattern:          string(series.Pattern),
		Days:             append([]time.Weekday(nil), series.Days...),
		StartTime:        series.StartTime,
		EndTime:          series.EndTime,
		StartsOn:         series.StartsOn,
		EndsOn:           cloneDate(series.EndsOn),
		GeneratedThrough: cloneDate(series.GeneratedThrough),
		IsActive:         series.IsActive,
		CreatedAt:        series.CreatedAt,
		UpdatedAt:        series.UpdatedAt,
	}
}

func toApplicationClass(model persistence.ClassInstance) application.ClassInstance {
	return application.ClassInstance{
		ID:                model.ID,
		SeriesID:          cloneString(model.SeriesID),
		ClassName:         model.ClassName,
		Description:       model.Description,
		InstructorName:    model.InstructorName,
		BuildingID:        model.BuildingID,
		Room:              model.Room,
		MatsProvided:      model.MatsProvided,
		Start:             model.Start,
		End:               model.End,
		IsCancelled:       model.IsCancelled,
		CurrentEnrollment: model.CurrentEnrollment,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func toPersistenceClass(class application.ClassInstance) persistence.ClassInstance {
	return persistence.ClassInstance{
		ID:                class.ID,
		SeriesID:          cloneString(class.SeriesID),
		ClassName:         class.ClassName,
		Description:       class.Description,
		InstructorName:    class.InstructorName,
		BuildingID:        class.BuildingID,
		Room:              class.Room,
		MatsProvided:      class.MatsProvided,
		Start:             class.Start,
		End:               class.End,
		IsCancelled:       class.IsCancelled,
		CurrentEnrollment: class.CurrentEnrollment,
		CreatedAt:         class.CreatedAt,
		UpdatedAt:         class.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneDate(value *campustime.Date) *campustime.Date {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
