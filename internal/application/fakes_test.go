package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/campus-yoga/internal/persistence"
)

var campus = mustLoadCampus()

func mustLoadCampus() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
	return loc
}

func campusTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, campus)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type memSeriesRepo struct {
	items     map[string]ClassSeries
	insertErr error
	updateErr error
	deleted   []string
}

func newMemSeriesRepo() *memSeriesRepo {
	return &memSeriesRepo{items: make(map[string]ClassSeries)}
}

func (r *memSeriesRepo) InsertSeries(ctx context.Context, series ClassSeries) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.items[series.ID]; exists {
		return persistence.ErrDuplicate
	}
	r.items[series.ID] = series
	return nil
}

func (r *memSeriesRepo) GetSeries(ctx context.Context, id string) (ClassSeries, error) {
	series, ok := r.items[id]
	if !ok {
		return ClassSeries{}, persistence.ErrNotFound
	}
	return series, nil
}

func (r *memSeriesRepo) UpdateSeries(ctx context.Context, series ClassSeries) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.items[series.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.items[series.ID] = series
	return nil
}

func (r *memSeriesRepo) DeleteSeries(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memSeriesRepo) ListSeries(ctx context.Context, filter SeriesFilter) ([]ClassSeries, error) {
	var out []ClassSeries
	for _, series := range r.items {
		if filter.ActiveOnly && !series.IsActive {
			continue
		}
		if filter.OpenEndedOnly && !series.OpenEnded() {
			continue
		}
		out = append(out, series)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memClassRepo struct {
	items   map[string]ClassInstance
	bulkErr error
	listErr error
	// registrations is consulted when classes are deleted so cascades can be asserted.
	registrations *memRegistrationRepo
}

func newMemClassRepo() *memClassRepo {
	return &memClassRepo{items: make(map[string]ClassInstance)}
}

func (r *memClassRepo) seed(classes ...ClassInstance) {
	for _, class := range classes {
		r.items[class.ID] = class
	}
}

func (r *memClassRepo) CreateClass(ctx context.Context, class ClassInstance) error {
	if _, exists := r.items[class.ID]; exists {
		return persistence.ErrDuplicate
	}
	if !class.Start.Before(class.End) {
		return persistence.ErrConstraintViolation
	}
	r.items[class.ID] = class
	return nil
}

func (r *memClassRepo) GetClass(ctx context.Context, id string) (ClassInstance, error) {
	class, ok := r.items[id]
	if !ok {
		return ClassInstance{}, persistence.ErrNotFound
	}
	return class, nil
}

func (r *memClassRepo) UpdateClass(ctx context.Context, class ClassInstance) error {
	existing, ok := r.items[class.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	class.CurrentEnrollment = existing.CurrentEnrollment
	r.items[class.ID] = class
	return nil
}

func (r *memClassRepo) DeleteClass(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.items, id)
	if r.registrations != nil {
		r.registrations.dropClass(id)
	}
	return nil
}

func (r *memClassRepo) ListClasses(ctx context.Context, filter ClassFilter) ([]ClassInstance, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []ClassInstance
	for _, class := range r.items {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, class.ID) {
			continue
		}
		if filter.SeriesID != "" && (class.SeriesID == nil || *class.SeriesID != filter.SeriesID) {
			continue
		}
		if filter.StartsFrom != nil && class.Start.Before(*filter.StartsFrom) {
			continue
		}
		if filter.StartsBefore != nil && !class.Start.Before(*filter.StartsBefore) {
			continue
		}
		if filter.ExcludeCancelled && class.IsCancelled {
			continue
		}
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memClassRepo) BulkInsertInstances(ctx context.Context, classes []ClassInstance) (int, error) {
	if r.bulkErr != nil {
		return 0, r.bulkErr
	}
	for _, class := range classes {
		if _, exists := r.items[class.ID]; exists {
			return 0, persistence.ErrDuplicate
		}
	}
	inserted := 0
	for _, class := range classes {
		if r.hasSeriesStart(class) {
			continue
		}
		r.seed(class)
		inserted++
	}
	return inserted, nil
}

// hasSeriesStart mirrors the store's unique (series_id, start_time) key.
func (r *memClassRepo) hasSeriesStart(class ClassInstance) bool {
	if class.SeriesID == nil {
		return false
	}
	for _, existing := range r.items {
		if existing.SeriesID != nil && *existing.SeriesID == *class.SeriesID && existing.Start.Equal(class.Start) {
			return true
		}
	}
	return false
}

func (r *memClassRepo) futureOf(seriesID string, from time.Time) []string {
	var ids []string
	for id, class := range r.items {
		if class.SeriesID != nil && *class.SeriesID == seriesID && !class.Start.Before(from) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *memClassRepo) UpdateSeriesInstances(ctx context.Context, seriesID string, patch InstancePatch, from time.Time) (int, error) {
	ids := r.futureOf(seriesID, from)
	for _, id := range ids {
		class := r.items[id]
		if patch.ClassName != nil {
			class.ClassName = *patch.ClassName
		}
		if patch.Description != nil {
			class.Description = *patch.Description
		}
		if patch.InstructorName != nil {
			class.InstructorName = *patch.InstructorName
		}
		if patch.BuildingID != nil {
			class.BuildingID = *patch.BuildingID
		}
		if patch.Room != nil {
			class.Room = *patch.Room
		}
		if patch.MatsProvided != nil {
			class.MatsProvided = *patch.MatsProvided
		}
		r.items[id] = class
	}
	return len(ids), nil
}

func (r *memClassRepo) SetSeriesInstancesCancelled(ctx context.Context, seriesID string, cancelled bool, from time.Time) (int, error) {
	ids := r.futureOf(seriesID, from)
	for _, id := range ids {
		class := r.items[id]
		class.IsCancelled = cancelled
		r.items[id] = class
	}
	return len(ids), nil
}

func (r *memClassRepo) DeleteInstancesForSeries(ctx context.Context, seriesID string, from time.Time) (int, error) {
	ids := r.futureOf(seriesID, from)
	for _, id := range ids {
		delete(r.items, id)
		if r.registrations != nil {
			r.registrations.dropClass(id)
		}
	}
	return len(ids), nil
}

type memRegistrationRepo struct {
	items   []Registration
	classes *memClassRepo
}

func newMemRegistrationRepo(classes *memClassRepo) *memRegistrationRepo {
	repo := &memRegistrationRepo{classes: classes}
	classes.registrations = repo
	return repo
}

func (r *memRegistrationRepo) CreateRegistration(ctx context.Context, registration Registration) error {
	for _, existing := range r.items {
		if existing.UserID == registration.UserID && existing.ClassID == registration.ClassID {
			return persistence.ErrDuplicate
		}
	}
	class, ok := r.classes.items[registration.ClassID]
	if !ok {
		return persistence.ErrForeignKeyViolation
	}
	class.CurrentEnrollment++
	r.classes.items[class.ID] = class
	r.items = append(r.items, registration)
	return nil
}

func (r *memRegistrationRepo) DeleteRegistration(ctx context.Context, userID, classID string) error {
	for i, existing := range r.items {
		if existing.UserID == userID && existing.ClassID == classID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			if class, ok := r.classes.items[classID]; ok && class.CurrentEnrollment > 0 {
				class.CurrentEnrollment--
				r.classes.items[classID] = class
			}
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *memRegistrationRepo) GetRegistration(ctx context.Context, userID, classID string) (Registration, error) {
	for _, existing := range r.items {
		if existing.UserID == userID && existing.ClassID == classID {
			return existing, nil
		}
	}
	return Registration{}, persistence.ErrNotFound
}

func (r *memRegistrationRepo) ListRegistrationsForUser(ctx context.Context, userID string) ([]Registration, error) {
	var out []Registration
	for _, existing := range r.items {
		if existing.UserID == userID {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (r *memRegistrationRepo) dropClass(classID string) {
	r.items = slices.DeleteFunc(r.items, func(reg Registration) bool { return reg.ClassID == classID })
}

type memBuildings struct {
	items map[string]Building
}

func newMemBuildings(ids ...string) *memBuildings {
	b := &memBuildings{items: make(map[string]Building)}
	for _, id := range ids {
		b.items[id] = Building{ID: id, Name: id}
	}
	return b
}

func (b *memBuildings) GetBuilding(ctx context.Context, id string) (Building, error) {
	building, ok := b.items[id]
	if !ok {
		return Building{}, persistence.ErrNotFound
	}
	return building, nil
}

func (b *memBuildings) ListBuildings(ctx context.Context) ([]Building, error) {
	out := make([]Building, 0, len(b.items))
	for _, building := range b.items {
		out = append(out, building)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func (b *memBuildings) UpsertBuilding(ctx context.Context, building Building) error {
	b.items[building.ID] = building
	return nil
}
