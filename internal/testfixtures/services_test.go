package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/persistence"
)

// classLookup serves GetClass from a map; the embedded interface covers the
// methods these tests never reach.
type classLookup struct {
	application.ClassRepository
	classes map[string]application.ClassInstance
}

func (c classLookup) GetClass(ctx context.Context, id string) (application.ClassInstance, error) {
	class, ok := c.classes[id]
	if !ok {
		return application.ClassInstance{}, application.ErrNotFound
	}
	return class, nil
}

type capturingRegistrations struct {
	created []application.Registration
}

func (r *capturingRegistrations) CreateRegistration(ctx context.Context, registration application.Registration) error {
	r.created = append(r.created, registration)
	return nil
}

func (r *capturingRegistrations) DeleteRegistration(ctx context.Context, userID, classID string) error {
	return nil
}

func (r *capturingRegistrations) GetRegistration(ctx context.Context, userID, classID string) (application.Registration, error) {
	for _, reg := range r.created {
		if reg.UserID == userID && reg.ClassID == classID {
			return reg, nil
		}
	}
	return application.Registration{}, application.ErrNotFound
}

func (r *capturingRegistrations) ListRegistrationsForUser(ctx context.Context, userID string) ([]application.Registration, error) {
	return nil, nil
}

func TestServiceFactoryNewRegistrationService(t *testing.T) {
	factory := NewServiceFactory()
	class := NewClassFixture(ReferenceTime().Add(24*time.Hour), WithClassID("class-a")).Application()
	regs := &capturingRegistrations{}

	svc := factory.NewRegistrationService(RegistrationServiceDeps{
		Registrations: regs,
		Classes:       classLookup{classes: map[string]application.ClassInstance{class.ID: class}},
	})

	registration, err := svc.Register(context.Background(), Student(""), class.ID)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if registration.ID != "id-001" {
		t.Fatalf("expected generated ID id-001, got %q", registration.ID)
	}
	if !registration.RegisteredAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), registration.RegisteredAt)
	}
	if len(regs.created) != 1 || regs.created[0].ID != registration.ID {
		t.Fatalf("repository received unexpected registrations: %+v", regs.created)
	}

	factory.Clock.Set(class.Start)
	if _, err := svc.Register(context.Background(), Student("late"), class.ID); err == nil {
		t.Fatalf("expected started class to reject registration")
	}
}

func TestServiceFactoryOverrides(t *testing.T) {
	clock := NewClock(time.Date(2024, time.June, 1, 15, 0, 0, 0, time.UTC))
	ids := NewIDGenerator("reg")
	factory := NewServiceFactory(WithClock(clock), WithIDGenerator(ids), WithLocation(time.UTC))

	if factory.Location != time.UTC {
		t.Fatalf("expected UTC location override, got %v", factory.Location)
	}
	if got := factory.idGen(nil)(); got != "reg-001" {
		t.Fatalf("expected reg-001, got %q", got)
	}
	if got := factory.idGen(func() string { return "fixed" })(); got != "fixed" {
		t.Fatalf("expected explicit generator to win, got %q", got)
	}
	if got := factory.now(nil)(); !got.Equal(clock.Now()) {
		t.Fatalf("expected factory clock, got %v", got)
	}
}

func TestSQLiteHarnessSeedsRecreationCenter(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	building, err := harness.Buildings.GetBuilding(ctx, "rec")
	if err != nil {
		t.Fatalf("GetBuilding returned error: %v", err)
	}
	if building.Name != "Recreation Center" {
		t.Fatalf("unexpected building name %q", building.Name)
	}

	series := NewSeriesFixture().Persistence()
	if err := harness.Series.InsertSeries(ctx, series); err != nil {
		t.Fatalf("InsertSeries returned error: %v", err)
	}
	class := NewClassFixture(ReferenceTime(), WithClassSeries(series.ID)).Persistence()
	if err := harness.Classes.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass returned error: %v", err)
	}

	got, err := harness.Classes.ListClasses(ctx, persistence.ClassFilter{SeriesID: series.ID})
	if err != nil {
		t.Fatalf("ListClasses returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != class.ID {
		t.Fatalf("expected the stored class, got %+v", got)
	}
}
