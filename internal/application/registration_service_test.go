package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type registrationFixture struct {
	classes       *memClassRepo
	registrations *memRegistrationRepo
	svc           *RegistrationService
}

func newRegistrationFixture(now time.Time) *registrationFixture {
	classes := newMemClassRepo()
	registrations := newMemRegistrationRepo(classes)
	return &registrationFixture{
		classes:       classes,
		registrations: registrations,
		svc:           NewRegistrationService(registrations, classes, sequentialIDs("reg"), fixedClock(now)),
	}
}

func TestRegistrationService_Register(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 4, 12, 0)
	student := Principal{UserID: "student-1"}

	newFixture := func() *registrationFixture {
		f := newRegistrationFixture(now)
		f.classes.seed(
			ClassInstance{ID: "open", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
			ClassInstance{ID: "cancelled", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour), IsCancelled: true},
			ClassInstance{ID: "starting", Start: now, End: now.Add(time.Hour)},
		)
		return f
	}

	t.Run("registers and counts enrollment", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		registration, err := f.svc.Register(context.Background(), student, "open")
		if err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
		if registration.UserID != "student-1" || !registration.RegisteredAt.Equal(now) {
			t.Fatalf("unexpected registration %+v", registration)
		}
		if f.classes.items["open"].CurrentEnrollment != 1 {
			t.Fatalf("expected enrollment 1, got %d", f.classes.items["open"].CurrentEnrollment)
		}

		_, err = f.svc.Register(context.Background(), student, "open")
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if f.classes.items["open"].CurrentEnrollment != 1 {
			t.Fatalf("duplicate must not change enrollment")
		}
	})

	t.Run("anonymous visitors cannot register", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		if _, err := f.svc.Register(context.Background(), Principal{}, "open"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("closed classes", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		for _, id := range []string{"cancelled", "starting"} {
			if _, err := f.svc.Register(context.Background(), student, id); !errors.Is(err, ErrConflict) {
				t.Fatalf("%s: expected ErrConflict, got %v", id, err)
			}
		}
		if _, err := f.svc.Register(context.Background(), student, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRegistrationService_Unregister(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 4, 12, 0)
	student := Principal{UserID: "student-1"}
	f := newRegistrationFixture(now)
	f.classes.seed(ClassInstance{ID: "open", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)})

	if err := f.svc.Unregister(context.Background(), student, "open"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing registration, got %v", err)
	}
	if _, err := f.svc.Register(context.Background(), student, "open"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := f.svc.Unregister(context.Background(), student, "open"); err != nil {
		t.Fatalf("Unregister returned error: %v", err)
	}
	if f.classes.items["open"].CurrentEnrollment != 0 {
		t.Fatalf("expected enrollment 0, got %d", f.classes.items["open"].CurrentEnrollment)
	}

	started := newRegistrationFixture(now.Add(90 * time.Minute))
	started.classes.seed(ClassInstance{ID: "open", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)})
	if err := started.svc.Unregister(context.Background(), student, "open"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for started class, got %v", err)
	}
}

func TestRegistrationService_Status(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 4, 12, 0)
	f := newRegistrationFixture(now)
	f.classes.seed(ClassInstance{ID: "open", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)})

	status, err := f.svc.Status(context.Background(), Principal{}, "open")
	if err != nil || status.IsAuthenticated || status.IsRegistered {
		t.Fatalf("anonymous status = %+v, %v", status, err)
	}

	student := Principal{UserID: "student-1"}
	status, err = f.svc.GetRegistrationStatus(context.Background(), student, "open")
	if err != nil || !status.IsAuthenticated || status.IsRegistered {
		t.Fatalf("unregistered status = %+v, %v", status, err)
	}

	if _, err := f.svc.Register(context.Background(), student, "open"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	status, err = f.svc.Status(context.Background(), student, "open")
	if err != nil || !status.IsRegistered {
		t.Fatalf("registered status = %+v, %v", status, err)
	}
}

func TestRegistrationService_ProfileListings(t *testing.T) {
	t.Parallel()
	now := campusTime(2024, time.March, 4, 12, 0)
	f := newRegistrationFixture(now)
	f.classes.seed(
		ClassInstance{ID: "last-week", Start: now.Add(-7 * 24 * time.Hour), End: now.Add(-7*24*time.Hour + time.Hour)},
		ClassInstance{ID: "yesterday", Start: now.Add(-24 * time.Hour), End: now.Add(-23 * time.Hour)},
		ClassInstance{ID: "tomorrow", Start: now.Add(24 * time.Hour), End: now.Add(25 * time.Hour)},
		ClassInstance{ID: "later", Start: now.Add(2 * time.Hour), End: now.Add(3 * time.Hour)},
	)
	for i, id := range []string{"tomorrow", "last-week", "later", "yesterday"} {
		f.registrations.items = append(f.registrations.items, Registration{ID: string(rune('a' + i)), UserID: "u1", ClassID: id})
	}
	f.registrations.items = append(f.registrations.items, Registration{ID: "other", UserID: "u2", ClassID: "later"})

	upcoming, err := f.svc.UpcomingClasses(context.Background(), Principal{UserID: "u1"})
	if err != nil {
		t.Fatalf("UpcomingClasses returned error: %v", err)
	}
	if len(upcoming) != 2 || upcoming[0].Class.ID != "later" || upcoming[1].Class.ID != "tomorrow" {
		t.Fatalf("unexpected upcoming classes %+v", upcoming)
	}

	past, err := f.svc.PastClasses(context.Background(), Principal{UserID: "u1"})
	if err != nil {
		t.Fatalf("PastClasses returned error: %v", err)
	}
	if len(past) != 2 || past[0].Class.ID != "yesterday" || past[1].Class.ID != "last-week" {
		t.Fatalf("unexpected past classes %+v", past)
	}

	if _, err := f.svc.UpcomingClasses(context.Background(), Principal{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
