package scheduler

import (
	"testing"
	"time"
)

func TestDetectConflicts(t *testing.T) {
	base := time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC)

	existing := []Booking{
		{ID: "studio-a", Building: "Rec Center", Room: "Studio A", Instructor: "Maya", Start: base, End: base.Add(time.Hour)},
		{ID: "studio-b", Building: "Rec Center", Room: "Studio B", Instructor: "Lee", Start: base, End: base.Add(time.Hour)},
		{ID: "cancelled", Building: "Rec Center", Room: "Studio C", Instructor: "Ana", Start: base, End: base.Add(time.Hour), Cancelled: true},
	}

	t.Run("instructor overlap produces conflict", func(t *testing.T) {
		candidate := Booking{ID: "new", Building: "Library", Room: "201", Instructor: "maya ", Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d: %+v", len(conflicts), conflicts)
		}
		if conflicts[0].Type != ConflictTypeInstructor || conflicts[0].WithBookingID != "studio-a" {
			t.Fatalf("unexpected conflict %+v", conflicts[0])
		}
	})

	t.Run("room overlap produces conflict", func(t *testing.T) {
		candidate := Booking{ID: "new", Building: "rec center", Room: "studio b", Instructor: "Sam", Start: base.Add(-30 * time.Minute), End: base.Add(15 * time.Minute)}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d: %+v", len(conflicts), conflicts)
		}
		if conflicts[0].Type != ConflictTypeRoom || conflicts[0].WithBookingID != "studio-b" {
			t.Fatalf("unexpected conflict %+v", conflicts[0])
		}
	})

	t.Run("non-overlapping bookings yield no conflicts", func(t *testing.T) {
		candidate := Booking{ID: "new", Building: "Rec Center", Room: "Studio A", Instructor: "Maya", Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("cancelled bookings are ignored", func(t *testing.T) {
		candidate := Booking{ID: "new", Building: "Rec Center", Room: "Studio C", Instructor: "Ana", Start: base, End: base.Add(time.Hour)}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("a booking does not conflict with itself", func(t *testing.T) {
		if conflicts := DetectConflicts(existing, existing[0]); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}

func TestDetectBatchConflicts(t *testing.T) {
	base := time.Date(2024, time.March, 18, 7, 0, 0, 0, time.UTC)
	candidates := []Booking{
		{ID: "first", Building: "Rec Center", Room: "Studio A", Start: base, End: base.Add(time.Hour)},
		{ID: "second", Building: "Rec Center", Room: "Studio A", Start: base.Add(30 * time.Minute), End: base.Add(2 * time.Hour)},
	}

	conflicts := DetectBatchConflicts(nil, candidates)
	if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeRoom {
		t.Fatalf("expected one room conflict, got %+v", conflicts)
	}
	if conflicts[0].BookingID != "second" || conflicts[0].WithBookingID != "first" {
		t.Fatalf("expected second to conflict with first, got %+v", conflicts[0])
	}
}
