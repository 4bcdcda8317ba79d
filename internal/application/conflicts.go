package application

import (
	"context"
	"fmt"

	"github.com/example/campus-yoga/internal/scheduler"
)

// conflictWarnings reports room and instructor clashes between the candidates and the
// stored classes overlapping their span. Candidates are also checked against each other.
func conflictWarnings(ctx context.Context, classes ClassRepository, candidates []ClassInstance) ([]ConflictWarning, error) {
	if classes == nil || len(candidates) == 0 {
		return nil, nil
	}

	from, until := candidates[0].Start, candidates[0].End
	for _, c := range candidates[1:] {
		if c.Start.Before(from) {
			from = c.Start
		}
		if c.End.After(until) {
			until = c.End
		}
	}
	// a class starting up to MaxClassDuration earlier may still overlap the first candidate
	windowStart := from.Add(-MaxClassDuration)

	existing, err := classes.ListClasses(ctx, ClassFilter{
		StartsFrom:       &windowStart,
		StartsBefore:     &until,
		ExcludeCancelled: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load classes for conflict check: %w", mapRepoError(err))
	}

	bookings := make([]scheduler.Booking, 0, len(existing))
	for _, class := range existing {
		bookings = append(bookings, toBooking(class))
	}
	proposed := make([]scheduler.Booking, 0, len(candidates))
	for _, class := range candidates {
		proposed = append(proposed, toBooking(class))
	}

	return toConflictWarnings(scheduler.DetectBatchConflicts(bookings, proposed)), nil
}

func toBooking(class ClassInstance) scheduler.Booking {
	return scheduler.Booking{
		ID:         class.ID,
		Building:   class.BuildingID,
		Room:       class.Room,
		Instructor: class.InstructorName,
		Start:      class.Start,
		End:        class.End,
		Cancelled:  class.IsCancelled,
	}
}

func toConflictWarnings(conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, ConflictWarning{
			ClassID:        c.BookingID,
			WithClassID:    c.WithBookingID,
			Type:           string(c.Type),
			InstructorName: c.Instructor,
			BuildingID:     c.Building,
			Room:           c.Room,
			Start:          c.Start,
		})
	}
	return warnings
}
