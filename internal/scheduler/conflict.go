package scheduler

import (
	"sort"
	"strings"
	"time"
)

// Booking represents a class occupying a room and an instructor for a time range.
type Booking struct {
	ID         string
	Building   string
	Room       string
	Instructor string
	Start      time.Time
	End        time.Time
	Cancelled  bool
}

// ConflictType describes the type of conflict detected between bookings.
type ConflictType string

const (
	// ConflictTypeInstructor indicates an instructor is double-booked.
	ConflictTypeInstructor ConflictType = "instructor"
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details an overlapping booking relation that callers can present to admins.
type Conflict struct {
	BookingID     string
	WithBookingID string
	Type          ConflictType
	Instructor    string
	Building      string
	Room          string
	Start         time.Time
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
// Cancelled bookings never conflict, and ranges are half-open so back-to-back classes
// in the same room are allowed.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	if candidate.Cancelled || !candidate.End.After(candidate.Start) {
		return nil
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.ID != "" && other.ID == candidate.ID {
			continue
		}
		if other.Cancelled || !overlaps(candidate, other) {
			continue
		}

		if sameRoom(candidate, other) {
			conflicts = append(conflicts, Conflict{
				BookingID:     candidate.ID,
				WithBookingID: other.ID,
				Type:          ConflictTypeRoom,
				Building:      other.Building,
				Room:          other.Room,
				Start:         other.Start,
			})
		}
		if sameInstructor(candidate, other) {
			conflicts = append(conflicts, Conflict{
				BookingID:     candidate.ID,
				WithBookingID: other.ID,
				Type:          ConflictTypeInstructor,
				Instructor:    other.Instructor,
				Start:         other.Start,
			})
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}

// DetectBatchConflicts checks every candidate against the existing bookings and against
// earlier candidates of the same batch.
func DetectBatchConflicts(existing []Booking, candidates []Booking) []Conflict {
	var conflicts []Conflict
	seen := make([]Booking, 0, len(existing)+len(candidates))
	seen = append(seen, existing...)
	for _, candidate := range candidates {
		conflicts = append(conflicts, DetectConflicts(seen, candidate)...)
		seen = append(seen, candidate)
	}
	return conflicts
}

func overlaps(a, b Booking) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func sameRoom(a, b Booking) bool {
	if a.Building == "" || a.Room == "" {
		return false
	}
	return strings.EqualFold(a.Building, b.Building) && strings.EqualFold(a.Room, b.Room)
}

func sameInstructor(a, b Booking) bool {
	name := strings.TrimSpace(a.Instructor)
	return name != "" && strings.EqualFold(name, strings.TrimSpace(b.Instructor))
}
