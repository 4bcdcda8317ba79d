package persistence

import (
	"time"

	"github.com/example/campus-yoga/internal/campustime"
)

// Building represents a campus building classes can be held in.
type Building struct {
	ID        string
	Name      string
	Address   string
	Latitude  *float64
	Longitude *float64
}

// ClassSeries represents a recurring class template.
type ClassSeries struct {
	ID               string
	Name             string
	Description      string
	InstructorName   string
	BuildingID       string
	Room             string
	MatsProvided     bool
	Pattern          string
	Days             []time.Weekday
	StartTime        campustime.Clock
	EndTime          campustime.Clock
	StartsOn         campustime.Date
	EndsOn           *campustime.Date
	GeneratedThrough *campustime.Date
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ClassInstance represents one concrete, dated class.
type ClassInstance struct {
	ID                string
	SeriesID          *string
	ClassName         string
	Description       string
	InstructorName    string
	BuildingID        string
	Room              string
	MatsProvided      bool
	Start             time.Time
	End               time.Time
	IsCancelled       bool
	CurrentEnrollment int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Registration records a user signed up for a class.
type Registration struct {
	ID           string
	UserID       string
	ClassID      string
	RegisteredAt time.Time
	Attended     bool
}

// InstancePatch lists the non-temporal fields propagated from a series to its instances.
// Nil fields are left untouched.
type InstancePatch struct {
	ClassName      *string
	Description    *string
	InstructorName *string
	BuildingID     *string
	Room           *string
	MatsProvided   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p InstancePatch) IsEmpty() bool {
	return p.ClassName == nil && p.Description == nil && p.InstructorName == nil &&
		p.BuildingID == nil && p.Room == nil && p.MatsProvided == nil
}
