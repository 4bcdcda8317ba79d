package application

import (
	"time"

	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/recurrence"
)

// Principal represents the user invoking a service method. A zero UserID is an anonymous visitor.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Authenticated reports whether the principal identifies a signed-in user.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// Building is a campus location classes can be held in.
type Building struct {
	ID        string
	Name      string
	Address   string
	Latitude  *float64
	Longitude *float64
}

// ClassSeries is a recurring class template.
type ClassSeries struct {
	ID               string
	Name             string
	Description      string
	InstructorName   string
	BuildingID       string
	Room             string
	MatsProvided     bool
	Pattern          recurrence.Pattern
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

// OpenEnded reports whether the series has no end date.
func (s ClassSeries) OpenEnded() bool {
	return s.EndsOn == nil
}

func (s ClassSeries) definition() recurrence.Series {
	return recurrence.Series{
		Pattern:   s.Pattern,
		Days:      s.Days,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		StartsOn:  s.StartsOn,
		EndsOn:    s.EndsOn,
	}
}

// ClassInstance is one concrete, dated class.
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

// Duration returns the length of the class.
func (c ClassInstance) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// Started reports whether the class has begun at now. Exactly at start counts as started.
func (c ClassInstance) Started(now time.Time) bool {
	return !now.Before(c.Start)
}

// Registration records a user signed up for a class.
type Registration struct {
	ID           string
	UserID       string
	ClassID      string
	RegisteredAt time.Time
	Attended     bool
}

// RegistrationStatus describes a principal's relation to a class.
type RegistrationStatus struct {
	IsAuthenticated bool
	IsRegistered    bool
}

// RegisteredClass pairs a registration with its class for the profile listings.
type RegisteredClass struct {
	Registration Registration
	Class        ClassInstance
}

// ClassDetails is the detail view of a single class.
type ClassDetails struct {
	Class    ClassInstance
	Building *Building
	Status   RegistrationStatus
	Past     bool
}

// ConflictWarning describes a non-blocking scheduling conflict.
type ConflictWarning struct {
	ClassID        string
	WithClassID    string
	Type           string
	InstructorName string
	BuildingID     string
	Room           string
	Start          time.Time
}

// SeriesInput captures the admin form for a new series. Dates are YYYY-MM-DD, times HH:MM.
// An empty EndDate creates an open-ended series.
type SeriesInput struct {
	Name           string `json:"name" validate:"required,notblank,max=120"`
	Description    string `json:"description" validate:"max=2000"`
	InstructorName string `json:"instructor_name" validate:"required,notblank,max=120"`
	BuildingID     string `json:"building_id" validate:"required,notblank"`
	Room           string `json:"room" validate:"required,notblank,max=60"`
	MatsProvided   bool   `json:"mats_provided"`
	Pattern        string `json:"pattern" validate:"required,oneof=weekly bi-weekly monthly"`
	Days           []int  `json:"days" validate:"required,min=1,dive,min=0,max=6"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime      string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string `json:"end_time" validate:"required,datetime=15:04"`
}

// SeriesPatch lists the non-temporal fields of a series that may change. Nil fields are untouched.
type SeriesPatch struct {
	Name           *string `json:"name" validate:"omitempty,notblank,max=120"`
	Description    *string `json:"description" validate:"omitempty,max=2000"`
	InstructorName *string `json:"instructor_name" validate:"omitempty,notblank,max=120"`
	BuildingID     *string `json:"building_id" validate:"omitempty,notblank"`
	Room           *string `json:"room" validate:"omitempty,notblank,max=60"`
	MatsProvided   *bool   `json:"mats_provided"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SeriesPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.InstructorName == nil &&
		p.BuildingID == nil && p.Room == nil && p.MatsProvided == nil
}

// ClassInput captures the admin form for a one-off class or a single-occurrence edit.
type ClassInput struct {
	ClassName      string    `json:"class_name" validate:"required,notblank,max=120"`
	Description    string    `json:"description" validate:"max=2000"`
	InstructorName string    `json:"instructor_name" validate:"required,notblank,max=120"`
	BuildingID     string    `json:"building_id" validate:"required,notblank"`
	Room           string    `json:"room" validate:"required,notblank,max=60"`
	MatsProvided   bool      `json:"mats_provided"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required"`
}

// UpdateMode selects whether a class edit applies to one occurrence or the whole series.
type UpdateMode string

const (
	// UpdateModeOccurrence edits only the addressed instance.
	UpdateModeOccurrence UpdateMode = "occurrence"
	// UpdateModeSeries propagates non-temporal fields to the series and its future instances.
	UpdateModeSeries     UpdateMode = "series"
)

// UpdateClassParams wraps the data required to edit a class.
type UpdateClassParams struct {
	Principal Principal
	ClassID   string
	Mode      UpdateMode
	Input     ClassInput
}

const (
	// MinClassDuration is the shortest class an admin may schedule.
	MinClassDuration = 30 * time.Minute
	// MaxClassDuration is the longest class an admin may schedule.
	MaxClassDuration = 120 * time.Minute
)
