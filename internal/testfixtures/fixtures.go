// Package testfixtures provides deterministic clocks, identifiers, domain records and
// storage harnesses shared by the test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/persistence"
)

var (
	buildingCounter uint64
	seriesCounter   uint64
	classCounter    uint64
)

var campus = mustLoadCampus()

func mustLoadCampus() *time.Location {
	loc, err := campustime.Load("America/Chicago")
	if err != nil {
		panic(err)
	}
	return loc
}

// Campus returns the timezone fixtures are expressed in.
func Campus() *time.Location {
	return campus
}

// 2024-03-04 is a Monday; noon on campus.
var referenceTime = time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Admin returns an administrator principal.
func Admin() application.Principal {
	return application.Principal{UserID: "admin-001", IsAdmin: true}
}

// Student returns a signed-in non-admin principal.
func Student(id string) application.Principal {
	if id == "" {
		id = "student-001"
	}
	return application.Principal{UserID: id}
}

// ----------------------------- Building fixtures -----------------------------

// BuildingFixture is a deterministic campus building.
type BuildingFixture struct {
	ID      string
	Name    string
	Address string
}

// NewBuildingFixture returns a building with an optional id override.
func NewBuildingFixture(id string) BuildingFixture {
	idx := atomic.AddUint64(&buildingCounter, 1)
	if id == "" {
		id = fmt.Sprintf("building-%03d", idx)
	}
	return BuildingFixture{
		ID:      id,
		Name:    fmt.Sprintf("Hall %03d", idx),
		Address: fmt.Sprintf("%d Campus Drive", 100+idx),
	}
}

// Application returns the fixture as an application.Building value.
func (f BuildingFixture) Application() application.Building {
	return application.Building{ID: f.ID, Name: f.Name, Address: f.Address}
}

// Persistence returns the fixture as a persistence.Building value.
func (f BuildingFixture) Persistence() persistence.Building {
	return persistence.Building{ID: f.ID, Name: f.Name, Address: f.Address}
}

// ----------------------------- Series fixtures -----------------------------

// SeriesFixture describes a recurring class. The default is a closed weekly
// Monday/Wednesday 07:00-08:00 series over two weeks starting at ReferenceTime.
type SeriesFixture struct {
	ID             string
	Name           string
	InstructorName string
	BuildingID     string
	Room           string
	Pattern        string
	Days           []time.Weekday
	StartTime      campustime.Clock
	EndTime        campustime.Clock
	StartsOn       campustime.Date
	EndsOn         *campustime.Date
}

// SeriesOption configures the generated series fixture.
type SeriesOption func(*SeriesFixture)

// NewSeriesFixture returns a deterministic series fixture with optional overrides.
func NewSeriesFixture(opts ...SeriesOption) SeriesFixture {
	idx := atomic.AddUint64(&seriesCounter, 1)
	starts := campustime.DateOf(referenceTime, campus)
	ends := starts.AddDays(13)
	fixture := SeriesFixture{
		ID:             fmt.Sprintf("series-%03d", idx),
		Name:           "Sunrise Flow",
		InstructorName: "Ana",
		BuildingID:     "rec",
		Room:           "Studio B",
		Pattern:        "weekly",
		Days:           []time.Weekday{time.Monday, time.Wednesday},
		StartTime:      campustime.Clock{Hour: 7},
		EndTime:        campustime.Clock{Hour: 8},
		StartsOn:       starts,
		EndsOn:         &ends,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSeriesPattern overrides the recurrence pattern.
func WithSeriesPattern(pattern string) SeriesOption {
	return func(f *SeriesFixture) {
		f.Pattern = pattern
	}
}

// WithSeriesDays overrides the selected weekdays.
func WithSeriesDays(days ...time.Weekday) SeriesOption {
	return func(f *SeriesFixture) {
		f.Days = append([]time.Weekday(nil), days...)
	}
}

// WithSeriesDates overrides the date range. A nil end makes the series open-ended.
func WithSeriesDates(starts campustime.Date, ends *campustime.Date) SeriesOption {
	return func(f *SeriesFixture) {
		f.StartsOn = starts
		f.EndsOn = ends
	}
}

// WithSeriesBuilding overrides the location.
func WithSeriesBuilding(buildingID, room string) SeriesOption {
	return func(f *SeriesFixture) {
		f.BuildingID = buildingID
		f.Room = room
	}
}

// Input returns the fixture as the admin form payload.
func (f SeriesFixture) Input() application.SeriesInput {
	days := make([]int, 0, len(f.Days))
	for _, d := range f.Days {
		days = append(days, int(d))
	}
	input := application.SeriesInput{
		Name:           f.Name,
		InstructorName: f.InstructorName,
		BuildingID:     f.BuildingID,
		Room:           f.Room,
		MatsProvided:   true,
		Pattern:        f.Pattern,
		Days:           days,
		StartDate:      f.StartsOn.String(),
		StartTime:      f.StartTime.String(),
		EndTime:        f.EndTime.String(),
	}
	if f.EndsOn != nil {
		input.EndDate = f.EndsOn.String()
	}
	return input
}

// Persistence returns the fixture as a stored template.
func (f SeriesFixture) Persistence() persistence.ClassSeries {
	return persistence.ClassSeries{
		ID:             f.ID,
		Name:           f.Name,
		InstructorName: f.InstructorName,
		BuildingID:     f.BuildingID,
		Room:           f.Room,
		MatsProvided:   true,
		Pattern:        f.Pattern,
		Days:           append([]time.Weekday(nil), f.Days...),
		StartTime:      f.StartTime,
		EndTime:        f.EndTime,
		StartsOn:       f.StartsOn,
		EndsOn:         f.EndsOn,
		IsActive:       true,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
}

// ----------------------------- Class fixtures -----------------------------

// ClassFixture is a single dated class.
type ClassFixture struct {
	ID             string
	SeriesID       *string
	ClassName      string
	InstructorName string
	BuildingID     string
	Room           string
	Start          time.Time
	End            time.Time
	IsCancelled    bool
}

// ClassOption configures the generated class fixture.
type ClassOption func(*ClassFixture)

// NewClassFixture returns a one hour class starting at start.
func NewClassFixture(start time.Time, opts ...ClassOption) ClassFixture {
	idx := atomic.AddUint64(&classCounter, 1)
	fixture := ClassFixture{
		ID:             fmt.Sprintf("class-%03d", idx),
		ClassName:      "Drop-in Vinyasa",
		InstructorName: "Ana",
		BuildingID:     "rec",
		Room:           "Studio B",
		Start:          start,
		End:            start.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClassID overrides the generated id.
func WithClassID(id string) ClassOption {
	return func(f *ClassFixture) {
		f.ID = id
	}
}

// WithClassSeries links the class to a series.
func WithClassSeries(seriesID string) ClassOption {
	return func(f *ClassFixture) {
		f.SeriesID = &seriesID
	}
}

// WithClassDuration overrides the length of the class.
func WithClassDuration(d time.Duration) ClassOption {
	return func(f *ClassFixture) {
		f.End = f.Start.Add(d)
	}
}

// WithClassCancelled marks the class cancelled.
func WithClassCancelled() ClassOption {
	return func(f *ClassFixture) {
		f.IsCancelled = true
	}
}

// WithClassRoom overrides the location.
func WithClassRoom(buildingID, room string) ClassOption {
	return func(f *ClassFixture) {
		f.BuildingID = buildingID
		f.Room = room
	}
}

// Input returns the fixture as the admin form payload.
func (f ClassFixture) Input() application.ClassInput {
	return application.ClassInput{
		ClassName:      f.ClassName,
		InstructorName: f.InstructorName,
		BuildingID:     f.BuildingID,
		Room:           f.Room,
		Start:          f.Start,
		End:            f.End,
	}
}

// Application returns the fixture as an application.ClassInstance value.
func (f ClassFixture) Application() application.ClassInstance {
	return application.ClassInstance{
		ID:             f.ID,
		SeriesID:       f.SeriesID,
		ClassName:      f.ClassName,
		InstructorName: f.InstructorName,
		BuildingID:     f.BuildingID,
		Room:           f.Room,
		Start:          f.Start,
		End:            f.End,
		IsCancelled:    f.IsCancelled,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
}

// Persistence returns the fixture as a stored instance.
func (f ClassFixture) Persistence() persistence.ClassInstance {
	return persistence.ClassInstance{
		ID:             f.ID,
		SeriesID:       f.SeriesID,
		ClassName:      f.ClassName,
		InstructorName: f.InstructorName,
		BuildingID:     f.BuildingID,
		Room:           f.Room,
		Start:          f.Start,
		End:            f.End,
		IsCancelled:    f.IsCancelled,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
}
