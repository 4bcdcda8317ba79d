package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/persistence"
)

type buildingRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Address   string          `db:"address"`
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
}

func (r buildingRow) model() persistence.Building {
	b := persistence.Building{ID: r.ID, Name: r.Name, Address: r.Address}
	if r.Latitude.Valid {
		lat := r.Latitude.Float64
		b.Latitude = &lat
	}
	if r.Longitude.Valid {
		lng := r.Longitude.Float64
		b.Longitude = &lng
	}
	return b
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

const seriesColumns = `id, series_name, description, instructor, building_id, room_number, mats_provided,
	recurrence_pattern, recurrence_days, start_time, end_time, series_start_date, series_end_date,
	generated_through, is_active, created_at, updated_at`

type seriesRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"series_name"`
	Description      string         `db:"description"`
	Instructor       string         `db:"instructor"`
	BuildingID       string         `db:"building_id"`
	Room             string         `db:"room_number"`
	MatsProvided     bool           `db:"mats_provided"`
	Pattern          string         `db:"recurrence_pattern"`
	Days             string         `db:"recurrence_days"`
	StartTime        string         `db:"start_time"`
	EndTime          string         `db:"end_time"`
	StartsOn         string         `db:"series_start_date"`
	EndsOn           sql.NullString `db:"series_end_date"`
	GeneratedThrough sql.NullString `db:"generated_through"`
	IsActive         bool           `db:"is_active"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
}

func newSeriesRow(s persistence.ClassSeries) seriesRow {
	return seriesRow{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		Instructor:       s.InstructorName,
		BuildingID:       s.BuildingID,
		Room:             s.Room,
		MatsProvided:     s.MatsProvided,
		Pattern:          s.Pattern,
		Days:             formatDays(s.Days),
		StartTime:        s.StartTime.String(),
		EndTime:          s.EndTime.String(),
		StartsOn:         s.StartsOn.String(),
		EndsOn:           nullDate(s.EndsOn),
		GeneratedThrough: nullDate(s.GeneratedThrough),
		IsActive:         s.IsActive,
		CreatedAt:        formatTime(s.CreatedAt),
		UpdatedAt:        formatTime(s.UpdatedAt),
	}
}

func (r seriesRow) model() (persistence.ClassSeries, error) {
	days, err := parseDays(r.Days)
	if err != nil {
		return persistence.ClassSeries{}, err
	}
	start, err := campustime.ParseClock(r.StartTime)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("start_time %q: %w", r.StartTime, err)
	}
	end, err := campustime.ParseClock(r.EndTime)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("end_time %q: %w", r.EndTime, err)
	}
	startsOn, err := campustime.ParseDate(r.StartsOn)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("series_start_date %q: %w", r.StartsOn, err)
	}
	endsOn, err := parseNullDate(r.EndsOn)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("series_end_date: %w", err)
	}
	generated, err := parseNullDate(r.GeneratedThrough)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("generated_through: %w", err)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("created_at: %w", err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return persistence.ClassSeries{}, fmt.Errorf("updated_at: %w", err)
	}

	return persistence.ClassSeries{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		InstructorName:   r.Instructor,
		BuildingID:       r.BuildingID,
		Room:             r.Room,
		MatsProvided:     r.MatsProvided,
		Pattern:          r.Pattern,
		Days:             days,
		StartTime:        start,
		EndTime:          end,
		StartsOn:         startsOn,
		EndsOn:           endsOn,
		GeneratedThrough: generated,
		IsActive:         r.IsActive,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}

const classColumns = `id, series_id, class_name, description, instructor, building_id, room_number,
	mats_provided, start_time, end_time, is_cancelled, current_enrollment, created_at, updated_at`

type classRow struct {
	ID                string         `db:"id"`
	SeriesID          sql.NullString `db:"series_id"`
	ClassName         string         `db:"class_name"`
	Description       string         `db:"description"`
	Instructor        string         `db:"instructor"`
	BuildingID        string         `db:"building_id"`
	Room              string         `db:"room_number"`
	MatsProvided      bool           `db:"mats_provided"`
	StartTime         string         `db:"start_time"`
	EndTime           string         `db:"end_time"`
	IsCancelled       bool           `db:"is_cancelled"`
	CurrentEnrollment int            `db:"current_enrollment"`
	CreatedAt         string         `db:"created_at"`
	UpdatedAt         string         `db:"updated_at"`
}

func newClassRow(c persistence.ClassInstance) classRow {
	row := classRow{
		ID:                c.ID,
		ClassName:         c.ClassName,
		Description:       c.Description,
		Instructor:        c.InstructorName,
		BuildingID:        c.BuildingID,
		Room:              c.Room,
		MatsProvided:      c.MatsProvided,
		StartTime:         formatTime(c.Start),
		EndTime:           formatTime(c.End),
		IsCancelled:       c.IsCancelled,
		CurrentEnrollment: c.CurrentEnrollment,
		CreatedAt:         formatTime(c.CreatedAt),
		UpdatedAt:         formatTime(c.UpdatedAt),
	}
	if c.SeriesID != nil && *c.SeriesID != "" {
		row.SeriesID = sql.NullString{String: *c.SeriesID, Valid: true}
	}
	return row
}

func (r classRow) model() (persistence.ClassInstance, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("start_time %q: %w", r.StartTime, err)
	}
	end, err := parseTime(r.EndTime)
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("end_time %q: %w", r.EndTime, err)
	}
	if !end.After(start) {
		return persistence.ClassInstance{}, fmt.Errorf("end_time %s not after start_time %s", r.EndTime, r.StartTime)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("created_at: %w", err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return persistence.ClassInstance{}, fmt.Errorf("updated_at: %w", err)
	}

	class := persistence.ClassInstance{
		ID:                r.ID,
		ClassName:         r.ClassName,
		Description:       r.Description,
		InstructorName:    r.Instructor,
		BuildingID:        r.BuildingID,
		Room:              r.Room,
		MatsProvided:      r.MatsProvided,
		Start:             start,
		End:               end,
		IsCancelled:       r.IsCancelled,
		CurrentEnrollment: r.CurrentEnrollment,
		CreatedAt:         created,
		UpdatedAt:         updated,
	}
	if r.SeriesID.Valid {
		id := r.SeriesID.String
		class.SeriesID = &id
	}
	return class, nil
}

type registrationRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	ClassID      string `db:"class_id"`
	RegisteredAt string `db:"registered_at"`
	Attended     bool   `db:"attended"`
}

func (r registrationRow) model() (persistence.Registration, error) {
	at, err := parseTime(r.RegisteredAt)
	if err != nil {
		return persistence.Registration{}, fmt.Errorf("registered_at %q: %w", r.RegisteredAt, err)
	}
	return persistence.Registration{
		ID:           r.ID,
		UserID:       r.UserID,
		ClassID:      r.ClassID,
		RegisteredAt: at,
		Attended:     r.Attended,
	}, nil
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// formatDays renders weekdays as a comma separated list of English names.
func formatDays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String())
	}
	return strings.Join(names, ",")
}

func parseDays(value string) ([]time.Weekday, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		day, ok := weekdayByName[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("recurrence_days: unknown weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func nullDate(d *campustime.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(value sql.NullString) (*campustime.Date, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	d, err := campustime.ParseDate(value.String)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", value.String, err)
	}
	return &d, nil
}
