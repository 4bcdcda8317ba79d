package http

import (
	"time"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/calendar"
)

type classDTO struct {
	ID                string    `json:"id"`
	SeriesID          *string   `json:"series_id,omitempty"`
	ClassName         string    `json:"class_name"`
	Description       string    `json:"description,omitempty"`
	InstructorName    string    `json:"instructor_name"`
	BuildingID        string    `json:"building_id"`
	Room              string    `json:"room"`
	MatsProvided      bool      `json:"mats_provided"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	IsCancelled       bool      `json:"is_cancelled"`
	CurrentEnrollment int       `json:"current_enrollment"`
}

func toClassDTO(class application.ClassInstance) classDTO {
	return classDTO{
		ID:                class.ID,
		SeriesID:          class.SeriesID,
		ClassName:         class.ClassName,
		Description:       class.Description,
		InstructorName:    class.InstructorName,
		BuildingID:        class.BuildingID,
		Room:              class.Room,
		MatsProvided:      class.MatsProvided,
		Start:             class.Start,
		End:               class.End,
		IsCancelled:       class.IsCancelled,
		CurrentEnrollment: class.CurrentEnrollment,
	}
}

func toClassDTOs(classes []application.ClassInstance) []classDTO {
	out := make([]classDTO, 0, len(classes))
	for _, class := range classes {
		out = append(out, toClassDTO(class))
	}
	return out
}

type warningDTO struct {
	ClassID        string    `json:"class_id"`
	WithClassID    string    `json:"with_class_id"`
	Type           string    `json:"type"`
	InstructorName string    `json:"instructor_name,omitempty"`
	BuildingID     string    `json:"building_id,omitempty"`
	Room           string    `json:"room,omitempty"`
	Start          time.Time `json:"start"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []warningDTO {
	out := make([]warningDTO, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, warningDTO{
			ClassID:        w.ClassID,
			WithClassID:    w.WithClassID,
			Type:           w.Type,
			InstructorName: w.InstructorName,
			BuildingID:     w.BuildingID,
			Room:           w.Room,
			Start:          w.Start,
		})
	}
	return out
}

type buildingDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func toBuildingDTO(b application.Building) buildingDTO {
	return buildingDTO{ID: b.ID, Name: b.Name, Address: b.Address, Latitude: b.Latitude, Longitude: b.Longitude}
}

type seriesDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	InstructorName   string  `json:"instructor_name"`
	BuildingID       string  `json:"building_id"`
	Room             string  `json:"room"`
	MatsProvided     bool    `json:"mats_provided"`
	Pattern          string  `json:"pattern"`
	Days             []int   `json:"days"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	StartDate        string  `json:"start_date"`
	EndDate          *string `json:"end_date"`
	GeneratedThrough *string `json:"generated_through,omitempty"`
	IsActive         bool    `json:"is_active"`
}

func toSeriesDTO(s application.ClassSeries) seriesDTO {
	days := make([]int, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, int(d))
	}
	dto := seriesDTO{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		InstructorName: s.InstructorName,
		BuildingID:     s.BuildingID,
		Room:           s.Room,
		MatsProvided:   s.MatsProvided,
		Pattern:        string(s.Pattern),
		Days:           days,
		StartTime:      s.StartTime.String(),
		EndTime:        s.EndTime.String(),
		StartDate:      s.StartsOn.String(),
		IsActive:       s.IsActive,
	}
	if s.EndsOn != nil {
		end := s.EndsOn.String()
		dto.EndDate = &end
	}
	if s.GeneratedThrough != nil {
		through := s.GeneratedThrough.String()
		dto.GeneratedThrough = &through
	}
	return dto
}

type entryDTO struct {
	classDTO
	Past       bool     `json:"past"`
	StartLabel string   `json:"start_label"`
	EndLabel   string   `json:"end_label"`
	Top        *float64 `json:"top,omitempty"`
	Height     *float64 `json:"height,omitempty"`
}

func toEntryDTO(view calendar.EntryView) entryDTO {
	dto := entryDTO{Past: view.Past, StartLabel: view.StartLabel, EndLabel: view.EndLabel}
	if class, ok := view.Payload.(application.ClassInstance); ok {
		dto.classDTO = toClassDTO(class)
	} else {
		dto.classDTO = classDTO{ID: view.ID, Start: view.Start, End: view.End, IsCancelled: view.Cancelled}
	}
	return dto
}

func toEntryDTOs(views []calendar.EntryView) []entryDTO {
	out := make([]entryDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toEntryDTO(v))
	}
	return out
}

type monthCellDTO struct {
	Date           string     `json:"date"`
	IsToday        bool       `json:"is_today"`
	InCurrentMonth bool       `json:"in_current_month"`
	Total          int        `json:"total"`
	Visible        []entryDTO `json:"visible"`
	Started        []entryDTO `json:"started,omitempty"`
	StartedCount   int        `json:"started_count"`
	HasMore        bool       `json:"has_more"`
	MoreCount      int        `json:"more_count"`
}

type monthViewDTO struct {
	Title string           `json:"title"`
	Year  int              `json:"year"`
	Month int              `json:"month"`
	Weeks [][]monthCellDTO `json:"weeks"`
}

func toMonthViewDTO(view calendar.MonthView) monthViewDTO {
	dto := monthViewDTO{Title: view.Title, Year: view.Year, Month: int(view.Month)}
	for _, week := range view.Weeks {
		row := make([]monthCellDTO, 0, len(week))
		for _, cell := range week {
			c := monthCellDTO{
				Date:           cell.Date.String(),
				IsToday:        cell.IsToday,
				InCurrentMonth: cell.InCurrentMonth,
				Total:          cell.Total,
				Visible:        toEntryDTOs(cell.Visible),
				StartedCount:   cell.StartedCount,
				HasMore:        cell.HasMore,
				MoreCount:      cell.MoreCount,
			}
			if len(cell.Started) > 0 {
				c.Started = toEntryDTOs(cell.Started)
			}
			row = append(row, c)
		}
		dto.Weeks = append(dto.Weeks, row)
	}
	return dto
}

type weekColumnDTO struct {
	Date    string     `json:"date"`
	IsToday bool       `json:"is_today"`
	Entries []entryDTO `json:"entries"`
}

type weekViewDTO struct {
	Title   string          `json:"title"`
	Hours   []string        `json:"hours"`
	Columns []weekColumnDTO `json:"columns"`
}

func toWeekViewDTO(view calendar.WeekView) weekViewDTO {
	dto := weekViewDTO{Title: view.Title, Hours: view.Hours}
	for _, column := range view.Columns {
		entries := make([]entryDTO, 0, len(column.Entries))
		for _, placed := range column.Entries {
			entry := toEntryDTO(placed.EntryView)
			top, height := placed.Top, placed.Height
			entry.Top = &top
			entry.Height = &height
			entries = append(entries, entry)
		}
		dto.Columns = append(dto.Columns, weekColumnDTO{
			Date:    column.Date.String(),
			IsToday: column.IsToday,
			Entries: entries,
		})
	}
	return dto
}

type registrationStatusDTO struct {
	IsAuthenticated bool `json:"is_authenticated"`
	IsRegistered    bool `json:"is_registered"`
}

type classDetailsDTO struct {
	Class        classDTO              `json:"class"`
	Building     *buildingDTO          `json:"building,omitempty"`
	Registration registrationStatusDTO `json:"registration"`
	Past         bool                  `json:"past"`
}

func toClassDetailsDTO(details application.ClassDetails) classDetailsDTO {
	dto := classDetailsDTO{
		Class: toClassDTO(details.Class),
		Registration: registrationStatusDTO{
			IsAuthenticated: details.Status.IsAuthenticated,
			IsRegistered:    details.Status.IsRegistered,
		},
		Past: details.Past,
	}
	if details.Building != nil {
		b := toBuildingDTO(*details.Building)
		dto.Building = &b
	}
	return dto
}

type registeredClassDTO struct {
	RegistrationID string    `json:"registration_id"`
	RegisteredAt   time.Time `json:"registered_at"`
	Attended       bool      `json:"attended"`
	Class          classDTO  `json:"class"`
}

func toRegisteredClassDTOs(items []application.RegisteredClass) []registeredClassDTO {
	out := make([]registeredClassDTO, 0, len(items))
	for _, item := range items {
		out = append(out, registeredClassDTO{
			RegistrationID: item.Registration.ID,
			RegisteredAt:   item.Registration.RegisteredAt,
			Attended:       item.Registration.Attended,
			Class:          toClassDTO(item.Class),
		})
	}
	return out
}
