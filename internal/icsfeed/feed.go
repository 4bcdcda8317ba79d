// Package icsfeed renders class instances as an iCalendar document so students can subscribe
// to the schedule from their calendar app.
package icsfeed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/campus-yoga/internal/application"
)

const uidDomain = "campus-yoga"

// Feed renders calendars with a fixed name and timezone hint.
type Feed struct {
	name     string
	location *time.Location
}

// New returns a feed named name. loc is advertised through X-WR-TIMEZONE.
func New(name string, loc *time.Location) *Feed {
	if strings.TrimSpace(name) == "" {
		name = "Campus Yoga"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Feed{name: name, location: loc}
}

// Render builds the document. Cancelled classes stay in the feed with STATUS:CANCELLED so
// subscribed clients drop them instead of keeping a stale copy.
func (f *Feed) Render(classes []application.ClassInstance, buildings []application.Building, now time.Time) string {
	names := make(map[string]string, len(buildings))
	for _, b := range buildings {
		names[b.ID] = b.Name
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + uidDomain + "//schedule//EN")
	cal.SetXWRCalName(f.name)
	cal.SetXWRTimezone(f.location.String())

	for _, class := range classes {
		if class.ID == "" || !class.End.After(class.Start) {
			continue
		}
		event := cal.AddEvent(class.ID + "@" + uidDomain)
		event.SetDtStampTime(now)
		if !class.CreatedAt.IsZero() {
			event.SetCreatedTime(class.CreatedAt)
		}
		if !class.UpdatedAt.IsZero() {
			event.SetModifiedAt(class.UpdatedAt)
			// clients only replace an event when the sequence grows
			event.SetProperty(ical.ComponentPropertySequence, strconv.FormatInt(class.UpdatedAt.Unix(), 10))
		}
		event.SetStartAt(class.Start)
		event.SetEndAt(class.End)
		event.SetSummary(class.ClassName)
		event.SetLocation(locationLabel(names[class.BuildingID], class.BuildingID, class.Room))
		event.SetDescription(description(class))
		if class.IsCancelled {
			event.SetStatus(ical.ObjectStatusCancelled)
		} else {
			event.SetStatus(ical.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize()
}

func locationLabel(buildingName, buildingID, room string) string {
	building := buildingName
	if building == "" {
		building = buildingID
	}
	switch {
	case building == "":
		return room
	case room == "":
		return building
	default:
		return fmt.Sprintf("%s, %s", building, room)
	}
}

func description(class application.ClassInstance) string {
	var lines []string
	if class.InstructorName != "" {
		lines = append(lines, "Instructor: "+class.InstructorName)
	}
	if class.MatsProvided {
		lines = append(lines, "Mats provided")
	} else {
		lines = append(lines, "Bring your own mat")
	}
	if d := strings.TrimSpace(class.Description); d != "" {
		lines = append(lines, d)
	}
	return strings.Join(lines, "\n")
}
