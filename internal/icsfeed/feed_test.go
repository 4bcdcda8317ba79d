package icsfeed

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-yoga/internal/application"
)

func TestRenderRoundTrips(t *testing.T) {
	start := time.Date(2024, time.March, 4, 13, 0, 0, 0, time.UTC)
	classes := []application.ClassInstance{
		{
			ID:             "c1",
			ClassName:      "Sunrise Flow",
			InstructorName: "Ana",
			BuildingID:     "rec",
			Room:           "Studio B",
			MatsProvided:   true,
			Start:          start,
			End:            start.Add(time.Hour),
			UpdatedAt:      start.Add(-time.Hour),
		},
		{
			ID:          "c2",
			ClassName:   "Yin",
			BuildingID:  "annex",
			Room:        "101",
			Description: "Slow and steady",
			Start:       start.Add(24 * time.Hour),
			End:         start.Add(25 * time.Hour),
			IsCancelled: true,
		},
		{ID: "broken", ClassName: "Bad", Start: start, End: start},
	}
	buildings := []application.Building{{ID: "rec", Name: "Recreation Center"}}

	body := New("Campus Yoga", time.UTC).Render(classes, buildings, start)

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "c1@campus-yoga", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Sunrise Flow", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "CONFIRMED", first.GetProperty(ical.ComponentPropertyStatus).Value)
	gotStart, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))
	assert.Contains(t, body, "Recreation Center\\, Studio B")

	second := events[1]
	assert.Equal(t, "CANCELLED", second.GetProperty(ical.ComponentPropertyStatus).Value)
	assert.Contains(t, body, "annex\\, 101")
}

func TestRenderEmptyFeedStillValid(t *testing.T) {
	body := New("", nil).Render(nil, nil, time.Now())
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "X-WR-CALNAME:Campus Yoga")
	assert.NotContains(t, body, "BEGIN:VEVENT")
}

func TestLocationLabel(t *testing.T) {
	assert.Equal(t, "Gym, 2", locationLabel("Gym", "g", "2"))
	assert.Equal(t, "g, 2", locationLabel("", "g", "2"))
	assert.Equal(t, "2", locationLabel("", "", "2"))
	assert.Equal(t, "Gym", locationLabel("Gym", "g", ""))
}
