package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/calendar"
	"github.com/example/campus-yoga/internal/campustime"
	"github.com/example/campus-yoga/internal/icsfeed"
)

type calendarService interface {
	Location() *time.Location
	MonthView(ctx context.Context, year int, month time.Month, states map[string]calendar.CellState) (calendar.MonthView, error)
	WeekView(ctx context.Context, ref time.Time) (calendar.WeekView, error)
	ClassDetails(ctx context.Context, principal application.Principal, classID string) (application.ClassDetails, error)
}

type classLister interface {
	ListClasses(ctx context.Context, from, until time.Time) ([]application.ClassInstance, error)
}

type buildingLister interface {
	ListBuildings(ctx context.Context) ([]application.Building, error)
}

const (
	feedLookback  = 30
	feedLookahead = 120
)

// CalendarHandler serves the public schedule views and the iCalendar feed.
type CalendarHandler struct {
	service   calendarService
	classes   classLister
	buildings buildingLister
	feed      *icsfeed.Feed
	now       func() time.Time
	logger    *slog.Logger
	responder responder
}

// NewCalendarHandler builds the handler serving calendar views, class details and the
// iCalendar feed.
func NewCalendarHandler(service calendarService, classes classLister, buildings buildingLister, feed *icsfeed.Feed, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{
		service:   service,
		classes:   classes,
		buildings: buildings,
		feed:      feed,
		now:       now,
		logger:    defaultLogger(logger),
		responder: newResponder(logger),
	}
}

func (h *CalendarHandler) today() campustime.Date {
	return campustime.DateOf(h.now(), h.service.Location())
}

// Month renders GET /calendar/month?month=YYYY-MM. Repeated expand and show_past
// parameters carry the per-day toggles.
func (h *CalendarHandler) Month(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	today := h.today()
	year, month := today.Year, today.Month
	if value := strings.TrimSpace(c.Query("month")); value != "" {
		parsed, err := time.Parse("2006-01", value)
		if err != nil {
			h.responder.writeError(c, http.StatusBadRequest, errInvalidMonth)
			return
		}
		year, month = parsed.Year(), parsed.Month()
	}

	states, err := cellStates(c.QueryArray("expand"), c.QueryArray("show_past"))
	if err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidDate)
		return
	}

	view, err := h.service.MonthView(c.Request.Context(), year, month, states)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toMonthViewDTO(view))
}

// Week renders GET /calendar/week?date=YYYY-MM-DD for the week containing date.
func (h *CalendarHandler) Week(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ref := h.today()
	if value := strings.TrimSpace(c.Query("date")); value != "" {
		parsed, err := campustime.ParseDate(value)
		if err != nil {
			h.responder.writeError(c, http.StatusBadRequest, errInvalidDate)
			return
		}
		ref = parsed
	}

	view, err := h.service.WeekView(c.Request.Context(), ref.In(h.service.Location()))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toWeekViewDTO(view))
}

// Class renders GET /classes/:id with the caller's registration status.
func (h *CalendarHandler) Class(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	classID := strings.TrimSpace(c.Param("id"))
	if classID == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidClassID)
		return
	}

	details, err := h.service.ClassDetails(c.Request.Context(), principalOf(c), classID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toClassDetailsDTO(details))
}

// Feed renders GET /calendar.ics covering recent and upcoming classes.
func (h *CalendarHandler) Feed(c *gin.Context) {
	if h == nil || h.service == nil || h.classes == nil || h.feed == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ctx := c.Request.Context()
	loc := h.service.Location()
	today := h.today()
	from := today.AddDays(-feedLookback).In(loc)
	until := today.AddDays(feedLookahead).In(loc)

	classes, err := h.classes.ListClasses(ctx, from, until)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	var buildings []application.Building
	if h.buildings != nil {
		buildings, err = h.buildings.ListBuildings(ctx)
		if err != nil {
			// the feed falls back to building ids
			handlerLogger(c, h.logger, "CalendarHandler", "Feed").WarnContext(ctx, "buildings unavailable for feed", "error", err)
			buildings = nil
		}
	}

	body := h.feed.Render(classes, buildings, h.now())
	c.Header("Content-Disposition", `inline; filename="campus-yoga.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func cellStates(expanded, showPast []string) (map[string]calendar.CellState, error) {
	if len(expanded) == 0 && len(showPast) == 0 {
		return nil, nil
	}
	states := make(map[string]calendar.CellState)
	for _, value := range expanded {
		date, err := campustime.ParseDate(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		state := states[date.String()]
		state.Expanded = true
		states[date.String()] = state
	}
	for _, value := range showPast {
		date, err := campustime.ParseDate(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		state := states[date.String()]
		state.ShowPast = true
		states[date.String()] = state
	}
	return states, nil
}
