package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/campustime"
)

type seriesService interface {
	CreateSeriesWithClasses(ctx context.Context, principal application.Principal, input application.SeriesInput) (application.SeriesCreation, error)
	UpdateSeries(ctx context.Context, principal application.Principal, seriesID string, patch application.SeriesPatch) (application.ClassSeries, int, error)
	DeleteSeries(ctx context.Context, principal application.Principal, seriesID string) error
	CancelFutureClasses(ctx context.Context, principal application.Principal, seriesID string) (int, error)
	DeleteFutureClasses(ctx context.Context, principal application.Principal, seriesID string) (int, error)
	ExtendOpenSeries(ctx context.Context, horizon campustime.Date) (int, error)
	GetSeries(ctx context.Context, principal application.Principal, seriesID string) (application.ClassSeries, error)
	ListSeries(ctx context.Context, principal application.Principal, activeOnly bool) ([]application.ClassSeries, error)
}

// SeriesHandler serves the admin series endpoints.
type SeriesHandler struct {
	service   seriesService
	horizon   func() campustime.Date
	logger    *slog.Logger
	responder responder
}

// NewSeriesHandler builds the handler. horizon supplies the default extension target.
func NewSeriesHandler(service seriesService, horizon func() campustime.Date, logger *slog.Logger) *SeriesHandler {
	return &SeriesHandler{service: service, horizon: horizon, logger: defaultLogger(logger), responder: newResponder(logger)}
}

type seriesCreatedResponse struct {
	Series    seriesDTO    `json:"series"`
	Generated int          `json:"generated"`
	Warnings  []warningDTO `json:"warnings"`
}

type extendRequest struct {
	Horizon string `json:"horizon"`
}

func (h *SeriesHandler) Create(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var input application.SeriesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.CreateSeriesWithClasses(c.Request.Context(), principalOf(c), input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, seriesCreatedResponse{
		Series:    toSeriesDTO(created.Series),
		Generated: created.Generated,
		Warnings:  toWarningDTOs(created.Warnings),
	})
}

// List serves GET /admin/series?active=true.
func (h *SeriesHandler) List(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	activeOnly := false
	if value := strings.TrimSpace(c.Query("active")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			h.responder.writeError(c, http.StatusBadRequest, errors.New("active must be true or false"))
			return
		}
		activeOnly = parsed
	}

	series, err := h.service.ListSeries(c.Request.Context(), principalOf(c), activeOnly)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	out := make([]seriesDTO, 0, len(series))
	for _, s := range series {
		out = append(out, toSeriesDTO(s))
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"series": out})
}

func (h *SeriesHandler) Get(c *gin.Context) {
	seriesID, ok := h.seriesID(c)
	if !ok {
		return
	}

	series, err := h.service.GetSeries(c.Request.Context(), principalOf(c), seriesID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"series": toSeriesDTO(series)})
}

// Update serves PATCH /admin/series/:id. Only non-temporal fields may change.
func (h *SeriesHandler) Update(c *gin.Context) {
	seriesID, ok := h.seriesID(c)
	if !ok {
		return
	}

	var patch application.SeriesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	series, propagated, err := h.service.UpdateSeries(c.Request.Context(), principalOf(c), seriesID, patch)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"series": toSeriesDTO(series), "updated_classes": propagated})
}

func (h *SeriesHandler) Delete(c *gin.Context) {
	seriesID, ok := h.seriesID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSeries(c.Request.Context(), principalOf(c), seriesID); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

// CancelFuture serves POST /admin/series/:id/cancel-future.
func (h *SeriesHandler) CancelFuture(c *gin.Context) {
	seriesID, ok := h.seriesID(c)
	if !ok {
		return
	}

	count, err := h.service.CancelFutureClasses(c.Request.Context(), principalOf(c), seriesID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"cancelled": count})
}

// DeleteFuture serves POST /admin/series/:id/delete-future.
func (h *SeriesHandler) DeleteFuture(c *gin.Context) {
	seriesID, ok := h.seriesID(c)
	if !ok {
		return
	}

	count, err := h.service.DeleteFutureClasses(c.Request.Context(), principalOf(c), seriesID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"deleted": count})
}

// Extend serves POST /admin/series/extend. The body may name a horizon date; the
// configured rolling horizon applies otherwise.
func (h *SeriesHandler) Extend(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if !principalOf(c).IsAdmin {
		h.responder.handleServiceError(c, application.ErrUnauthorized)
		return
	}

	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var horizon campustime.Date
	switch {
	case strings.TrimSpace(req.Horizon) != "":
		parsed, err := campustime.ParseDate(strings.TrimSpace(req.Horizon))
		if err != nil {
			h.responder.writeError(c, http.StatusBadRequest, errInvalidDate)
			return
		}
		horizon = parsed
	case h.horizon != nil:
		horizon = h.horizon()
	default:
		h.responder.writeError(c, http.StatusBadRequest, errors.New("horizon is required"))
		return
	}

	ctx := c.Request.Context()
	created, err := h.service.ExtendOpenSeries(ctx, horizon)
	if err != nil {
		handlerLogger(c, h.logger, "SeriesHandler", "Extend", "horizon", horizon.String()).
			WarnContext(ctx, "extension finished with errors", "created", created, "error", err)
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"horizon": horizon.String(), "created": created})
}

func (h *SeriesHandler) seriesID(c *gin.Context) (string, bool) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return "", false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidSeriesID)
		return "", false
	}
	return id, true
}
