package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/campustime"
)

type classService interface {
	CreateClass(ctx context.Context, principal application.Principal, input application.ClassInput) (application.ClassInstance, []application.ConflictWarning, error)
	UpdateClass(ctx context.Context, params application.UpdateClassParams) (application.ClassInstance, []application.ConflictWarning, error)
	CancelClass(ctx context.Context, principal application.Principal, classID string) (application.ClassInstance, error)
	UncancelClass(ctx context.Context, principal application.Principal, classID string) (application.ClassInstance, error)
	DeleteClass(ctx context.Context, principal application.Principal, classID string) error
	ListClasses(ctx context.Context, from, until time.Time) ([]application.ClassInstance, error)
}

// ClassHandler serves class listing and the admin class endpoints.
type ClassHandler struct {
	service   classService
	location  *time.Location
	logger    *slog.Logger
	responder responder
}

// NewClassHandler builds the handler. loc parses the date range of class listings.
func NewClassHandler(service classService, loc *time.Location, logger *slog.Logger) *ClassHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ClassHandler{service: service, location: loc, logger: defaultLogger(logger), responder: newResponder(logger)}
}

type classResponse struct {
	Class    classDTO     `json:"class"`
	Warnings []warningDTO `json:"warnings"`
}

// List serves GET /classes?from=YYYY-MM-DD&until=YYYY-MM-DD. until is exclusive.
func (h *ClassHandler) List(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	from, err := campustime.ParseDate(strings.TrimSpace(c.Query("from")))
	if err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidDate)
		return
	}
	until, err := campustime.ParseDate(strings.TrimSpace(c.Query("until")))
	if err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidDate)
		return
	}

	classes, err := h.service.ListClasses(c.Request.Context(), from.In(h.location), until.In(h.location))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"classes": toClassDTOs(classes)})
}

func (h *ClassHandler) Create(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var input application.ClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	class, warnings, err := h.service.CreateClass(c.Request.Context(), principalOf(c), input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, classResponse{Class: toClassDTO(class), Warnings: toWarningDTOs(warnings)})
}

// Update serves PUT /admin/classes/:id?mode=occurrence|series.
func (h *ClassHandler) Update(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	classID := strings.TrimSpace(c.Param("id"))
	if classID == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidClassID)
		return
	}

	var input application.ClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	mode := application.UpdateMode(strings.ToLower(strings.TrimSpace(c.Query("mode"))))
	class, warnings, err := h.service.UpdateClass(c.Request.Context(), application.UpdateClassParams{
		Principal: principalOf(c),
		ClassID:   classID,
		Mode:      mode,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, classResponse{Class: toClassDTO(class), Warnings: toWarningDTOs(warnings)})
}

func (h *ClassHandler) Cancel(c *gin.Context) {
	h.setCancelled(c, true)
}

func (h *ClassHandler) Uncancel(c *gin.Context) {
	h.setCancelled(c, false)
}

func (h *ClassHandler) setCancelled(c *gin.Context, cancelled bool) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	classID := strings.TrimSpace(c.Param("id"))
	if classID == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidClassID)
		return
	}

	var (
		class application.ClassInstance
		err   error
	)
	if cancelled {
		class, err = h.service.CancelClass(c.Request.Context(), principalOf(c), classID)
	} else {
		class, err = h.service.UncancelClass(c.Request.Context(), principalOf(c), classID)
	}
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"class": toClassDTO(class)})
}

func (h *ClassHandler) Delete(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	classID := strings.TrimSpace(c.Param("id"))
	if classID == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidClassID)
		return
	}

	if err := h.service.DeleteClass(c.Request.Context(), principalOf(c), classID); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	handlerLogger(c, h.logger, "ClassHandler", "Delete", "class_id", classID).
		InfoContext(c.Request.Context(), "class deleted")
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}
