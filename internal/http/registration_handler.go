package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
)

type registrationService interface {
	Register(ctx context.Context, principal application.Principal, classID string) (application.Registration, error)
	Unregister(ctx context.Context, principal application.Principal, classID string) error
	Status(ctx context.Context, principal application.Principal, classID string) (application.RegistrationStatus, error)
	UpcomingClasses(ctx context.Context, principal application.Principal) ([]application.RegisteredClass, error)
	PastClasses(ctx context.Context, principal application.Principal) ([]application.RegisteredClass, error)
}

// RegistrationHandler serves class sign-ups and the profile class lists.
type RegistrationHandler struct {
	service   registrationService
	responder responder
}

// NewRegistrationHandler builds the handler for sign-ups and a student's class lists.
func NewRegistrationHandler(service registrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, responder: newResponder(logger)}
}

// Register serves POST /classes/:id/registration.
func (h *RegistrationHandler) Register(c *gin.Context) {
	classID, ok := h.classID(c)
	if !ok {
		return
	}

	registration, err := h.service.Register(c.Request.Context(), principalOf(c), classID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, gin.H{
		"registration_id": registration.ID,
		"class_id":        registration.ClassID,
		"registered_at":   registration.RegisteredAt,
	})
}

// Unregister serves DELETE /classes/:id/registration.
func (h *RegistrationHandler) Unregister(c *gin.Context) {
	classID, ok := h.classID(c)
	if !ok {
		return
	}

	if err := h.service.Unregister(c.Request.Context(), principalOf(c), classID); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

// Status serves GET /classes/:id/registration. Anonymous callers get a zero status.
func (h *RegistrationHandler) Status(c *gin.Context) {
	classID, ok := h.classID(c)
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), principalOf(c), classID)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, registrationStatusDTO{
		IsAuthenticated: status.IsAuthenticated,
		IsRegistered:    status.IsRegistered,
	})
}

// Upcoming serves GET /me/classes/upcoming.
func (h *RegistrationHandler) Upcoming(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	items, err := h.service.UpcomingClasses(c.Request.Context(), principalOf(c))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"classes": toRegisteredClassDTOs(items)})
}

// Past serves GET /me/classes/past.
func (h *RegistrationHandler) Past(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	items, err := h.service.PastClasses(c.Request.Context(), principalOf(c))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"classes": toRegisteredClassDTOs(items)})
}

func (h *RegistrationHandler) classID(c *gin.Context) (string, bool) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return "", false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidClassID)
		return "", false
	}
	return id, true
}
