package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/logging"
)

var (
	errBadRequestBody    = errors.New("invalid request body")
	errInvalidClassID    = errors.New("invalid class id")
	errInvalidSeriesID   = errors.New("invalid series id")
	errInvalidBuildingID = errors.New("invalid building id")
	errInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	errInvalidMonth      = errors.New("invalid month, expected YYYY-MM")
	errMissingToken      = errors.New("sign in to continue")
	errInvalidToken      = errors.New("your session is no longer valid, sign in again")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(c *gin.Context, status int, payload any) {
	if c == nil {
		return
	}
	if status == http.StatusNoContent || payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (r responder) writeError(c *gin.Context, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		ctx := c.Request.Context()
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(c, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if err == nil {
		r.writeError(c, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		if principal, _ := PrincipalFromContext(ctx); !principal.Authenticated() {
			r.writeJSON(c, http.StatusUnauthorized, errorResponse{
				ErrorCode: "AUTH_REQUIRED",
				Message:   statusMessage(http.StatusUnauthorized),
			})
			return
		}
		r.writeJSON(c, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(c, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "the resource already exists",
		})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(c, http.StatusConflict, errorResponse{
			ErrorCode: "CONFLICT",
			Message:   conflictMessage(err),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.loggerFor(ctx).WarnContext(ctx, "request abandoned", "error", err)
		r.writeJSON(c, http.StatusServiceUnavailable, errorResponse{Message: statusMessage(http.StatusServiceUnavailable)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(c, http.StatusUnprocessableEntity, errorResponse{
				Message: statusMessage(http.StatusUnprocessableEntity),
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(c, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// conflictMessage strips the sentinel suffix so clients see the reason only.
func conflictMessage(err error) string {
	msg := err.Error()
	suffix := ": " + application.ErrConflict.Error()
	if trimmed := strings.TrimSuffix(msg, suffix); trimmed != msg && trimmed != "" {
		return trimmed
	}
	return statusMessage(http.StatusConflict)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return "sign in to continue"
	case http.StatusForbidden:
		return "you do not have permission to perform this action"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state of the resource"
	case http.StatusUnprocessableEntity:
		return "some fields are invalid"
	case http.StatusServiceUnavailable:
		return "the service is temporarily unavailable"
	default:
		return "an internal error occurred"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
