package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger and tags it with the
// handler, the matched route template and the signed-in caller.
func handlerLogger(c *gin.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(c.Request.Context())
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName, "operation", operation}
	if route := c.FullPath(); route != "" {
		pairs = append(pairs, "route", route)
	}
	if principal, ok := PrincipalFromContext(c.Request.Context()); ok && principal.UserID != "" {
		pairs = append(pairs, "principal_id", principal.UserID)
	}
	return logger.With(append(pairs, attrs...)...)
}
