package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/auth"
	"github.com/example/campus-yoga/internal/logging"
)

// PrincipalResolver turns a bearer token into the principal it was issued for.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (application.Principal, error)
}

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// RequestLogger attaches a request scoped logger to the request context.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(c *gin.Context) {
		id := counter.Add(1)
		logger := base.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		ctx := logging.ContextWithLogger(c.Request.Context(), logger)
		withRequestContext(c, ctx)
		start := time.Now()
		logger.DebugContext(ctx, "request started")
		c.Next()
		logger.InfoContext(ctx, "request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// Authenticate resolves the bearer token when one is present. Requests without a token
// continue anonymously; a token that fails verification is rejected.
func Authenticate(resolver PrincipalResolver, logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" || resolver == nil {
			c.Next()
			return
		}

		principal, err := resolver.ResolvePrincipal(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_INVALID",
					Message:   errInvalidToken.Error(),
				})
			} else {
				responder.writeError(c, http.StatusInternalServerError, errors.New("could not verify the session"))
			}
			c.Abort()
			return
		}

		ctx := ContextWithPrincipal(c.Request.Context(), principal)
		if logger := logging.FromContext(ctx); logger != nil {
			ctx = logging.ContextWithLogger(ctx, logger.With("user_id", principal.UserID))
		}
		withRequestContext(c, ctx)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		if !principalOf(c).Authenticated() {
			responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
				ErrorCode: "AUTH_REQUIRED",
				Message:   errMissingToken.Error(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Metrics reports every request to observer, labelled by route template.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
