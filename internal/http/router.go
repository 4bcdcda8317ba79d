package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsExporter observes requests and serves the scrape endpoint.
type MetricsExporter interface {
	RequestObserver
	Handler() http.Handler
}

type RouterConfig struct {
	Calendar      *CalendarHandler
	Classes       *ClassHandler
	Series        *SeriesHandler
	Registrations *RegistrationHandler
	Buildings     *BuildingHandler
	Resolver      PrincipalResolver
	Metrics       MetricsExporter
	Logger        *slog.Logger
	Middleware    []gin.HandlerFunc
}

// NewRouter wires the API routes onto a gin engine. Route groups for nil handlers are skipped.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := defaultLogger(cfg.Logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.Metrics != nil {
		engine.Use(Metrics(cfg.Metrics))
	}
	engine.Use(RequestLogger(logger))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			engine.Use(mw)
		}
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := engine.Group("/")
	api.Use(Authenticate(cfg.Resolver, logger))
	requireAuth := RequireAuth(logger)

	if cfg.Calendar != nil {
		api.GET("/calendar/month", cfg.Calendar.Month)
		api.GET("/calendar/week", cfg.Calendar.Week)
		api.GET("/calendar.ics", cfg.Calendar.Feed)
		api.GET("/classes/:id", cfg.Calendar.Class)
	}

	if cfg.Classes != nil {
		api.GET("/classes", cfg.Classes.List)
	}

	if cfg.Registrations != nil {
		api.GET("/classes/:id/registration", cfg.Registrations.Status)
		api.POST("/classes/:id/registration", requireAuth, cfg.Registrations.Register)
		api.DELETE("/classes/:id/registration", requireAuth, cfg.Registrations.Unregister)

		me := api.Group("/me", requireAuth)
		me.GET("/classes/upcoming", cfg.Registrations.Upcoming)
		me.GET("/classes/past", cfg.Registrations.Past)
	}

	if cfg.Buildings != nil {
		api.GET("/buildings", cfg.Buildings.List)
		api.GET("/buildings/:id", cfg.Buildings.Get)
	}

	// admin checks happen in the services; the group only demands a signed-in caller
	admin := api.Group("/admin", requireAuth)

	if cfg.Classes != nil {
		admin.POST("/classes", cfg.Classes.Create)
		admin.PUT("/classes/:id", cfg.Classes.Update)
		admin.DELETE("/classes/:id", cfg.Classes.Delete)
		admin.POST("/classes/:id/cancel", cfg.Classes.Cancel)
		admin.POST("/classes/:id/uncancel", cfg.Classes.Uncancel)
	}

	if cfg.Series != nil {
		admin.GET("/series", cfg.Series.List)
		admin.POST("/series", cfg.Series.Create)
		admin.POST("/series/extend", cfg.Series.Extend)
		admin.GET("/series/:id", cfg.Series.Get)
		admin.PATCH("/series/:id", cfg.Series.Update)
		admin.DELETE("/series/:id", cfg.Series.Delete)
		admin.POST("/series/:id/cancel-future", cfg.Series.CancelFuture)
		admin.POST("/series/:id/delete-future", cfg.Series.DeleteFuture)
	}

	if cfg.Buildings != nil {
		admin.PUT("/buildings/:id", cfg.Buildings.Put)
	}

	return engine
}
