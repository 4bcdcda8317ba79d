package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/campus-yoga/internal/application"
	"github.com/example/campus-yoga/internal/auth"
	"github.com/example/campus-yoga/internal/config"
	httptransport "github.com/example/campus-yoga/internal/http"
	"github.com/example/campus-yoga/internal/icsfeed"
	"github.com/example/campus-yoga/internal/jobs"
	"github.com/example/campus-yoga/internal/logging"
	"github.com/example/campus-yoga/internal/metrics"
	"github.com/example/campus-yoga/internal/persistence/sqlstore"
	"github.com/example/campus-yoga/internal/recurrence"
)

const (
	feedName      = "Campus Yoga"
	horizonJobKey = "extend-open-series"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, syncLogger, err := logging.New(logging.Options{Development: !cfg.IsProduction(), Level: cfg.LogLevel})
	if err != nil {
		bootstrap.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = syncLogger() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger, time.Now, newUUID)
	if err != nil {
		logger.Error("failed to initialise service", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	// open series are extended once before the first cron tick
	if err := app.scheduler.RunNow(horizonJobKey, app.horizon.Run); err != nil {
		logger.Warn("initial series extension failed", "error", err)
	}
	app.scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := app.scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop jobs", "error", err)
		}
	}()

	logger.Info("yoga scheduler listening",
		"addr", server.Addr,
		"env", cfg.Env,
		"campus_timezone", cfg.CampusTimezone,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func newUUID() string {
	return uuid.NewString()
}

// app holds the assembled service graph.
type app struct {
	store     *sqlstore.Store
	router    *gin.Engine
	scheduler *jobs.Scheduler
	horizon   *jobs.HorizonJob
	metrics   *metrics.Metrics
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time, idGenerator func() string) (*app, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	store, err := sqlstore.Open(ctx, cfg.DatabaseDSN, sqlstore.WithLogger(logger), sqlstore.WithClock(now))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if cfg.LocationsFile != "" {
		seeds, err := sqlstore.LoadBuildingSeeds(cfg.LocationsFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		seeded, err := store.SeedBuildings(ctx, seeds)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed buildings: %w", err)
		}
		logger.Info("building catalog seeded", "file", cfg.LocationsFile, "inserted", seeded)
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer), auth.WithClock(now))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	m := metrics.New()

	buildingRepo := newBuildingRepositoryAdapter(store)
	seriesRepo := newSeriesRepositoryAdapter(store)
	classRepo := newClassRepositoryAdapter(store)
	registrationRepo := newRegistrationRepositoryAdapter(store)

	seriesService := application.NewSeriesServiceWithLogger(seriesRepo, classRepo, buildingRepo, recurrence.NewEngine(loc), idGenerator, now, logger)
	seriesService.ObserveGeneration(m.ObserveGenerated)
	classService := application.NewClassServiceWithLogger(classRepo, buildingRepo, seriesService, idGenerator, now, logger)
	registrationService := application.NewRegistrationServiceWithLogger(registrationRepo, classRepo, idGenerator, now, logger)
	calendarService := application.NewCalendarServiceWithLogger(classRepo, buildingRepo, registrationService, loc, now, logger)
	buildingService := application.NewBuildingServiceWithLogger(buildingRepo, logger)

	horizon := jobs.NewHorizonJob(seriesService, loc, cfg.HorizonDays, now, logger)
	scheduler := jobs.NewScheduler(loc, logger, jobs.WithObserver(m.ObserveJobRun), jobs.WithTimeout(5*time.Minute))
	if err := scheduler.Schedule(horizonJobKey, cfg.ExtendCron, horizon.Run); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("schedule %s: %w", horizonJobKey, err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Calendar:      httptransport.NewCalendarHandler(calendarService, classService, buildingService, icsfeed.New(feedName, loc), now, logger),
		Classes:       httptransport.NewClassHandler(classService, loc, logger),
		Series:        httptransport.NewSeriesHandler(seriesService, horizon.Horizon, logger),
		Registrations: httptransport.NewRegistrationHandler(registrationService, logger),
		Buildings:     httptransport.NewBuildingHandler(buildingService, logger),
		Resolver:      verifier,
		Metrics:       m,
		Logger:        logger,
	})

	return &app{store: store, router: router, scheduler: scheduler, horizon: horizon, metrics: m}, nil
}

func (a *app) close(logger *slog.Logger) {
	if err := a.store.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}
