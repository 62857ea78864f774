package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/amaumene/deleterr/internal/api/handlers"
	"github.com/amaumene/deleterr/internal/config"
	"github.com/amaumene/deleterr/internal/controllers"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/amaumene/deleterr/internal/services/jellyfin"
	"github.com/amaumene/deleterr/internal/services/radarr"
	"github.com/amaumene/deleterr/internal/services/sonarr"
	"github.com/amaumene/deleterr/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// app holds the components shared by every command
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *models.Database
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	sonarr   *sonarr.Client
	radarr   *radarr.Client
	jellyfin *jellyfin.Client // nil when not configured
}

func newApp() (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized")

	// 4. Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		metrics:  metrics.New(registry),
	}

	// 5. Initialize services
	timeout := arr.ClampTimeout(cfg.RequestTimeout)
	a.sonarr = sonarr.NewClient(cfg.SonarrURL, cfg.SonarrAPIKey, logger, arr.WithTimeout(timeout))
	a.radarr = radarr.NewClient(cfg.RadarrURL, cfg.RadarrAPIKey, logger, arr.WithTimeout(timeout))
	if cfg.JellyfinEnabled() {
		a.jellyfin = jellyfin.NewClient(cfg.JellyfinURL, cfg.JellyfinAPIKey, timeout, logger)
		logger.Info("Jellyfin enrichment and reconciliation enabled")
	}
	logger.Info("Services initialized")

	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}

func (a *app) eventController() *controllers.EventController {
	var identity controllers.IdentitySource
	var library controllers.LibraryChecker
	if a.jellyfin != nil {
		identity = a.jellyfin
		library = a.jellyfin
	}

	protected, err := utils.LoadProtectedTitles(a.cfg.ProtectedFile)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to load protected titles, continuing without them")
		protected = utils.NewProtectedTitles(nil)
	} else if protected.Len() > 0 {
		a.logger.WithField("count", protected.Len()).Info("Protected titles loaded")
	}

	if a.cfg.NameFallbackEnabled {
		a.logger.Warn("Name fallback enabled: items without a matching identifier are resolved by title")
	}

	resolver := controllers.NewResolver(a.cfg.NameFallbackEnabled, a.metrics, a.logger)
	tv := controllers.NewTVController(a.sonarr, resolver, a.metrics, a.logger)
	movies := controllers.NewMovieController(a.radarr, resolver, controllers.NewReconciler(library, a.metrics, a.logger), a.metrics, a.logger)

	return controllers.NewEventController(
		tv,
		movies,
		controllers.NewEnricher(identity, a.metrics, a.logger),
		protected,
		a.db,
		otel.Tracer(metrics.TracerName),
		a.metrics,
		a.logger,
	)
}

func (a *app) searchController() *controllers.SearchController {
	cleanup := controllers.NewCleanupController(a.cfg.StalledDownloadAfter, a.metrics, a.logger)
	targets := []controllers.SearchTargetConfig{
		{Target: a.sonarr, RootPath: a.cfg.SonarrRootPath},
		{Target: a.radarr, RootPath: a.cfg.RadarrRootPath},
	}
	return controllers.NewSearchController(targets, cleanup, a.db, a.cfg.MinFreeSpaceGB, a.cfg.SearchDelay, a.metrics, a.logger)
}

// checks returns the connection tests of every configured service
func (a *app) checks() map[string]handlers.Checker {
	checks := map[string]handlers.Checker{
		a.sonarr.Name(): a.sonarr.TestConnection,
		a.radarr.Name(): a.radarr.TestConnection,
	}
	if a.jellyfin != nil {
		checks["jellyfin"] = a.jellyfin.TestConnection
	}
	return checks
}

// ready reports whether both catalogs answer
func (a *app) ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return a.sonarr.TestConnection(ctx) && a.radarr.TestConnection(ctx)
}
