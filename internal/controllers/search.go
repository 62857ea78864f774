package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrSearchInProgress is returned when a run is requested while another is active
var ErrSearchInProgress = errors.New("search already in progress")

// SearchTargetConfig binds a search target to the root folder whose disk gates it
type SearchTargetConfig struct {
	Target   SearchTarget
	RootPath string
}

// SearchController searches for missing items across the catalogs
type SearchController struct {
	targets   []SearchTargetConfig
	cleanup   *CleanupController
	db        *models.Database
	minFreeGB float64
	delay     time.Duration
	metrics   *metrics.Metrics
	logger    *logrus.Logger

	mu      sync.Mutex
	running bool
}

// NewSearchController creates a new search controller. db may be nil to skip persisting reports.
func NewSearchController(
	targets []SearchTargetConfig,
	cleanup *CleanupController,
	db *models.Database,
	minFreeGB float64,
	delay time.Duration,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *SearchController {
	return &SearchController{
		targets:   targets,
		cleanup:   cleanup,
		db:        db,
		minFreeGB: minFreeGB,
		delay:     delay,
		metrics:   m,
		logger:    logger,
	}
}

// Running reports whether a run is active
func (c *SearchController) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// RunAll runs the search against every target in order.
// Only one run may be active at a time.
func (c *SearchController) RunAll(ctx context.Context) ([]*models.SearchReport, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrSearchInProgress
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logger.WithField("targets", len(c.targets)).Info("Starting missing item search")

	var reports []*models.SearchReport
	var errs []error
	for _, target := range c.targets {
		if ctx.Err() != nil {
			break
		}
		report, err := c.Run(ctx, target)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}

	c.logger.Info("Missing item search completed")
	return reports, errors.Join(errs...)
}

// Run performs stalled cleanup, the disk check and the searches for one target
func (c *SearchController) Run(ctx context.Context, cfg SearchTargetConfig) (*models.SearchReport, error) {
	target := cfg.Target
	report := &models.SearchReport{
		Catalog:   target.Name(),
		StartedAt: time.Now(),
	}
	logger := c.logger.WithField("catalog", target.Name())

	err := c.run(ctx, cfg, report, logger)

	report.FinishedAt = time.Now()
	result := "completed"
	switch {
	case err != nil:
		result = "failed"
	case report.Cancelled:
		result = "cancelled"
	case report.Skipped:
		result = "skipped"
	}
	c.metrics.SearchRuns.WithLabelValues(target.Name(), result).Inc()

	if c.db != nil {
		if dbErr := c.db.CreateSearchReport(report); dbErr != nil {
			logger.WithError(dbErr).Warn("Failed to save search report")
		}
	}

	logger.WithFields(logrus.Fields{
		"result":      result,
		"missing":     report.Missing,
		"searched":    report.Searched,
		"failed":      report.Failed,
		"blocklisted": report.Blocklisted,
	}).Info("Search run finished")
	return report, err
}

func (c *SearchController) run(ctx context.Context, cfg SearchTargetConfig, report *models.SearchReport, logger *logrus.Entry) error {
	target := cfg.Target

	stalled, blocklisted, err := c.cleanup.CleanupStalled(ctx, target)
	if err != nil {
		logger.WithError(err).Warn("Stalled download cleanup failed, continuing")
	}
	report.Stalled = stalled
	report.Blocklisted = blocklisted

	freeGB, ok, err := c.freeSpace(ctx, cfg)
	if err != nil {
		return err
	}
	report.FreeSpaceGB = freeGB
	if !ok {
		report.Skipped = true
		report.SkipReason = fmt.Sprintf("disk path %s not found", cfg.RootPath)
		logger.WithField("path", cfg.RootPath).Warn("Root folder not reported by catalog, skipping search")
		return nil
	}
	if freeGB < c.minFreeGB {
		report.Skipped = true
		report.SkipReason = fmt.Sprintf("low disk space: %.1f GB free, %.1f GB required", freeGB, c.minFreeGB)
		logger.WithFields(logrus.Fields{
			"free_gb":     freeGB,
			"required_gb": c.minFreeGB,
		}).Warn("Not enough free space, skipping search")
		return nil
	}

	missing, err := target.ListMissing(ctx)
	if err != nil {
		return fmt.Errorf("failed to list missing items in %s: %w", target.Name(), err)
	}
	report.Missing = len(missing)
	logger.WithField("count", len(missing)).Info("Found missing items")

	for i, item := range missing {
		if i > 0 && !c.wait(ctx) {
			report.Cancelled = true
			logger.Info("Search cancelled")
			return nil
		}
		if ctx.Err() != nil {
			report.Cancelled = true
			return nil
		}

		if err := target.SearchItems(ctx, []int64{item.ID}); err != nil {
			report.Failed++
			c.metrics.SearchItems.WithLabelValues(target.Name(), "failed").Inc()
			logger.WithError(err).WithField("title", item.Title).Warn("Search command failed")
			continue
		}
		report.Searched++
		c.metrics.SearchItems.WithLabelValues(target.Name(), "searched").Inc()
		logger.WithFields(logrus.Fields{
			"item_id": item.ID,
			"title":   item.Title,
		}).Info("Triggered search")
	}
	return nil
}

// freeSpace returns the free space of the disk mounted exactly at the root path
func (c *SearchController) freeSpace(ctx context.Context, cfg SearchTargetConfig) (float64, bool, error) {
	disks, err := cfg.Target.GetDiskSpace(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get %s disk space: %w", cfg.Target.Name(), err)
	}
	for _, disk := range disks {
		if disk.Path == cfg.RootPath {
			return disk.FreeSpaceGB(), true, nil
		}
	}
	return 0, false, nil
}

// wait sleeps for the configured delay. It returns false when ctx is cancelled first.
func (c *SearchController) wait(ctx context.Context) bool {
	if c.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
