package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/deleterr/internal/controllers"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	pruneSchedule    = "0 4 * * *"
	probeMaxAttempts = 5
)

// Searcher runs one missing item search across all catalogs
type Searcher interface {
	RunAll(ctx context.Context) ([]*models.SearchReport, error)
}

// ReadinessProbe reports whether the catalogs can be reached
type ReadinessProbe func(ctx context.Context) bool

// Options configures the scheduler
type Options struct {
	Interval     time.Duration
	RunOnStartup bool
	Retention    time.Duration // history older than this is pruned daily; zero disables pruning
	ProbeBackoff backoff.BackOff
}

// Scheduler manages scheduled tasks. It can be started again after Stop.
type Scheduler struct {
	cron     *cron.Cron
	searcher Searcher
	probe    ReadinessProbe
	db       *models.Database
	opts     Options
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler. db may be nil to disable pruning.
func NewScheduler(searcher Searcher, probe ReadinessProbe, db *models.Database, opts Options, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		searcher: searcher,
		probe:    probe,
		db:       db,
		opts:     opts,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	if s.opts.Interval <= 0 {
		return fmt.Errorf("invalid search interval %s", s.opts.Interval)
	}

	// Each start gets a fresh cron and a fresh run context; Stop cancels both
	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	// Every interval: search for missing items
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.opts.Interval), func() {
		s.runSearch()
	})
	if err != nil {
		return fmt.Errorf("failed to add search job: %w", err)
	}

	// Daily: prune old history
	if s.db != nil && s.opts.Retention > 0 {
		_, err = c.AddFunc(pruneSchedule, func() {
			s.runPrune()
		})
		if err != nil {
			return fmt.Errorf("failed to add prune job: %w", err)
		}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.cron.Start()
	s.logger.WithField("interval", s.opts.Interval.String()).Info("Scheduler started")

	if s.opts.RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runInitialSearch()
		}()
	}

	return nil
}

// Stop cancels any running job and waits for it to return
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.cron = nil
	s.logger.Info("Scheduler stopped")
}

// runInitialSearch waits for the catalogs to answer, then runs a search
func (s *Scheduler) runInitialSearch() {
	b := s.opts.ProbeBackoff
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, probeMaxAttempts-1), s.ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if s.probe(s.ctx) {
			return nil
		}
		s.logger.WithField("attempt", attempt).Warn("Catalogs not ready yet")
		return errors.New("catalogs not ready")
	}, b)
	if err != nil {
		s.logger.WithError(err).Error("Catalogs not ready, skipping startup search")
		return
	}

	s.logger.Info("Running initial search")
	s.runSearch()
}

// runSearch executes the missing item search job
func (s *Scheduler) runSearch() {
	s.logger.Info("Running scheduled search")

	reports, err := s.searcher.RunAll(s.ctx)
	switch {
	case errors.Is(err, controllers.ErrSearchInProgress):
		s.logger.Info("Previous search still running, skipping")
	case err != nil:
		s.logger.WithError(err).Error("Search job failed")
	default:
		s.logger.WithField("catalogs", len(reports)).Info("Search job completed successfully")
	}
}

// runPrune removes history older than the retention window
func (s *Scheduler) runPrune() {
	cutoff := time.Now().Add(-s.opts.Retention)

	removed, err := s.db.PruneDeletionRecords(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to prune deletion history")
		return
	}
	if err := s.db.PruneSearchReports(cutoff); err != nil {
		s.logger.WithError(err).Error("Failed to prune search reports")
		return
	}
	s.logger.WithField("removed", removed).Info("Pruned history")
}
