package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/sirupsen/logrus"
)

// SearchTarget is a catalog that can report its queue, disk and missing items and trigger searches
type SearchTarget interface {
	Name() string
	GetQueue(ctx context.Context) ([]arr.QueueItem, error)
	RemoveFromQueue(ctx context.Context, queueID int64) error
	GetDiskSpace(ctx context.Context) ([]arr.DiskSpace, error)
	ListMissing(ctx context.Context) ([]arr.MissingItem, error)
	SearchItems(ctx context.Context, ids []int64) error
	QueueItemTarget(item arr.QueueItem) int64
}

// CleanupController removes downloads that have been queued for too long
type CleanupController struct {
	stalledAfter time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *logrus.Logger
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(stalledAfter time.Duration, m *metrics.Metrics, logger *logrus.Logger) *CleanupController {
	return &CleanupController{
		stalledAfter: stalledAfter,
		now:          time.Now,
		metrics:      m,
		logger:       logger,
	}
}

// CleanupStalled blocklists every stalled queue item and searches its target again.
// It returns the number of stalled items found and the number successfully blocklisted.
func (c *CleanupController) CleanupStalled(ctx context.Context, target SearchTarget) (int, int, error) {
	c.logger.WithField("catalog", target.Name()).Info("Starting cleanup of stalled downloads")

	items, err := target.GetQueue(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get %s queue: %w", target.Name(), err)
	}

	now := c.now()
	stalled, blocklisted := 0, 0
	for _, item := range items {
		if !c.isStalled(item, now) {
			continue
		}
		stalled++

		logger := c.logger.WithFields(logrus.Fields{
			"catalog":     target.Name(),
			"queue_id":    item.ID,
			"title":       item.Title,
			"download_id": item.DownloadID,
			"age":         now.Sub(item.Added).Round(time.Minute).String(),
		})

		if err := target.RemoveFromQueue(ctx, item.ID); err != nil {
			logger.WithError(err).Warn("Failed to blocklist stalled download")
			continue
		}
		blocklisted++
		c.metrics.Blocklisted.WithLabelValues(target.Name()).Inc()
		logger.Info("Blocklisted stalled download")

		if id := target.QueueItemTarget(item); id > 0 {
			if err := target.SearchItems(ctx, []int64{id}); err != nil {
				logger.WithError(err).Warn("Failed to search again after blocklisting")
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"catalog":     target.Name(),
		"stalled":     stalled,
		"blocklisted": blocklisted,
	}).Info("Cleanup of stalled downloads completed")
	return stalled, blocklisted, nil
}

func (c *CleanupController) isStalled(item arr.QueueItem, now time.Time) bool {
	if item.DownloadID == "" || item.Added.IsZero() {
		return false
	}
	return now.Sub(item.Added) > c.stalledAfter
}
