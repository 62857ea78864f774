package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

// MovieController applies movie deletions to the movie catalog
type MovieController struct {
	radarr     catalog.Catalog
	resolver   *Resolver
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewMovieController creates a new movie controller
func NewMovieController(radarr catalog.Catalog, resolver *Resolver, reconciler *Reconciler, m *metrics.Metrics, logger *logrus.Logger) *MovieController {
	return &MovieController{
		radarr:     radarr,
		resolver:   resolver,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
	}
}

// HandleMovie deletes the movie and its files unless the library still holds it
func (c *MovieController) HandleMovie(ctx context.Context, item *models.MediaItem, res *Result) error {
	if c.reconciler.StillExists(ctx, item) {
		res.Reason = "movie still present in library, likely an upgrade; nothing deleted"
		c.logger.WithField("title", item.Title()).Info("Movie still in library, skipping deletion")
		return nil
	}

	// Movies resolve by identifier only
	resolution, err := c.resolver.ResolveIdentifiers(ctx, c.radarr, catalog.EntityMovie, Candidates(item))
	if errors.Is(err, ErrNotInLibrary) {
		c.resolver.record(c.radarr, models.MatchNone, "")
		res.Method = models.MatchNone
		res.Reason = fmt.Sprintf("movie not in %s, nothing to delete", c.radarr.Name())
		c.logger.WithField("title", item.Title()).Info("Movie no longer in catalog, nothing to do")
		return nil
	}
	if errors.Is(err, ErrNotResolved) {
		c.resolver.record(c.radarr, models.MatchNone, "")
		return fmt.Errorf("%w: %s in %s", err, item, c.radarr.Name())
	}
	if err != nil {
		return err
	}
	res.Method = resolution.Method

	err = c.radarr.DeleteEntity(ctx, catalog.EntityMovie, resolution.ID, catalog.DeleteOptions{
		DeleteFiles:   true,
		AllowReimport: true,
	})
	if errors.Is(err, catalog.ErrNotFound) {
		c.logger.WithField("movie_id", resolution.ID).Debug("Movie already deleted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete movie %d: %w", resolution.ID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"movie_id": resolution.ID,
		"title":    resolution.Title,
	}).Info("Deleted movie")
	res.addAction(fmt.Sprintf("deleted movie %d", resolution.ID))
	c.metrics.CascadeActions.WithLabelValues(c.radarr.Name(), "delete_movie").Inc()
	return nil
}
