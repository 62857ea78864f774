package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

const seriesStatusEnded = "ended"

// TVController applies episode, season and series deletions to the series catalog.
// State is re-read from the catalog before every decision.
type TVController struct {
	sonarr   catalog.SeriesCatalog
	resolver *Resolver
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// NewTVController creates a new TV controller
func NewTVController(sonarr catalog.SeriesCatalog, resolver *Resolver, m *metrics.Metrics, logger *logrus.Logger) *TVController {
	return &TVController{
		sonarr:   sonarr,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// HandleEpisode deletes the episode file, unmonitors the episode and cascades upward
func (c *TVController) HandleEpisode(ctx context.Context, item *models.MediaItem, res *Result) error {
	season, _ := item.Season()
	number, _ := item.Episode()

	seriesID, err := c.resolveSeries(ctx, item, res)
	if errors.Is(err, ErrNotInLibrary) {
		c.alreadyGone(item, res)
		return nil
	}
	if err != nil {
		return err
	}

	episodes, err := c.sonarr.ListChildren(ctx, catalog.EntitySeries, seriesID)
	if err != nil {
		return fmt.Errorf("failed to list episodes of series %d: %w", seriesID, err)
	}

	var episode *catalog.Record
	for i := range episodes {
		if episodes[i].SeasonNumber == season && episodes[i].EpisodeNumber == number {
			episode = &episodes[i]
			break
		}
	}
	if episode == nil {
		return fmt.Errorf("%w: S%02dE%02d not found in series %d", ErrNotResolved, season, number, seriesID)
	}

	if err := c.clearEpisode(ctx, *episode, res); err != nil {
		return err
	}

	return c.cascadeSeason(ctx, seriesID, season, res)
}

// HandleSeason clears every episode of the season then cascades upward
func (c *TVController) HandleSeason(ctx context.Context, item *models.MediaItem, res *Result) error {
	season, _ := item.Season()

	seriesID, err := c.resolveSeries(ctx, item, res)
	if errors.Is(err, ErrNotInLibrary) {
		c.alreadyGone(item, res)
		return nil
	}
	if err != nil {
		return err
	}

	episodes, err := c.sonarr.ListChildren(ctx, catalog.EntitySeries, seriesID)
	if err != nil {
		return fmt.Errorf("failed to list episodes of series %d: %w", seriesID, err)
	}

	for _, episode := range episodes {
		if episode.SeasonNumber != season {
			continue
		}
		if err := c.clearEpisode(ctx, episode, res); err != nil {
			return err
		}
	}

	return c.cascadeSeason(ctx, seriesID, season, res)
}

// HandleShow deletes the whole series. A series unknown to the catalog is already gone.
func (c *TVController) HandleShow(ctx context.Context, item *models.MediaItem, res *Result) error {
	resolution, err := c.resolver.Resolve(ctx, c.sonarr, catalog.EntitySeries, item)
	if errors.Is(err, ErrNotResolved) {
		res.Method = models.MatchNone
		res.Reason = fmt.Sprintf("series not found in %s, nothing to delete", c.sonarr.Name())
		c.logger.WithField("title", item.Title()).Info("Series not in catalog, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}
	res.Method = resolution.Method

	return c.deleteSeries(ctx, resolution.ID, res)
}

// alreadyGone reports a child event whose series the catalog no longer holds,
// as after a cascade deleted it.
func (c *TVController) alreadyGone(item *models.MediaItem, res *Result) {
	res.Method = models.MatchNone
	res.Reason = fmt.Sprintf("series no longer in %s, nothing to delete", c.sonarr.Name())
	c.logger.WithField("title", item.Title()).Info("Series no longer in catalog, nothing to do")
}

func (c *TVController) resolveSeries(ctx context.Context, item *models.MediaItem, res *Result) (int64, error) {
	resolution, err := c.resolver.Resolve(ctx, c.sonarr, catalog.EntitySeries, item)
	if err != nil {
		return 0, err
	}
	res.Method = resolution.Method
	return resolution.ID, nil
}

// clearEpisode deletes the episode file if any and unmonitors the episode.
// Both steps are no-ops when already done.
func (c *TVController) clearEpisode(ctx context.Context, episode catalog.Record, res *Result) error {
	fields := logrus.Fields{
		"episode_id": episode.ID,
		"season":     episode.SeasonNumber,
		"episode":    episode.EpisodeNumber,
	}

	if episode.HasFile && episode.FileID > 0 {
		err := c.sonarr.DeleteEntity(ctx, catalog.EntityEpisodeFile, episode.FileID, catalog.DeleteOptions{DeleteFiles: true})
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			c.logger.WithFields(fields).Debug("Episode file already deleted")
		case err != nil:
			return fmt.Errorf("failed to delete episode file %d: %w", episode.FileID, err)
		default:
			c.logger.WithFields(fields).Info("Deleted episode file")
			c.action(res, "delete_episode_file", "deleted episode file S%02dE%02d", episode.SeasonNumber, episode.EpisodeNumber)
		}
	}

	if !episode.Monitored {
		return nil
	}
	if err := c.sonarr.UpdateMonitoring(ctx, catalog.EntityEpisode, episode.ID, false); err != nil {
		return fmt.Errorf("failed to unmonitor episode %d: %w", episode.ID, err)
	}
	c.logger.WithFields(fields).Info("Unmonitored episode")
	c.action(res, "unmonitor_episode", "unmonitored episode S%02dE%02d", episode.SeasonNumber, episode.EpisodeNumber)
	return nil
}

// cascadeSeason unmonitors the season once none of its episodes is monitored
func (c *TVController) cascadeSeason(ctx context.Context, seriesID int64, season int, res *Result) error {
	episodes, err := c.sonarr.ListChildren(ctx, catalog.EntitySeries, seriesID)
	if err != nil {
		return fmt.Errorf("failed to list episodes of series %d: %w", seriesID, err)
	}

	count := 0
	for _, episode := range episodes {
		if episode.SeasonNumber != season {
			continue
		}
		count++
		if episode.Monitored {
			c.logger.WithFields(logrus.Fields{
				"series_id": seriesID,
				"season":    season,
			}).Debug("Season still has monitored episodes")
			return nil
		}
	}
	if count == 0 {
		c.logger.WithFields(logrus.Fields{
			"series_id": seriesID,
			"season":    season,
		}).Debug("Season has no episodes, skipping cascade")
		return nil
	}

	changed, err := c.sonarr.SetSeasonMonitoring(ctx, seriesID, season, false)
	if err != nil {
		return fmt.Errorf("failed to unmonitor season %d of series %d: %w", season, seriesID, err)
	}
	if changed {
		c.logger.WithFields(logrus.Fields{
			"series_id": seriesID,
			"season":    season,
		}).Info("Unmonitored season")
		c.action(res, "unmonitor_season", "unmonitored season %d", season)
	}

	return c.cascadeSeries(ctx, seriesID, res)
}

// cascadeSeries deletes an ended series once every regular season is unmonitored.
// Season 0 (specials) is ignored.
func (c *TVController) cascadeSeries(ctx context.Context, seriesID int64, res *Result) error {
	series, err := c.sonarr.GetEntity(ctx, catalog.EntitySeries, seriesID)
	if err != nil {
		return fmt.Errorf("failed to get series %d: %w", seriesID, err)
	}

	if !strings.EqualFold(series.Status, seriesStatusEnded) {
		c.logger.WithFields(logrus.Fields{
			"series_id": seriesID,
			"status":    series.Status,
		}).Debug("Series not ended, keeping it")
		return nil
	}

	for _, season := range series.Seasons {
		if season.Number > 0 && season.Monitored {
			c.logger.WithFields(logrus.Fields{
				"series_id": seriesID,
				"season":    season.Number,
			}).Debug("Series still has monitored seasons")
			return nil
		}
	}

	return c.deleteSeries(ctx, seriesID, res)
}

func (c *TVController) deleteSeries(ctx context.Context, seriesID int64, res *Result) error {
	err := c.sonarr.DeleteEntity(ctx, catalog.EntitySeries, seriesID, catalog.DeleteOptions{
		DeleteFiles:   true,
		AllowReimport: true,
	})
	if errors.Is(err, catalog.ErrNotFound) {
		c.logger.WithField("series_id", seriesID).Debug("Series already deleted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete series %d: %w", seriesID, err)
	}

	c.logger.WithField("series_id", seriesID).Info("Deleted series")
	c.action(res, "delete_series", "deleted series %d", seriesID)
	return nil
}

func (c *TVController) action(res *Result, label, format string, args ...interface{}) {
	res.addAction(fmt.Sprintf(format, args...))
	c.metrics.CascadeActions.WithLabelValues(c.sonarr.Name(), label).Inc()
}
