package sonarr

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/sirupsen/logrus"
)

// ListMissing returns monitored, aired episodes of monitored series that have no file
func (c *Client) ListMissing(ctx context.Context) ([]arr.MissingItem, error) {
	series, err := c.getAllSeries(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var missing []arr.MissingItem
	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.Monitored {
			continue
		}

		episodes, err := c.getEpisodes(ctx, s.ID)
		if err != nil {
			c.logger.WithError(err).WithField("series", s.Title).Warn("Failed to get episodes, skipping series")
			continue
		}

		for _, e := range episodes {
			if !isMissing(e, now) {
				continue
			}
			missing = append(missing, arr.MissingItem{
				ID:    e.ID,
				Title: fmt.Sprintf("%s S%02dE%02d", s.Title, e.SeasonNumber, e.EpisodeNumber),
			})
		}
	}

	c.logger.WithField("count", len(missing)).Debug("Found missing episodes")
	return missing, nil
}

// isMissing reports whether an episode should be searched for
func isMissing(e Episode, now time.Time) bool {
	if e.HasFile || !e.Monitored || e.UnverifiedSceneNumbering {
		return false
	}
	// Unaired episodes cannot be found yet
	return !e.AirDateUTC.IsZero() && e.AirDateUTC.Before(now)
}

// SearchItems triggers an EpisodeSearch for the given episodes
func (c *Client) SearchItems(ctx context.Context, episodeIDs []int64) error {
	cmd, err := c.SendCommand(ctx, arr.Command{Name: "EpisodeSearch", EpisodeIDs: episodeIDs})
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"command_id":  cmd.ID,
		"episode_ids": episodeIDs,
	}).Debug("Episode search queued")
	return nil
}

// QueueItemTarget returns the episode a queue item downloads
func (c *Client) QueueItemTarget(item arr.QueueItem) int64 {
	return item.EpisodeID
}
