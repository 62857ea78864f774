package radarr

import (
	"context"
	"fmt"

	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/sirupsen/logrus"
)

// ListMissing returns monitored movies that have no file
func (c *Client) ListMissing(ctx context.Context) ([]arr.MissingItem, error) {
	movies, err := c.getMovies(ctx)
	if err != nil {
		return nil, err
	}

	var missing []arr.MissingItem
	for _, m := range movies {
		if !m.Monitored || m.HasFile {
			continue
		}
		title := m.Title
		if m.Year > 0 {
			title = fmt.Sprintf("%s (%d)", m.Title, m.Year)
		}
		missing = append(missing, arr.MissingItem{ID: m.ID, Title: title})
	}

	c.logger.WithField("count", len(missing)).Debug("Found missing movies")
	return missing, nil
}

// SearchItems triggers a MoviesSearch for the given movies
func (c *Client) SearchItems(ctx context.Context, movieIDs []int64) error {
	cmd, err := c.SendCommand(ctx, arr.Command{Name: "MoviesSearch", MovieIDs: movieIDs})
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"command_id": cmd.ID,
		"movie_ids":  movieIDs,
	}).Debug("Movie search queued")
	return nil
}

// QueueItemTarget returns the movie a queue item downloads
func (c *Client) QueueItemTarget(item arr.QueueItem) int64 {
	return item.MovieID
}
