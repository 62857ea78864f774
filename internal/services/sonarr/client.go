package sonarr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/sirupsen/logrus"
)

// Client implements catalog.SeriesCatalog against the Sonarr v3 API
type Client struct {
	*arr.Client
	logger *logrus.Logger
}

// NewClient creates a new Sonarr client
func NewClient(baseURL, apiKey string, logger *logrus.Logger, opts ...arr.Option) *Client {
	return &Client{
		Client: arr.NewClient("sonarr", baseURL, apiKey, logger, opts...),
		logger: logger,
	}
}

var _ catalog.SeriesCatalog = (*Client)(nil)

// LookupByExternalID looks a series up through Sonarr's metadata search.
// The candidate has no ID when the series exists upstream but is not in the library.
func (c *Client) LookupByExternalID(ctx context.Context, kind catalog.EntityKind, provider models.Provider, id string) (*catalog.Candidate, error) {
	if kind != catalog.EntitySeries {
		return nil, fmt.Errorf("sonarr: lookup of %q is not supported", kind)
	}

	query := url.Values{}
	query.Set("term", string(provider)+":"+id)

	var results []Series
	if err := c.Do(ctx, http.MethodGet, "series/lookup", query, nil, &results); err != nil {
		return nil, fmt.Errorf("failed to lookup series %s:%s: %w", provider, id, err)
	}

	for _, s := range results {
		// Lookup is a search; a record without the searched identifier is a different series
		if v := s.providerValue(string(provider)); v == "" || !strings.EqualFold(v, id) {
			continue
		}
		return &catalog.Candidate{ID: s.ID, Title: s.Title, Year: s.Year}, nil
	}

	return nil, catalog.ErrNotFound
}

// GetEntity fetches a series or an episode
func (c *Client) GetEntity(ctx context.Context, kind catalog.EntityKind, id int64) (*catalog.Record, error) {
	switch kind {
	case catalog.EntitySeries:
		series, err := c.getSeries(ctx, id)
		if err != nil {
			return nil, err
		}
		record := seriesRecord(*series)
		return &record, nil
	case catalog.EntityEpisode:
		var episode Episode
		if err := c.Do(ctx, http.MethodGet, "episode/"+strconv.FormatInt(id, 10), nil, nil, &episode); err != nil {
			return nil, fmt.Errorf("failed to get episode %d: %w", id, err)
		}
		record := episodeRecord(episode)
		return &record, nil
	}
	return nil, fmt.Errorf("sonarr: get of %q is not supported", kind)
}

// UpdateMonitoring sets the monitored flag of an episode or a series
func (c *Client) UpdateMonitoring(ctx context.Context, kind catalog.EntityKind, id int64, monitored bool) error {
	switch kind {
	case catalog.EntityEpisode:
		body := episodeMonitorRequest{EpisodeIDs: []int64{id}, Monitored: monitored}
		if err := c.Do(ctx, http.MethodPut, "episode/monitor", nil, body, nil); err != nil {
			return fmt.Errorf("failed to set episode %d monitored=%t: %w", id, monitored, err)
		}
		return nil
	case catalog.EntitySeries:
		resource, err := c.getSeriesResource(ctx, id)
		if err != nil {
			return err
		}
		return c.putSeriesResource(ctx, id, resource.withMonitored(monitored))
	}
	return fmt.Errorf("sonarr: monitoring of %q is not supported", kind)
}

// DeleteEntity deletes an episode file or a whole series
func (c *Client) DeleteEntity(ctx context.Context, kind catalog.EntityKind, id int64, opts catalog.DeleteOptions) error {
	switch kind {
	case catalog.EntityEpisodeFile:
		if err := c.Do(ctx, http.MethodDelete, "episodefile/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
			return fmt.Errorf("failed to delete episode file %d: %w", id, err)
		}
		return nil
	case catalog.EntitySeries:
		query := url.Values{}
		query.Set("deleteFiles", strconv.FormatBool(opts.DeleteFiles))
		query.Set("addImportListExclusion", strconv.FormatBool(!opts.AllowReimport))
		if err := c.Do(ctx, http.MethodDelete, "series/"+strconv.FormatInt(id, 10), query, nil, nil); err != nil {
			return fmt.Errorf("failed to delete series %d: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("sonarr: delete of %q is not supported", kind)
}

// ListChildren returns every episode of a series
func (c *Client) ListChildren(ctx context.Context, kind catalog.EntityKind, parentID int64) ([]catalog.Record, error) {
	if kind != catalog.EntitySeries {
		return nil, fmt.Errorf("sonarr: children of %q are not supported", kind)
	}

	episodes, err := c.getEpisodes(ctx, parentID)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(episodes))
	for _, e := range episodes {
		records = append(records, episodeRecord(e))
	}
	return records, nil
}

// ListAll returns every series in the library
func (c *Client) ListAll(ctx context.Context, kind catalog.EntityKind) ([]catalog.Record, error) {
	if kind != catalog.EntitySeries {
		return nil, fmt.Errorf("sonarr: listing %q is not supported", kind)
	}

	series, err := c.getAllSeries(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(series))
	for _, s := range series {
		records = append(records, seriesRecord(s))
	}
	return records, nil
}

// SetSeasonMonitoring updates one season's monitored flag by re-submitting the whole series.
// Returns false without writing when the season already has the requested value.
func (c *Client) SetSeasonMonitoring(ctx context.Context, seriesID int64, season int, monitored bool) (bool, error) {
	resource, err := c.getSeriesResource(ctx, seriesID)
	if err != nil {
		return false, err
	}

	updated, changed, err := resource.withSeasonMonitored(season, monitored)
	if err != nil {
		return false, fmt.Errorf("series %d: %w", seriesID, err)
	}
	if !changed {
		return false, nil
	}

	if err := c.putSeriesResource(ctx, seriesID, updated); err != nil {
		return false, err
	}

	c.logger.WithFields(logrus.Fields{
		"series_id": seriesID,
		"season":    season,
		"monitored": monitored,
	}).Debug("Updated season monitoring")
	return true, nil
}

func (c *Client) getSeries(ctx context.Context, id int64) (*Series, error) {
	var series Series
	if err := c.Do(ctx, http.MethodGet, "series/"+strconv.FormatInt(id, 10), nil, nil, &series); err != nil {
		return nil, fmt.Errorf("failed to get series %d: %w", id, err)
	}
	return &series, nil
}

func (c *Client) getAllSeries(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.Do(ctx, http.MethodGet, "series", nil, nil, &series); err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	return series, nil
}

func (c *Client) getEpisodes(ctx context.Context, seriesID int64) ([]Episode, error) {
	query := url.Values{}
	query.Set("seriesId", strconv.FormatInt(seriesID, 10))

	var episodes []Episode
	if err := c.Do(ctx, http.MethodGet, "episode", query, nil, &episodes); err != nil {
		return nil, fmt.Errorf("failed to get episodes for series %d: %w", seriesID, err)
	}
	return episodes, nil
}

func (c *Client) getSeriesResource(ctx context.Context, id int64) (seriesResource, error) {
	var resource seriesResource
	if err := c.Do(ctx, http.MethodGet, "series/"+strconv.FormatInt(id, 10), nil, nil, &resource); err != nil {
		return nil, fmt.Errorf("failed to get series %d: %w", id, err)
	}
	return resource, nil
}

func (c *Client) putSeriesResource(ctx context.Context, id int64, resource seriesResource) error {
	if err := c.Do(ctx, http.MethodPut, "series/"+strconv.FormatInt(id, 10), nil, resource, nil); err != nil {
		return fmt.Errorf("failed to update series %d: %w", id, err)
	}
	return nil
}

func seriesRecord(s Series) catalog.Record {
	seasons := make([]catalog.SeasonState, 0, len(s.Seasons))
	for _, season := range s.Seasons {
		seasons = append(seasons, catalog.SeasonState{Number: season.SeasonNumber, Monitored: season.Monitored})
	}
	return catalog.Record{
		ID:        s.ID,
		Kind:      catalog.EntitySeries,
		Title:     s.Title,
		Monitored: s.Monitored,
		Status:    s.Status,
		Seasons:   seasons,
	}
}

func episodeRecord(e Episode) catalog.Record {
	return catalog.Record{
		ID:            e.ID,
		Kind:          catalog.EntityEpisode,
		Title:         e.Title,
		Monitored:     e.Monitored,
		SeriesID:      e.SeriesID,
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		FileID:        e.EpisodeFileID,
		HasFile:       e.HasFile,
	}
}
