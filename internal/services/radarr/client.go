package radarr

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

// Movie is the subset of a Radarr movie resource read by this service
type Movie struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TmdbID    int64  `json:"tmdbId"`
	ImdbID    string `json:"imdbId"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"hasFile"`
	Status    string `json:"status"`
}

func (m Movie) providerValue(provider models.Provider) string {
	switch provider {
	case models.ProviderTMDB:
		if m.TmdbID > 0 {
			return strconv.FormatInt(m.TmdbID, 10)
		}
	case models.ProviderIMDB:
		return m.ImdbID
	}
	return ""
}

// movieEditorRequest is the body of PUT /movie/editor
type movieEditorRequest struct {
	MovieIDs  []int64 `json:"movieIds"`
	Monitored bool    `json:"monitored"`
}

// Client implements catalog.Catalog against the Radarr v3 API
type Client struct {
	*arr.Client
	logger *logrus.Logger
}

// NewClient creates a new Radarr client
func NewClient(baseURL, apiKey string, logger *logrus.Logger, opts ...arr.Option) *Client {
	return &Client{
		Client: arr.NewClient("radarr", baseURL, apiKey, logger, opts...),
		logger: logger,
	}
}

var _ catalog.Catalog = (*Client)(nil)

// LookupByExternalID looks a movie up through Radarr's metadata search.
// Radarr does not index tvdb, so those lookups report not found without a request.
func (c *Client) LookupByExternalID(ctx context.Context, kind catalog.EntityKind, provider models.Provider, id string) (*catalog.Candidate, error) {
	if kind != catalog.EntityMovie {
		return nil, fmt.Errorf("radarr: lookup of %q is not supported", kind)
	}
	if provider != models.ProviderTMDB && provider != models.ProviderIMDB {
		return nil, catalog.ErrNotFound
	}

	query := url.Values{}
	query.Set("term", string(provider)+":"+id)

	var results []Movie
	if err := c.Do(ctx, http.MethodGet, "movie/lookup", query, nil, &results); err != nil {
		return nil, fmt.Errorf("failed to lookup movie %s:%s: %w", provider, id, err)
	}

	for _, m := range results {
		if v := m.providerValue(provider); v == "" || !strings.EqualFold(v, id) {
			continue
		}
		return &catalog.Candidate{ID: m.ID, Title: m.Title, Year: m.Year}, nil
	}

	return nil, catalog.ErrNotFound
}

// GetEntity fetches a movie
func (c *Client) GetEntity(ctx context.Context, kind catalog.EntityKind, id int64) (*catalog.Record, error) {
	if kind != catalog.EntityMovie {
		return nil, fmt.Errorf("radarr: get of %q is not supported", kind)
	}

	var movie Movie
	if err := c.Do(ctx, http.MethodGet, "movie/"+strconv.FormatInt(id, 10), nil, nil, &movie); err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", id, err)
	}
	record := movieRecord(movie)
	return &record, nil
}

// UpdateMonitoring sets the monitored flag of a movie
func (c *Client) UpdateMonitoring(ctx context.Context, kind catalog.EntityKind, id int64, monitored bool) error {
	if kind != catalog.EntityMovie {
		return fmt.Errorf("radarr: monitoring of %q is not supported", kind)
	}

	body := movieEditorRequest{MovieIDs: []int64{id}, Monitored: monitored}
	if err := c.Do(ctx, http.MethodPut, "movie/editor", nil, body, nil); err != nil {
		return fmt.Errorf("failed to set movie %d monitored=%t: %w", id, monitored, err)
	}
	return nil
}

// DeleteEntity deletes a movie
func (c *Client) DeleteEntity(ctx context.Context, kind catalog.EntityKind, id int64, opts catalog.DeleteOptions) error {
	if kind != catalog.EntityMovie {
		return fmt.Errorf("radarr: delete of %q is not supported", kind)
	}

	query := url.Values{}
	query.Set("deleteFiles", strconv.FormatBool(opts.DeleteFiles))
	query.Set("addImportExclusion", strconv.FormatBool(!opts.AllowReimport))
	if err := c.Do(ctx, http.MethodDelete, "movie/"+strconv.FormatInt(id, 10), query, nil, nil); err != nil {
		return fmt.Errorf("failed to delete movie %d: %w", id, err)
	}
	return nil
}

// ListChildren is not meaningful for movies
func (c *Client) ListChildren(ctx context.Context, kind catalog.EntityKind, parentID int64) ([]catalog.Record, error) {
	return nil, fmt.Errorf("radarr: %q has no children", kind)
}

// ListAll returns every movie in the library
func (c *Client) ListAll(ctx context.Context, kind catalog.EntityKind) ([]catalog.Record, error) {
	if kind != catalog.EntityMovie {
		return nil, fmt.Errorf("radarr: listing %q is not supported", kind)
	}

	movies, err := c.getMovies(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(movies))
	for _, m := range movies {
		records = append(records, movieRecord(m))
	}
	return records, nil
}

func (c *Client) getMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := c.Do(ctx, http.MethodGet, "movie", nil, nil, &movies); err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, nil
}

func movieRecord(m Movie) catalog.Record {
	return catalog.Record{
		ID:        m.ID,
		Kind:      catalog.EntityMovie,
		Title:     m.Title,
		Monitored: m.Monitored,
		Status:    m.Status,
		HasFile:   m.HasFile,
	}
}
