// Package jellyfin reads series identifiers and library membership from Jellyfin
// and parses the webhook plugin's payload.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

// HTTPDoer describes the HTTP client used by the Jellyfin client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client handles communication with the Jellyfin API
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
	logger  *logrus.Logger
}

// NewClient creates a new Jellyfin client. timeout bounds every request.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	return NewClientWithDoer(baseURL, apiKey, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithDoer creates a Jellyfin client on top of a custom HTTP client
func NewClientWithDoer(baseURL, apiKey string, doer HTTPDoer, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  doer,
		logger:  logger,
	}
}

// item is the subset of a Jellyfin BaseItemDto read by this service
type item struct {
	ID          string            `json:"Id"`
	Name        string            `json:"Name"`
	Type        string            `json:"Type"`
	ProviderIDs map[string]string `json:"ProviderIds"`
}

// providerID returns the identifier for a provider, matching keys case-insensitively
func (i item) providerID(provider models.Provider) string {
	for k, v := range i.ProviderIDs {
		if strings.EqualFold(k, string(provider)) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type itemsResponse struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("build jellyfin request: %w", err)
	}
	req.Header.Set("X-MediaBrowser-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jellyfin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("jellyfin %s: %w", path, catalog.ErrNotFound)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("jellyfin %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode jellyfin response: %w", err)
		}
	}
	return nil
}

// GetContainerExternalIDs returns the provider identifiers of a series container
func (c *Client) GetContainerExternalIDs(ctx context.Context, seriesID string) (models.ExternalIDs, error) {
	if seriesID == "" {
		return models.ExternalIDs{}, fmt.Errorf("jellyfin series id is empty: %w", catalog.ErrNotFound)
	}

	var series item
	if err := c.get(ctx, "/Items/"+url.PathEscape(seriesID), nil, &series); err != nil {
		return models.ExternalIDs{}, fmt.Errorf("failed to get series %s: %w", seriesID, err)
	}

	ids := models.ExternalIDs{
		TVDB: series.providerID(models.ProviderTVDB),
		IMDB: series.providerID(models.ProviderIMDB),
		TMDB: series.providerID(models.ProviderTMDB),
	}

	c.logger.WithFields(logrus.Fields{
		"series": series.Name,
		"tvdb":   ids.TVDB,
		"imdb":   ids.IMDB,
		"tmdb":   ids.TMDB,
	}).Debug("Retrieved series identifiers from Jellyfin")

	return ids, nil
}

// ExistsInLibrary reports whether Jellyfin still holds an item of the given kind
// carrying one of the identifiers. A result only counts when the returned item
// actually carries the searched identifier. Any error is reported as existing.
func (c *Client) ExistsInLibrary(ctx context.Context, ids models.ExternalIDs, kind models.MediaKind) bool {
	itemType := "Movie"
	if kind.IsTV() {
		itemType = "Series"
	}

	for _, provider := range models.TVProviderOrder {
		id := ids.Get(provider)
		if id == "" {
			continue
		}

		query := url.Values{}
		query.Set("Recursive", "true")
		query.Set("AnyProviderIdEquals", id)
		query.Set("IncludeItemTypes", itemType)
		query.Set("Limit", "1")
		query.Set("Fields", "ProviderIds")

		var resp itemsResponse
		if err := c.get(ctx, "/Items", query, &resp); err != nil {
			c.logger.WithError(err).WithField("provider", provider).Error("Failed to search Jellyfin library, assuming item exists")
			return true
		}

		for _, found := range resp.Items {
			if found.providerID(provider) == id {
				c.logger.WithFields(logrus.Fields{
					"name":     found.Name,
					"provider": provider,
					"id":       id,
				}).Info("Item still present in Jellyfin library")
				return true
			}
			c.logger.WithFields(logrus.Fields{
				"provider": provider,
				"expected": id,
				"got":      found.ProviderIDs,
			}).Debug("Jellyfin returned an item without the searched identifier")
		}
	}

	return false
}

// TestConnection reports whether Jellyfin answers with valid credentials
func (c *Client) TestConnection(ctx context.Context) bool {
	if err := c.get(ctx, "/System/Info", nil, nil); err != nil {
		c.logger.WithError(err).Warn("Jellyfin connection test failed")
		return false
	}
	return true
}
