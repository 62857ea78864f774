// Package arr holds the v3 API transport and the endpoints Sonarr and Radarr share.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/sirupsen/logrus"
)

const (
	apiPrefix      = "/api/v3/"
	defaultTimeout = 15 * time.Second
	minTimeout     = 10 * time.Second
	maxTimeout     = 30 * time.Second
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client handles communication with a Sonarr or Radarr instance
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout, clamped to 10-30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = ClampTimeout(timeout)
	}
}

// ClampTimeout bounds a request timeout to the supported range
func ClampTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return defaultTimeout
	case timeout < minTimeout:
		return minTimeout
	case timeout > maxTimeout:
		return maxTimeout
	}
	return timeout
}

// NewClient creates a new API client. name is used in logs and errors.
func NewClient(name, baseURL, apiKey string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the instance name
func (c *Client) Name() string {
	return c.name
}

// Do performs an authenticated request against the v3 API.
// A 404 response is reported as catalog.ErrNotFound.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	fullURL := c.baseURL + apiPrefix + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	c.logger.WithFields(logrus.Fields{
		"service": c.name,
		"method":  method,
		"path":    path,
	}).Debug("Making API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s %s: %w", c.name, method, path, catalog.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s %s: %w", c.name, method, path, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		})
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode %s response: %w", c.name, err)
		}
	}

	return nil
}

// SystemStatus is the response of GET /system/status
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// GetSystemStatus returns the instance version information
func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.Do(ctx, http.MethodGet, "system/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TestConnection reports whether the instance answers with valid credentials
func (c *Client) TestConnection(ctx context.Context) bool {
	status, err := c.GetSystemStatus(ctx)
	if err != nil {
		c.logger.WithError(err).WithField("service", c.name).Warn("Connection test failed")
		return false
	}
	c.logger.WithFields(logrus.Fields{
		"service": c.name,
		"version": status.Version,
	}).Debug("Connection test succeeded")
	return true
}
