package arr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const queuePageSize = 100

// QueueItem represents an item in the download queue
type QueueItem struct {
	ID                   int64     `json:"id"`
	DownloadID           string    `json:"downloadId"`
	Title                string    `json:"title"`
	Status               string    `json:"status"`
	TrackedDownloadState string    `json:"trackedDownloadState"`
	Added                time.Time `json:"added"`

	// Movie/Episode specific
	MovieID   int64 `json:"movieId,omitempty"`
	SeriesID  int64 `json:"seriesId,omitempty"`
	EpisodeID int64 `json:"episodeId,omitempty"`
}

// QueueResponse is the paginated response from /queue
type QueueResponse struct {
	Page         int         `json:"page"`
	PageSize     int         `json:"pageSize"`
	TotalRecords int         `json:"totalRecords"`
	Records      []QueueItem `json:"records"`
}

// GetQueue retrieves every item in the download queue
func (c *Client) GetQueue(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("pageSize", strconv.Itoa(queuePageSize))

		var resp QueueResponse
		if err := c.Do(ctx, http.MethodGet, "queue", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to get queue: %w", err)
		}
		items = append(items, resp.Records...)
		if len(resp.Records) == 0 || len(items) >= resp.TotalRecords {
			return items, nil
		}
	}
}

// RemoveFromQueue removes an item from the queue and the download client,
// adding its release to the blocklist so it is not grabbed again.
// The automatic re-search is skipped; callers trigger their own.
func (c *Client) RemoveFromQueue(ctx context.Context, queueID int64) error {
	query := url.Values{}
	query.Set("removeFromClient", "true")
	query.Set("blocklist", "true")
	query.Set("skipRedownload", "true")
	if err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("queue/%d", queueID), query, nil, nil); err != nil {
		return fmt.Errorf("failed to blocklist queue item %d: %w", queueID, err)
	}
	return nil
}

// DiskSpace is one entry of GET /diskspace
type DiskSpace struct {
	Path       string `json:"path"`
	Label      string `json:"label"`
	FreeSpace  int64  `json:"freeSpace"`
	TotalSpace int64  `json:"totalSpace"`
}

// FreeSpaceGB returns free space in GiB
func (d DiskSpace) FreeSpaceGB() float64 {
	return float64(d.FreeSpace) / (1024 * 1024 * 1024)
}

// GetDiskSpace returns the disk space of every path known to the instance
func (c *Client) GetDiskSpace(ctx context.Context) ([]DiskSpace, error) {
	var disks []DiskSpace
	if err := c.Do(ctx, http.MethodGet, "diskspace", nil, nil, &disks); err != nil {
		return nil, fmt.Errorf("failed to get disk space: %w", err)
	}
	return disks, nil
}

// Command is the body of POST /command
type Command struct {
	Name       string  `json:"name"`
	MovieIDs   []int64 `json:"movieIds,omitempty"`
	EpisodeIDs []int64 `json:"episodeIds,omitempty"`
	SeriesID   int64   `json:"seriesId,omitempty"`
}

// CommandResponse is the queued command returned by POST /command
type CommandResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SendCommand queues a command on the instance
func (c *Client) SendCommand(ctx context.Context, cmd Command) (*CommandResponse, error) {
	var resp CommandResponse
	if err := c.Do(ctx, http.MethodPost, "command", nil, cmd, &resp); err != nil {
		return nil, fmt.Errorf("failed to send %s command: %w", cmd.Name, err)
	}
	return &resp, nil
}

// MissingItem is a monitored item without a file, ready to be searched
type MissingItem struct {
	ID    int64
	Title string
}
