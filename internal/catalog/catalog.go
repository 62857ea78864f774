// Package catalog defines the capability set shared by the downstream library managers.
// Cascade policy lives in the controllers; implementations only translate calls to their API.
package catalog

import (
	"context"
	"errors"

	"github.com/amaumene/deleterr/internal/models"
)

// ErrNotFound is returned when an entity does not exist downstream
var ErrNotFound = errors.New("entity not found")

// EntityKind names a downstream resource
type EntityKind string

const (
	EntitySeries      EntityKind = "series"
	EntityEpisode     EntityKind = "episode"
	EntityEpisodeFile EntityKind = "episodefile"
	EntityMovie       EntityKind = "movie"
)

// Candidate is a lookup result. ID is zero when the item exists in the
// external index but has not been imported into the catalog.
type Candidate struct {
	ID    int64
	Title string
	Year  int
}

// Imported reports whether the candidate carries an internal catalog ID
func (c *Candidate) Imported() bool {
	return c != nil && c.ID > 0
}

// SeasonState is the monitoring flag of one season in a series record
type SeasonState struct {
	Number    int
	Monitored bool
}

// Record is the subset of a downstream entity the cascade needs
type Record struct {
	ID        int64
	Kind      EntityKind
	Title     string
	Monitored bool

	// Series
	Status  string
	Seasons []SeasonState

	// Episode
	SeriesID      int64
	SeasonNumber  int
	EpisodeNumber int
	FileID        int64 // zero when no file is present
	HasFile       bool
}

// DeleteOptions controls destructive behavior of DeleteEntity
type DeleteOptions struct {
	DeleteFiles   bool
	AllowReimport bool // when false the item is added to the import exclusion list
}

// Catalog is implemented once per downstream system
type Catalog interface {
	Name() string
	LookupByExternalID(ctx context.Context, kind EntityKind, provider models.Provider, id string) (*Candidate, error)
	GetEntity(ctx context.Context, kind EntityKind, id int64) (*Record, error)
	UpdateMonitoring(ctx context.Context, kind EntityKind, id int64, monitored bool) error
	DeleteEntity(ctx context.Context, kind EntityKind, id int64, opts DeleteOptions) error
	ListChildren(ctx context.Context, kind EntityKind, parentID int64) ([]Record, error)
	ListAll(ctx context.Context, kind EntityKind) ([]Record, error)
	TestConnection(ctx context.Context) bool
}

// SeriesCatalog adds season monitoring, which is stored inside the series record.
// SetSeasonMonitoring is a read-modify-write of the whole series: an edit made by
// someone else between the read and the write is lost.
type SeriesCatalog interface {
	Catalog
	SetSeasonMonitoring(ctx context.Context, seriesID int64, season int, monitored bool) (bool, error)
}
