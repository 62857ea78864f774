package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidItem is returned when item attributes do not match its kind
var ErrInvalidItem = errors.New("invalid media item")

// ExternalIDs holds provider identifiers, each optional
type ExternalIDs struct {
	IMDB string `json:"imdb,omitempty"`
	TVDB string `json:"tvdb,omitempty"`
	TMDB string `json:"tmdb,omitempty"`
}

// Get returns the identifier for a provider
func (ids ExternalIDs) Get(p Provider) string {
	switch p {
	case ProviderIMDB:
		return ids.IMDB
	case ProviderTVDB:
		return ids.TVDB
	case ProviderTMDB:
		return ids.TMDB
	}
	return ""
}

func (ids *ExternalIDs) set(p Provider, value string) {
	switch p {
	case ProviderIMDB:
		ids.IMDB = value
	case ProviderTVDB:
		ids.TVDB = value
	case ProviderTMDB:
		ids.TMDB = value
	}
}

// IsEmpty reports whether no identifier is present
func (ids ExternalIDs) IsEmpty() bool {
	return ids.IMDB == "" && ids.TVDB == "" && ids.TMDB == ""
}

// Source identifies where an event originated in the front-end library
type Source struct {
	ItemID   string
	SeriesID string
}

// MediaItem is the validated unit of work for one deletion event.
// Fields are unexported so an item can only exist in a shape consistent with its kind.
type MediaItem struct {
	kind    MediaKind
	title   string
	season  int
	episode int
	year    int
	ids     ExternalIDs
	source  Source
}

// NewEpisode creates an episode item
func NewEpisode(seriesTitle string, season, episode int, ids ExternalIDs, src Source) (*MediaItem, error) {
	return NewMediaItem(KindEpisode, seriesTitle, &season, &episode, 0, ids, src)
}

// NewSeason creates a season item
func NewSeason(seriesTitle string, season int, ids ExternalIDs, src Source) (*MediaItem, error) {
	return NewMediaItem(KindSeason, seriesTitle, &season, nil, 0, ids, src)
}

// NewTVShow creates a whole-series item
func NewTVShow(title string, ids ExternalIDs, src Source) (*MediaItem, error) {
	return NewMediaItem(KindTVShow, title, nil, nil, 0, ids, src)
}

// NewMovie creates a movie item. A zero year means unknown.
func NewMovie(title string, year int, ids ExternalIDs, src Source) (*MediaItem, error) {
	return NewMediaItem(KindMovie, title, nil, nil, year, ids, src)
}

// NewMediaItem validates attribute presence against kind and builds the item
func NewMediaItem(kind MediaKind, title string, season, episode *int, year int, ids ExternalIDs, src Source) (*MediaItem, error) {
	title = strings.TrimSpace(title)
	if title == "" && ids.IsEmpty() {
		return nil, fmt.Errorf("%w: %s has neither a title nor external identifiers", ErrInvalidItem, kind)
	}
	if year < 0 {
		return nil, fmt.Errorf("%w: negative year %d", ErrInvalidItem, year)
	}

	item := &MediaItem{kind: kind, title: title, ids: ids, source: src}

	switch kind {
	case KindEpisode:
		if season == nil || episode == nil {
			return nil, fmt.Errorf("%w: episode requires season and episode numbers", ErrInvalidItem)
		}
		item.season, item.episode = *season, *episode
	case KindSeason:
		if season == nil {
			return nil, fmt.Errorf("%w: season requires a season number", ErrInvalidItem)
		}
		if episode != nil {
			return nil, fmt.Errorf("%w: season must not carry an episode number", ErrInvalidItem)
		}
		item.season = *season
	case KindTVShow, KindMovie:
		if season != nil || episode != nil {
			return nil, fmt.Errorf("%w: %s must not carry season or episode numbers", ErrInvalidItem, kind)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, kind)
	}

	if item.season < 0 || item.episode < 0 {
		return nil, fmt.Errorf("%w: negative season or episode number", ErrInvalidItem)
	}
	if year != 0 && kind != KindMovie {
		return nil, fmt.Errorf("%w: year is only valid for movies", ErrInvalidItem)
	}
	item.year = year

	return item, nil
}

func (m *MediaItem) Kind() MediaKind          { return m.kind }
func (m *MediaItem) Title() string            { return m.title }
func (m *MediaItem) Year() int                { return m.year }
func (m *MediaItem) ExternalIDs() ExternalIDs { return m.ids }
func (m *MediaItem) Source() Source           { return m.source }

// Season returns the season number for Episode and Season items
func (m *MediaItem) Season() (int, bool) {
	if m.kind == KindEpisode || m.kind == KindSeason {
		return m.season, true
	}
	return 0, false
}

// Episode returns the episode number for Episode items
func (m *MediaItem) Episode() (int, bool) {
	if m.kind == KindEpisode {
		return m.episode, true
	}
	return 0, false
}

// MergeExternalIDs overwrites identifiers with the non-empty values of other.
// Present identifiers are never cleared. Returns the providers that changed.
func (m *MediaItem) MergeExternalIDs(other ExternalIDs) []Provider {
	var changed []Provider
	for _, p := range TVProviderOrder {
		v := strings.TrimSpace(other.Get(p))
		if v == "" || v == m.ids.Get(p) {
			continue
		}
		m.ids.set(p, v)
		changed = append(changed, p)
	}
	return changed
}

// String renders the item for logs
func (m *MediaItem) String() string {
	switch m.kind {
	case KindEpisode:
		return fmt.Sprintf("%s S%02dE%02d", m.title, m.season, m.episode)
	case KindSeason:
		return fmt.Sprintf("%s Season %d", m.title, m.season)
	case KindMovie:
		if m.year > 0 {
			return fmt.Sprintf("%s (%d)", m.title, m.year)
		}
	}
	return m.title
}
