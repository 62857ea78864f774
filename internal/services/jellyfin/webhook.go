package jellyfin

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/utils"
)

// ErrUnsupportedItem is returned for item types this service does not handle
var ErrUnsupportedItem = errors.New("unsupported item type")

// removalNotifications are the NotificationType values meaning "item removed"
var removalNotifications = map[string]bool{
	"ItemDeleted":  true,
	"ItemRemoved":  true,
	"Item Deleted": true,
	"Item Removed": true,
}

// Episode naming patterns used when the payload has no structured numbers
var episodeNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+-\s+S(\d+)E(\d+)`),                  // "Series Name - S01E01"
	regexp.MustCompile(`(?i)^(.+?)\s+S(\d+)E(\d+)`),                      // "Series Name S01E01"
	regexp.MustCompile(`(?i)^(.+?)\s+(\d+)x(\d+)`),                       // "Series Name 1x01"
	regexp.MustCompile(`(?i)^(.+?)\s+Season\s+(\d+)\s+Episode\s+(\d+)`), // "Series Name Season 1 Episode 1"
}

// WebhookPayload represents the payload sent by the Jellyfin webhook plugin
type WebhookPayload struct {
	NotificationType string `json:"NotificationType"`

	ItemID   string  `json:"ItemId,omitempty"`
	Name     string  `json:"Name,omitempty"`
	ItemType string  `json:"ItemType,omitempty"`
	Year     FlexInt `json:"Year,omitempty"`

	SeriesID      string  `json:"SeriesId,omitempty"`
	SeriesName    string  `json:"SeriesName,omitempty"`
	SeasonNumber  FlexInt `json:"SeasonNumber,omitempty"`
	EpisodeNumber FlexInt `json:"EpisodeNumber,omitempty"`

	ProviderTmdb string `json:"Provider_tmdb,omitempty"`
	ProviderTvdb string `json:"Provider_tvdb,omitempty"`
	ProviderImdb string `json:"Provider_imdb,omitempty"`
}

// FlexInt decodes an optional integer sent either as a JSON number or a string.
// Values that are not integers decode as absent.
type FlexInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON accepts 5, "5", "" and null
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexInt{}
		return nil
	}

	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		*f = FlexInt{}
		return nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		*f = FlexInt{}
		return nil
	}
	*f = FlexInt{Value: v, Valid: true}
	return nil
}

// MarshalJSON encodes a valid value as a number and an invalid one as null
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

func (f FlexInt) ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// IsRemoval returns true if the notification reports a removed item
func (p *WebhookPayload) IsRemoval() bool {
	return removalNotifications[strings.TrimSpace(p.NotificationType)]
}

// ExternalIDs returns the provider identifiers carried by the payload
func (p *WebhookPayload) ExternalIDs() models.ExternalIDs {
	return models.ExternalIDs{
		IMDB: strings.TrimSpace(p.ProviderImdb),
		TVDB: strings.TrimSpace(p.ProviderTvdb),
		TMDB: strings.TrimSpace(p.ProviderTmdb),
	}
}

// Kind maps the Jellyfin item type to a media kind
func (p *WebhookPayload) Kind() (models.MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(p.ItemType)) {
	case "episode":
		return models.KindEpisode, nil
	case "season":
		return models.KindSeason, nil
	case "series":
		return models.KindTVShow, nil
	case "movie":
		return models.KindMovie, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedItem, p.ItemType)
}

// ToMediaItem validates the payload and converts it to a media item.
// Names are HTML-unescaped. Episodes without structured numbers are parsed from Name.
func (p *WebhookPayload) ToMediaItem() (*models.MediaItem, error) {
	kind, err := p.Kind()
	if err != nil {
		return nil, err
	}

	name := html.UnescapeString(strings.TrimSpace(p.Name))
	seriesName := html.UnescapeString(strings.TrimSpace(p.SeriesName))
	ids := p.ExternalIDs()
	src := models.Source{ItemID: p.ItemID, SeriesID: p.SeriesID}

	switch kind {
	case models.KindEpisode:
		if p.SeasonNumber.Valid && p.EpisodeNumber.Valid {
			title := seriesName
			if title == "" {
				title = name
			}
			return models.NewEpisode(title, p.SeasonNumber.Value, p.EpisodeNumber.Value, ids, src)
		}
		title, season, episode, ok := ParseEpisodeName(name)
		if !ok {
			return nil, fmt.Errorf("%w: episode %q has no season and episode numbers", models.ErrInvalidItem, name)
		}
		if seriesName != "" {
			title = seriesName
		}
		return models.NewEpisode(title, season, episode, ids, src)

	case models.KindSeason:
		title := seriesName
		if title == "" {
			title = name
		}
		return models.NewMediaItem(kind, title, p.SeasonNumber.ptr(), p.EpisodeNumber.ptr(), 0, ids, src)

	case models.KindMovie:
		year := p.Year.Value
		if !p.Year.Valid {
			name, year = utils.ExtractYear(name)
		}
		return models.NewMovie(name, year, ids, src)
	}

	return models.NewTVShow(name, ids, src)
}

// ParseEpisodeName extracts series title, season and episode from a display name
func ParseEpisodeName(name string) (string, int, int, bool) {
	name = html.UnescapeString(name)
	for _, re := range episodeNamePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		season, err1 := strconv.Atoi(m[2])
		episode, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		return strings.TrimSpace(m[1]), season, episode, true
	}
	return "", 0, 0, false
}
