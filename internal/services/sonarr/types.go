package sonarr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Series is the subset of a Sonarr series resource read by this service
type Series struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Year      int      `json:"year"`
	TvdbID    int64    `json:"tvdbId"`
	ImdbID    string   `json:"imdbId"`
	TmdbID    int64    `json:"tmdbId"`
	Status    string   `json:"status"` // continuing, ended, upcoming, deleted
	Monitored bool     `json:"monitored"`
	Seasons   []Season `json:"seasons"`
}

// Season is one entry of a series' season list
type Season struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

// Episode is a Sonarr episode resource
type Episode struct {
	ID                       int64     `json:"id"`
	SeriesID                 int64     `json:"seriesId"`
	SeasonNumber             int       `json:"seasonNumber"`
	EpisodeNumber            int       `json:"episodeNumber"`
	Title                    string    `json:"title"`
	Monitored                bool      `json:"monitored"`
	HasFile                  bool      `json:"hasFile"`
	EpisodeFileID            int64     `json:"episodeFileId"`
	AirDateUTC               time.Time `json:"airDateUtc"`
	UnverifiedSceneNumbering bool      `json:"unverifiedSceneNumbering"`
}

// episodeMonitorRequest is the body of PUT /episode/monitor
type episodeMonitorRequest struct {
	EpisodeIDs []int64 `json:"episodeIds"`
	Monitored  bool    `json:"monitored"`
}

// providerValue returns the identifier the series carries for a provider, as a string
func (s Series) providerValue(provider string) string {
	switch provider {
	case "tvdb":
		if s.TvdbID > 0 {
			return strconv.FormatInt(s.TvdbID, 10)
		}
	case "imdb":
		return s.ImdbID
	case "tmdb":
		if s.TmdbID > 0 {
			return strconv.FormatInt(s.TmdbID, 10)
		}
	}
	return ""
}

// seriesResource keeps every field of a series so a PUT round-trips what Sonarr sent
type seriesResource map[string]json.RawMessage

// withSeasonMonitored returns a copy of the resource with one season's monitored flag set.
// changed is false when the season already had that value.
func (r seriesResource) withSeasonMonitored(seasonNumber int, monitored bool) (seriesResource, bool, error) {
	rawSeasons, ok := r["seasons"]
	if !ok {
		return nil, false, fmt.Errorf("series resource has no seasons")
	}

	var seasons []map[string]json.RawMessage
	if err := json.Unmarshal(rawSeasons, &seasons); err != nil {
		return nil, false, fmt.Errorf("failed to decode seasons: %w", err)
	}

	found, changed := false, false
	updated := make([]map[string]json.RawMessage, len(seasons))
	for i, season := range seasons {
		var number int
		if err := json.Unmarshal(season["seasonNumber"], &number); err != nil {
			return nil, false, fmt.Errorf("failed to decode season number: %w", err)
		}
		var current bool
		if raw, ok := season["monitored"]; ok {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, false, fmt.Errorf("failed to decode season monitored flag: %w", err)
			}
		}

		copied := make(map[string]json.RawMessage, len(season))
		for k, v := range season {
			copied[k] = v
		}
		if number == seasonNumber {
			found = true
			if current != monitored {
				copied["monitored"] = json.RawMessage(strconv.FormatBool(monitored))
				changed = true
			}
		}
		updated[i] = copied
	}
	if !found {
		return nil, false, fmt.Errorf("season %d not found in series", seasonNumber)
	}

	encoded, err := json.Marshal(updated)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode seasons: %w", err)
	}

	next := make(seriesResource, len(r))
	for k, v := range r {
		next[k] = v
	}
	next["seasons"] = encoded
	return next, changed, nil
}

// withMonitored returns a copy of the resource with the series monitored flag set
func (r seriesResource) withMonitored(monitored bool) seriesResource {
	next := make(seriesResource, len(r))
	for k, v := range r {
		next[k] = v
	}
	next["monitored"] = json.RawMessage(strconv.FormatBool(monitored))
	return next
}
