package jellyfin

import (
	"encoding/json"
	"testing"

	"github.com/amaumene/deleterr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) *WebhookPayload {
	t.Helper()
	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return &p
}

func TestIsRemoval(t *testing.T) {
	for _, n := range []string{"ItemDeleted", "ItemRemoved", "Item Deleted", "Item Removed"} {
		assert.True(t, (&WebhookPayload{NotificationType: n}).IsRemoval(), n)
	}
	for _, n := range []string{"ItemAdded", "PlaybackStop", ""} {
		assert.False(t, (&WebhookPayload{NotificationType: n}).IsRemoval(), n)
	}
}

func TestToMediaItem_Episode(t *testing.T) {
	p := decode(t, `{
		"NotificationType": "ItemDeleted",
		"ItemType": "Episode",
		"ItemId": "ep-1",
		"Name": "Pilot",
		"SeriesName": "Law &amp; Order",
		"SeriesId": "series-9",
		"SeasonNumber": "2",
		"EpisodeNumber": 5,
		"Provider_tvdb": "100"
	}`)

	item, err := p.ToMediaItem()
	require.NoError(t, err)
	assert.Equal(t, models.KindEpisode, item.Kind())
	assert.Equal(t, "Law & Order", item.Title())
	season, _ := item.Season()
	episode, _ := item.Episode()
	assert.Equal(t, 2, season)
	assert.Equal(t, 5, episode)
	assert.Equal(t, "100", item.ExternalIDs().TVDB)
	assert.Equal(t, "series-9", item.Source().SeriesID)
}

func TestToMediaItem_EpisodeNameFallback(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		season  int
		episode int
	}{
		{"The Show S01E02", "The Show", 1, 2},
		{"The Show - s03e10", "The Show", 3, 10},
		{"The Show 4x07", "The Show", 4, 7},
		{"The Show Season 2 Episode 9", "The Show", 2, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &WebhookPayload{ItemType: "Episode", Name: tt.name}
			item, err := p.ToMediaItem()
			require.NoError(t, err)
			assert.Equal(t, tt.title, item.Title())
			season, _ := item.Season()
			episode, _ := item.Episode()
			assert.Equal(t, tt.season, season)
			assert.Equal(t, tt.episode, episode)
		})
	}
}

func TestToMediaItem_MalformedEpisode(t *testing.T) {
	p := &WebhookPayload{ItemType: "Episode", Name: "Just A Title", SeasonNumber: FlexInt{Value: 1, Valid: true}}
	_, err := p.ToMediaItem()
	assert.ErrorIs(t, err, models.ErrInvalidItem)
}

func TestToMediaItem_Season(t *testing.T) {
	p := decode(t, `{"ItemType": "Season", "Name": "Season 2", "SeriesName": "The Show", "SeasonNumber": 2}`)
	item, err := p.ToMediaItem()
	require.NoError(t, err)
	assert.Equal(t, models.KindSeason, item.Kind())
	assert.Equal(t, "The Show", item.Title())

	_, err = (&WebhookPayload{ItemType: "Season", Name: "Season ?"}).ToMediaItem()
	assert.ErrorIs(t, err, models.ErrInvalidItem)
}

func TestToMediaItem_Movie(t *testing.T) {
	p := decode(t, `{"ItemType": "Movie", "Name": "The Accountant&#178;", "Year": "2025", "Provider_tmdb": "1"}`)
	item, err := p.ToMediaItem()
	require.NoError(t, err)
	assert.Equal(t, "The Accountant²", item.Title())
	assert.Equal(t, 2025, item.Year())

	p = decode(t, `{"ItemType": "Movie", "Name": "Inception (2010)", "Year": "unknown"}`)
	item, err = p.ToMediaItem()
	require.NoError(t, err)
	assert.Equal(t, "Inception", item.Title())
	assert.Equal(t, 2010, item.Year())
}

func TestToMediaItem_Series(t *testing.T) {
	p := decode(t, `{"ItemType": "Series", "Name": "The Show", "Provider_tvdb": "100"}`)
	item, err := p.ToMediaItem()
	require.NoError(t, err)
	assert.Equal(t, models.KindTVShow, item.Kind())
}

func TestToMediaItem_UnsupportedType(t *testing.T) {
	_, err := (&WebhookPayload{ItemType: "Audio", Name: "Song"}).ToMediaItem()
	assert.ErrorIs(t, err, ErrUnsupportedItem)
}

func TestFlexInt(t *testing.T) {
	var v struct {
		A FlexInt `json:"a"`
		B FlexInt `json:"b"`
		C FlexInt `json:"c"`
		D FlexInt `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 3, "b": " 4 ", "c": "", "d": null}`), &v))
	assert.Equal(t, FlexInt{Value: 3, Valid: true}, v.A)
	assert.Equal(t, FlexInt{Value: 4, Valid: true}, v.B)
	assert.False(t, v.C.Valid)
	assert.False(t, v.D.Valid)
}
