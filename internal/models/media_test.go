package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewEpisode(t *testing.T) {
	item, err := NewEpisode("The Show", 2, 5, ExternalIDs{TVDB: "100"}, Source{ItemID: "abc", SeriesID: "def"})
	require.NoError(t, err)

	assert.Equal(t, KindEpisode, item.Kind())
	season, ok := item.Season()
	assert.True(t, ok)
	assert.Equal(t, 2, season)
	episode, ok := item.Episode()
	assert.True(t, ok)
	assert.Equal(t, 5, episode)
	assert.Equal(t, "def", item.Source().SeriesID)
	assert.Equal(t, "The Show S02E05", item.String())
}

func TestNewMediaItem_KindMismatch(t *testing.T) {
	tests := []struct {
		name    string
		kind    MediaKind
		season  *int
		episode *int
		year    int
	}{
		{"episode without numbers", KindEpisode, nil, nil, 0},
		{"episode without episode number", KindEpisode, intPtr(1), nil, 0},
		{"season without season number", KindSeason, nil, nil, 0},
		{"season with episode number", KindSeason, intPtr(1), intPtr(2), 0},
		{"show with season", KindTVShow, intPtr(1), nil, 0},
		{"movie with episode", KindMovie, nil, intPtr(3), 0},
		{"episode with year", KindEpisode, intPtr(1), intPtr(1), 2020},
		{"negative season", KindSeason, intPtr(-1), nil, 0},
		{"unknown kind", MediaKind("trailer"), nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewMediaItem(tt.kind, "Title", tt.season, tt.episode, tt.year, ExternalIDs{}, Source{})
			assert.Nil(t, item)
			assert.ErrorIs(t, err, ErrInvalidItem)
		})
	}
}

func TestNewMediaItem_RequiresTitleOrIdentifier(t *testing.T) {
	_, err := NewTVShow("  ", ExternalIDs{}, Source{})
	assert.ErrorIs(t, err, ErrInvalidItem)

	item, err := NewTVShow("", ExternalIDs{TVDB: "81189"}, Source{})
	require.NoError(t, err)
	assert.Equal(t, "81189", item.ExternalIDs().Get(ProviderTVDB))
}

func TestMovieHasNoSeason(t *testing.T) {
	item, err := NewMovie("Inception", 2010, ExternalIDs{TMDB: "27205"}, Source{})
	require.NoError(t, err)

	_, ok := item.Season()
	assert.False(t, ok)
	_, ok = item.Episode()
	assert.False(t, ok)
	assert.Equal(t, "Inception (2010)", item.String())
}

func TestMergeExternalIDs(t *testing.T) {
	item, err := NewEpisode("The Show", 1, 1, ExternalIDs{IMDB: "tt-episode", TVDB: "999"}, Source{})
	require.NoError(t, err)

	changed := item.MergeExternalIDs(ExternalIDs{IMDB: "tt-series", TVDB: "", TMDB: "42"})

	ids := item.ExternalIDs()
	assert.Equal(t, "tt-series", ids.IMDB, "non-empty values overwrite")
	assert.Equal(t, "999", ids.TVDB, "empty values never downgrade a present identifier")
	assert.Equal(t, "42", ids.TMDB)
	assert.ElementsMatch(t, []Provider{ProviderIMDB, ProviderTMDB}, changed)

	assert.Empty(t, item.MergeExternalIDs(ids), "merging identical ids is a no-op")
}

func TestProviderOrder(t *testing.T) {
	assert.Equal(t, []Provider{ProviderTVDB, ProviderIMDB, ProviderTMDB}, ProviderOrder(KindEpisode))
	assert.Equal(t, []Provider{ProviderTMDB, ProviderIMDB}, ProviderOrder(KindMovie))
}

func TestDatabase_DeletionHistory(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	old := &DeletionRecord{Kind: KindMovie, Title: "Old", Outcome: OutcomeSuccess, ProcessedAt: time.Now().Add(-48 * time.Hour)}
	recent := &DeletionRecord{Kind: KindEpisode, Title: "Recent", Outcome: OutcomeFailed}
	require.NoError(t, db.CreateDeletionRecord(old))
	require.NoError(t, db.CreateDeletionRecord(recent))

	all, err := db.GetAllDeletionRecords()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := db.GetDeletionRecordsByOutcome(OutcomeFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Recent", failed[0].Title)

	latest, err := db.GetRecentDeletionRecords(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Recent", latest[0].Title)

	removed, err := db.PruneDeletionRecords(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err = db.GetAllDeletionRecords()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDatabase_SearchReports(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	require.NoError(t, db.CreateSearchReport(&SearchReport{Catalog: "radarr", Searched: 1, StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.CreateSearchReport(&SearchReport{Catalog: "radarr", Searched: 2, StartedAt: now}))
	require.NoError(t, db.CreateSearchReport(&SearchReport{Catalog: "sonarr", Searched: 3, StartedAt: now}))

	latest, err := db.GetLatestSearchReport("radarr")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Searched)

	_, err = db.GetLatestSearchReport("lidarr")
	assert.Error(t, err)
}
