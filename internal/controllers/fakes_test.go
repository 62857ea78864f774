package controllers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/amaumene/deleterr/internal/utils"
	"github.com/stretchr/testify/mock"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeCatalog is an in-memory Sonarr/Radarr
type fakeCatalog struct {
	mu sync.Mutex

	name     string
	lookups  map[string]catalog.Candidate // "provider:id"
	series   map[int64]*catalog.Record
	episodes map[int64][]*catalog.Record // by series ID
	movies   map[int64]*catalog.Record
	files    map[int64]bool

	failDelete error
	failLookup error

	lookupCalls  []string
	listAllCalls int
	calls        []string
}

func newFakeCatalog(name string) *fakeCatalog {
	return &fakeCatalog{
		name:     name,
		lookups:  map[string]catalog.Candidate{},
		series:   map[int64]*catalog.Record{},
		episodes: map[int64][]*catalog.Record{},
		movies:   map[int64]*catalog.Record{},
		files:    map[int64]bool{},
	}
}

func (f *fakeCatalog) addSeries(id int64, title, status string, seasons ...catalog.SeasonState) {
	f.series[id] = &catalog.Record{ID: id, Kind: catalog.EntitySeries, Title: title, Status: status, Monitored: true, Seasons: seasons}
}

func (f *fakeCatalog) addEpisode(seriesID, id int64, season, number int, monitored bool, fileID int64) {
	f.episodes[seriesID] = append(f.episodes[seriesID], &catalog.Record{
		ID:            id,
		Kind:          catalog.EntityEpisode,
		SeriesID:      seriesID,
		SeasonNumber:  season,
		EpisodeNumber: number,
		Monitored:     monitored,
		FileID:        fileID,
		HasFile:       fileID > 0,
	})
	if fileID > 0 {
		f.files[fileID] = true
	}
}

func (f *fakeCatalog) addMovie(id int64, title string) {
	f.movies[id] = &catalog.Record{ID: id, Kind: catalog.EntityMovie, Title: title, Monitored: true}
}

func (f *fakeCatalog) index(provider models.Provider, id string, candidate catalog.Candidate) {
	f.lookups[string(provider)+":"+id] = candidate
}

func (f *fakeCatalog) episode(seriesID int64, season, number int) *catalog.Record {
	for _, e := range f.episodes[seriesID] {
		if e.SeasonNumber == season && e.EpisodeNumber == number {
			return e
		}
	}
	return nil
}

func (f *fakeCatalog) seasonMonitored(seriesID int64, season int) bool {
	for _, s := range f.series[seriesID].Seasons {
		if s.Number == season {
			return s.Monitored
		}
	}
	return false
}

func (f *fakeCatalog) Name() string { return f.name }

func (f *fakeCatalog) LookupByExternalID(ctx context.Context, kind catalog.EntityKind, provider models.Provider, id string) (*catalog.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls = append(f.lookupCalls, string(provider)+":"+id)
	if f.failLookup != nil {
		return nil, f.failLookup
	}
	candidate, ok := f.lookups[string(provider)+":"+id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &candidate, nil
}

func (f *fakeCatalog) GetEntity(ctx context.Context, kind catalog.EntityKind, id int64) (*catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rec *catalog.Record
	switch kind {
	case catalog.EntitySeries:
		rec = f.series[id]
	case catalog.EntityMovie:
		rec = f.movies[id]
	}
	if rec == nil {
		return nil, catalog.ErrNotFound
	}
	copied := *rec
	copied.Seasons = append([]catalog.SeasonState(nil), rec.Seasons...)
	return &copied, nil
}

func (f *fakeCatalog) UpdateMonitoring(ctx context.Context, kind catalog.EntityKind, id int64, monitored bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("monitor %s %d %t", kind, id, monitored))
	for _, eps := range f.episodes {
		for _, e := range eps {
			if e.ID == id {
				e.Monitored = monitored
				return nil
			}
		}
	}
	return catalog.ErrNotFound
}

func (f *fakeCatalog) DeleteEntity(ctx context.Context, kind catalog.EntityKind, id int64, opts catalog.DeleteOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.calls = append(f.calls, fmt.Sprintf("delete %s %d files=%t reimport=%t", kind, id, opts.DeleteFiles, opts.AllowReimport))
	switch kind {
	case catalog.EntityEpisodeFile:
		if !f.files[id] {
			return catalog.ErrNotFound
		}
		delete(f.files, id)
		for _, eps := range f.episodes {
			for _, e := range eps {
				if e.FileID == id {
					e.FileID = 0
					e.HasFile = false
				}
			}
		}
	case catalog.EntitySeries:
		if f.series[id] == nil {
			return catalog.ErrNotFound
		}
		delete(f.series, id)
		delete(f.episodes, id)
		f.unimport(id)
	case catalog.EntityMovie:
		if f.movies[id] == nil {
			return catalog.ErrNotFound
		}
		delete(f.movies, id)
		f.unimport(id)
	}
	return nil
}

// unimport keeps deleted entities known to lookups without an ID, as the *arr metadata search does
func (f *fakeCatalog) unimport(id int64) {
	for key, candidate := range f.lookups {
		if candidate.ID == id {
			candidate.ID = 0
			f.lookups[key] = candidate
		}
	}
}

func (f *fakeCatalog) ListChildren(ctx context.Context, kind catalog.EntityKind, parentID int64) ([]catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.series[parentID] == nil {
		return nil, catalog.ErrNotFound
	}
	var records []catalog.Record
	for _, e := range f.episodes[parentID] {
		records = append(records, *e)
	}
	return records, nil
}

func (f *fakeCatalog) ListAll(ctx context.Context, kind catalog.EntityKind) ([]catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAllCalls++
	source := f.series
	if kind == catalog.EntityMovie {
		source = f.movies
	}
	var records []catalog.Record
	for _, r := range source {
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (f *fakeCatalog) TestConnection(ctx context.Context) bool { return true }

func (f *fakeCatalog) SetSeasonMonitoring(ctx context.Context, seriesID int64, season int, monitored bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	series := f.series[seriesID]
	if series == nil {
		return false, catalog.ErrNotFound
	}
	for i := range series.Seasons {
		if series.Seasons[i].Number == season {
			if series.Seasons[i].Monitored == monitored {
				return false, nil
			}
			series.Seasons[i].Monitored = monitored
			f.calls = append(f.calls, fmt.Sprintf("monitor season %d %d %t", seriesID, season, monitored))
			return true, nil
		}
	}
	return false, fmt.Errorf("season %d not found", season)
}

// mockLibrary is a testify mock of the Jellyfin capability
type mockLibrary struct {
	mock.Mock
}

func (m *mockLibrary) GetContainerExternalIDs(ctx context.Context, containerID string) (models.ExternalIDs, error) {
	args := m.Called(ctx, containerID)
	return args.Get(0).(models.ExternalIDs), args.Error(1)
}

func (m *mockLibrary) ExistsInLibrary(ctx context.Context, ids models.ExternalIDs, kind models.MediaKind) bool {
	args := m.Called(ctx, ids, kind)
	return args.Bool(0)
}

// mockTarget is a testify mock of a search target
type mockTarget struct {
	mock.Mock
	name string
}

func (m *mockTarget) Name() string { return m.name }

func (m *mockTarget) GetQueue(ctx context.Context) ([]arr.QueueItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]arr.QueueItem), args.Error(1)
}

func (m *mockTarget) RemoveFromQueue(ctx context.Context, queueID int64) error {
	return m.Called(ctx, queueID).Error(0)
}

func (m *mockTarget) GetDiskSpace(ctx context.Context) ([]arr.DiskSpace, error) {
	args := m.Called(ctx)
	return args.Get(0).([]arr.DiskSpace), args.Error(1)
}

func (m *mockTarget) ListMissing(ctx context.Context) ([]arr.MissingItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]arr.MissingItem), args.Error(1)
}

func (m *mockTarget) SearchItems(ctx context.Context, ids []int64) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *mockTarget) QueueItemTarget(item arr.QueueItem) int64 {
	return item.EpisodeID
}

// harness wires an event controller against fake catalogs
type harness struct {
	sonarr   *fakeCatalog
	radarr   *fakeCatalog
	library  *mockLibrary
	metrics  *metrics.Metrics
	recorder *tracetest.SpanRecorder
	events   *EventController
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	nameFallback bool
	library      bool
	protected    []string
	db           *models.Database
}

func withNameFallback() harnessOption { return func(c *harnessConfig) { c.nameFallback = true } }
func withLibrary() harnessOption      { return func(c *harnessConfig) { c.library = true } }
func withProtected(titles ...string) harnessOption {
	return func(c *harnessConfig) { c.protected = titles }
}
func withDatabase(db *models.Database) harnessOption { return func(c *harnessConfig) { c.db = db } }

func newHarness(opts ...harnessOption) *harness {
	cfg := &harnessConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := utils.NewNullLogger()
	m := metrics.NewUnregistered()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h := &harness{
		sonarr:   newFakeCatalog("sonarr"),
		radarr:   newFakeCatalog("radarr"),
		library:  &mockLibrary{},
		metrics:  m,
		recorder: recorder,
	}

	var identity IdentitySource
	var library LibraryChecker
	if cfg.library {
		identity = h.library
		library = h.library
	}

	resolver := NewResolver(cfg.nameFallback, m, logger)
	tv := NewTVController(h.sonarr, resolver, m, logger)
	movies := NewMovieController(h.radarr, resolver, NewReconciler(library, m, logger), m, logger)
	h.events = NewEventController(
		tv,
		movies,
		NewEnricher(identity, m, logger),
		utils.NewProtectedTitles(cfg.protected),
		cfg.db,
		provider.Tracer("test"),
		m,
		logger,
	)
	return h
}
