package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/arr"
	"github.com/amaumene/deleterr/internal/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const gib = 1024 * 1024 * 1024

func newSearchController(t *testing.T, target *mockTarget, delay time.Duration) (*SearchController, *models.Database, *metrics.Metrics) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.NewUnregistered()
	logger := utils.NewNullLogger()
	cleanup := NewCleanupController(4*time.Hour, m, logger)
	targets := []SearchTargetConfig{{Target: target, RootPath: "/shows"}}
	return NewSearchController(targets, cleanup, db, 20, delay, m, logger), db, m
}

func TestCleanupStalled(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Return([]arr.QueueItem{
		{ID: 1, DownloadID: "old", Added: now.Add(-5 * time.Hour), EpisodeID: 10},
		{ID: 2, DownloadID: "fresh", Added: now.Add(-time.Hour), EpisodeID: 11},
		{ID: 3, Added: now.Add(-48 * time.Hour), EpisodeID: 12},
		{ID: 4, DownloadID: "broken", Added: now.Add(-6 * time.Hour), EpisodeID: 13},
	}, nil)
	target.On("RemoveFromQueue", mock.Anything, int64(1)).Return(nil)
	target.On("RemoveFromQueue", mock.Anything, int64(4)).Return(errors.New("client unreachable"))
	target.On("SearchItems", mock.Anything, []int64{10}).Return(nil)

	m := metrics.NewUnregistered()
	cleanup := NewCleanupController(4*time.Hour, m, utils.NewNullLogger())
	cleanup.now = func() time.Time { return now }

	stalled, blocklisted, err := cleanup.CleanupStalled(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 2, stalled)
	assert.Equal(t, 1, blocklisted)
	target.AssertExpectations(t)
	target.AssertNotCalled(t, "SearchItems", mock.Anything, []int64{13})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Blocklisted.WithLabelValues("sonarr")))
}

func TestSearchRun_SearchesMissingItems(t *testing.T) {
	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Return([]arr.QueueItem{}, nil)
	target.On("GetDiskSpace", mock.Anything).Return([]arr.DiskSpace{
		{Path: "/", FreeSpace: 500 * gib},
		{Path: "/shows", FreeSpace: 100 * gib},
	}, nil)
	target.On("ListMissing", mock.Anything).Return([]arr.MissingItem{
		{ID: 1, Title: "A S01E01"},
		{ID: 2, Title: "A S01E02"},
		{ID: 3, Title: "A S01E03"},
	}, nil)
	target.On("SearchItems", mock.Anything, []int64{1}).Return(nil)
	target.On("SearchItems", mock.Anything, []int64{2}).Return(errors.New("indexer down"))
	target.On("SearchItems", mock.Anything, []int64{3}).Return(nil)

	ctrl, db, m := newSearchController(t, target, time.Millisecond)

	reports, err := ctrl.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, 3, report.Missing)
	assert.Equal(t, 2, report.Searched)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Skipped)
	assert.InDelta(t, 100.0, report.FreeSpaceGB, 0.001)
	target.AssertExpectations(t)

	saved, err := db.GetLatestSearchReport("sonarr")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Searched)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRuns.WithLabelValues("sonarr", "completed")))
}

func TestSearchRun_LowDiskSpace(t *testing.T) {
	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Return([]arr.QueueItem{}, nil)
	target.On("GetDiskSpace", mock.Anything).Return([]arr.DiskSpace{{Path: "/shows", FreeSpace: 5 * gib}}, nil)

	ctrl, _, _ := newSearchController(t, target, 0)

	report, err := ctrl.Run(context.Background(), ctrl.targets[0])
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Contains(t, report.SkipReason, "low disk space")
	target.AssertNotCalled(t, "ListMissing", mock.Anything)
}

func TestSearchRun_DiskPathMustMatchExactly(t *testing.T) {
	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Return([]arr.QueueItem{}, nil)
	target.On("GetDiskSpace", mock.Anything).Return([]arr.DiskSpace{{Path: "/shows/", FreeSpace: 500 * gib}}, nil)

	ctrl, _, _ := newSearchController(t, target, 0)

	report, err := ctrl.Run(context.Background(), ctrl.targets[0])
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Contains(t, report.SkipReason, "not found")
	target.AssertNotCalled(t, "ListMissing", mock.Anything)
}

func TestSearchRun_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Return([]arr.QueueItem{}, nil)
	target.On("GetDiskSpace", mock.Anything).Return([]arr.DiskSpace{{Path: "/shows", FreeSpace: 100 * gib}}, nil)
	target.On("ListMissing", mock.Anything).Return([]arr.MissingItem{{ID: 1}, {ID: 2}}, nil)
	target.On("SearchItems", mock.Anything, []int64{1}).Run(func(mock.Arguments) { cancel() }).Return(nil)

	ctrl, _, _ := newSearchController(t, target, time.Hour)

	done := make(chan *models.SearchReport)
	go func() {
		report, _ := ctrl.Run(ctx, ctrl.targets[0])
		done <- report
	}()

	select {
	case report := <-done:
		assert.True(t, report.Cancelled)
		assert.Equal(t, 1, report.Searched)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop on cancellation")
	}
	target.AssertNotCalled(t, "SearchItems", mock.Anything, []int64{2})
}

func TestRunAll_RejectsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	target := &mockTarget{name: "sonarr"}
	target.On("GetQueue", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return([]arr.QueueItem{}, nil)
	target.On("GetDiskSpace", mock.Anything).Return([]arr.DiskSpace{}, nil)

	ctrl, _, _ := newSearchController(t, target, 0)

	errc := make(chan error)
	go func() {
		_, err := ctrl.RunAll(context.Background())
		errc <- err
	}()

	<-started
	assert.True(t, ctrl.Running())
	_, err := ctrl.RunAll(context.Background())
	assert.ErrorIs(t, err, ErrSearchInProgress)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, ctrl.Running())
}
