package controllers

import (
	"context"

	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

// IdentitySource returns the external identifiers of a library container (a series)
type IdentitySource interface {
	GetContainerExternalIDs(ctx context.Context, containerID string) (models.ExternalIDs, error)
}

// LibraryChecker reports whether an item is still present in the media library
type LibraryChecker interface {
	ExistsInLibrary(ctx context.Context, ids models.ExternalIDs, kind models.MediaKind) bool
}

// Enricher fills in series-level identifiers for episode and season events.
// Failures are logged and never abort processing.
type Enricher struct {
	source  IdentitySource
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewEnricher creates a new enricher. A nil source disables enrichment.
func NewEnricher(source IdentitySource, m *metrics.Metrics, logger *logrus.Logger) *Enricher {
	return &Enricher{source: source, metrics: m, logger: logger}
}

// Enrich merges the series identifiers into item. It returns the providers that were set.
func (e *Enricher) Enrich(ctx context.Context, item *models.MediaItem) []models.Provider {
	if e.source == nil {
		return nil
	}
	kind := item.Kind()
	if kind != models.KindEpisode && kind != models.KindSeason {
		return nil
	}

	seriesID := item.Source().SeriesID
	if seriesID == "" {
		e.metrics.Enrichments.WithLabelValues("skipped").Inc()
		return nil
	}

	ids, err := e.source.GetContainerExternalIDs(ctx, seriesID)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"series_id": seriesID,
			"title":     item.Title(),
		}).Warn("Failed to enrich identifiers, continuing with event data")
		e.metrics.Enrichments.WithLabelValues("failed").Inc()
		return nil
	}

	updated := item.MergeExternalIDs(ids)
	e.logger.WithFields(logrus.Fields{
		"series_id": seriesID,
		"updated":   updated,
	}).Debug("Enriched identifiers from library")
	e.metrics.Enrichments.WithLabelValues("success").Inc()
	return updated
}

// Reconciler guards movie deletion against library upgrades: a delete
// notification for a movie that is still present means the file was replaced.
type Reconciler struct {
	library LibraryChecker
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewReconciler creates a new reconciler. A nil library disables the check.
func NewReconciler(library LibraryChecker, m *metrics.Metrics, logger *logrus.Logger) *Reconciler {
	return &Reconciler{library: library, metrics: m, logger: logger}
}

// StillExists reports whether the movie is still in the library.
// Lookup failures count as present.
func (r *Reconciler) StillExists(ctx context.Context, item *models.MediaItem) bool {
	if r.library == nil || item.Kind() != models.KindMovie {
		return false
	}
	ids := item.ExternalIDs()
	if ids.IsEmpty() {
		return false
	}

	exists := r.library.ExistsInLibrary(ctx, ids, item.Kind())
	result := "absent"
	if exists {
		result = "exists"
	}
	r.metrics.Reconciliations.WithLabelValues(result).Inc()
	r.logger.WithFields(logrus.Fields{
		"title":  item.Title(),
		"exists": exists,
	}).Debug("Checked library presence")
	return exists
}
