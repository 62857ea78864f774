package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amaumene/deleterr/internal/catalog"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/utils"
	"github.com/sirupsen/logrus"
)

// ErrNotResolved is returned when no identifier or name maps to an imported catalog entity
var ErrNotResolved = errors.New("item could not be resolved in catalog")

// ErrNotInLibrary is returned when the catalog knows an identifier but holds no entity for it,
// which is what a catalog reports after the entity was deleted. It wraps ErrNotResolved.
var ErrNotInLibrary = fmt.Errorf("%w: known to catalog but not in library", ErrNotResolved)

// IDCandidate is one external identifier to try during resolution
type IDCandidate struct {
	Provider models.Provider
	ID       string
}

// Resolution is the outcome of a successful resolution
type Resolution struct {
	ID       int64
	Title    string
	Method   models.MatchMethod
	Provider models.Provider // empty for name matches
}

// Resolver maps an item to a downstream entity ID.
// External identifiers are tried in priority order; the first imported hit wins.
type Resolver struct {
	nameFallback bool
	metrics      *metrics.Metrics
	logger       *logrus.Logger
}

// NewResolver creates a new resolver. nameFallback enables title matching
// when every identifier lookup misses.
func NewResolver(nameFallback bool, m *metrics.Metrics, logger *logrus.Logger) *Resolver {
	return &Resolver{
		nameFallback: nameFallback,
		metrics:      m,
		logger:       logger,
	}
}

// Candidates returns the item's non-empty identifiers in lookup priority order
func Candidates(item *models.MediaItem) []IDCandidate {
	ids := item.ExternalIDs()
	var candidates []IDCandidate
	for _, provider := range models.ProviderOrder(item.Kind()) {
		if value := ids.Get(provider); value != "" {
			candidates = append(candidates, IDCandidate{Provider: provider, ID: value})
		}
	}
	return candidates
}

// Resolve finds the catalog entity of the given kind for item
func (r *Resolver) Resolve(ctx context.Context, cat catalog.Catalog, kind catalog.EntityKind, item *models.MediaItem) (*Resolution, error) {
	resolution, err := r.ResolveIdentifiers(ctx, cat, kind, Candidates(item))
	if err == nil {
		return resolution, nil
	}
	if !errors.Is(err, ErrNotResolved) {
		return nil, err
	}
	if errors.Is(err, ErrNotInLibrary) {
		r.record(cat, models.MatchNone, "")
		return nil, fmt.Errorf("%w: %s in %s", err, item, cat.Name())
	}

	if !r.nameFallback || item.Title() == "" {
		r.record(cat, models.MatchNone, "")
		return nil, fmt.Errorf("%w: %s in %s", ErrNotResolved, item, cat.Name())
	}
	return r.resolveByName(ctx, cat, kind, item)
}

// ResolveIdentifiers tries each candidate in order. Empty IDs are never queried.
// A lookup error other than not-found aborts resolution. When no candidate is imported
// but at least one is known to the catalog, ErrNotInLibrary is returned.
func (r *Resolver) ResolveIdentifiers(ctx context.Context, cat catalog.Catalog, kind catalog.EntityKind, candidates []IDCandidate) (*Resolution, error) {
	known := false
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}

		candidate, err := cat.LookupByExternalID(ctx, kind, c.Provider, c.ID)
		if errors.Is(err, catalog.ErrNotFound) {
			r.logger.WithFields(logrus.Fields{
				"catalog":  cat.Name(),
				"provider": c.Provider,
				"id":       c.ID,
			}).Debug("No catalog match for identifier")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s lookup by %s:%s failed: %w", cat.Name(), c.Provider, c.ID, err)
		}
		if !candidate.Imported() {
			r.logger.WithFields(logrus.Fields{
				"catalog":  cat.Name(),
				"provider": c.Provider,
				"id":       c.ID,
				"title":    candidate.Title,
			}).Debug("Identifier known to catalog but not imported")
			known = true
			continue
		}

		r.logger.WithFields(logrus.Fields{
			"catalog":      cat.Name(),
			"provider":     c.Provider,
			"id":           c.ID,
			"entity_id":    candidate.ID,
			"match_method": models.MatchIdentifier,
		}).Info("Resolved catalog entity")
		r.record(cat, models.MatchIdentifier, c.Provider)

		return &Resolution{
			ID:       candidate.ID,
			Title:    candidate.Title,
			Method:   models.MatchIdentifier,
			Provider: c.Provider,
		}, nil
	}
	if known {
		return nil, ErrNotInLibrary
	}
	return nil, ErrNotResolved
}

// resolveByName matches the normalized title against every catalog entity.
// Exactly one match is required.
func (r *Resolver) resolveByName(ctx context.Context, cat catalog.Catalog, kind catalog.EntityKind, item *models.MediaItem) (*Resolution, error) {
	records, err := cat.ListAll(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entities for name match: %w", cat.Name(), err)
	}

	var matches []catalog.Record
	titles := make([]string, 0, len(records))
	for _, rec := range records {
		titles = append(titles, rec.Title)
		if utils.SameName(rec.Title, item.Title()) {
			matches = append(matches, rec)
		}
	}

	if len(matches) > 1 {
		matches = preferExact(matches, item.Title())
	}

	switch len(matches) {
	case 0:
		r.logger.WithFields(logrus.Fields{
			"catalog": cat.Name(),
			"title":   item.Title(),
			"closest": utils.ClosestNames(item.Title(), titles, 3),
		}).Warn("No catalog entity matches title")
		r.record(cat, models.MatchNone, "")
		return nil, fmt.Errorf("%w: no title match for %q in %s", ErrNotResolved, item.Title(), cat.Name())
	case 1:
	default:
		r.record(cat, models.MatchNone, "")
		return nil, fmt.Errorf("%w: %d entities match title %q in %s", ErrNotResolved, len(matches), item.Title(), cat.Name())
	}

	match := matches[0]
	r.logger.WithFields(logrus.Fields{
		"catalog":      cat.Name(),
		"title":        item.Title(),
		"entity_id":    match.ID,
		"entity_title": match.Title,
		"match_method": models.MatchName,
	}).Warn("Resolved catalog entity by name")
	r.record(cat, models.MatchName, "")

	return &Resolution{ID: match.ID, Title: match.Title, Method: models.MatchName}, nil
}

// preferExact narrows normalized matches to case-insensitive exact title matches when any exist
func preferExact(matches []catalog.Record, title string) []catalog.Record {
	var exact []catalog.Record
	for _, m := range matches {
		if strings.EqualFold(strings.TrimSpace(m.Title), strings.TrimSpace(title)) {
			exact = append(exact, m)
		}
	}
	if len(exact) == 0 {
		return matches
	}
	return exact
}

func (r *Resolver) record(cat catalog.Catalog, method models.MatchMethod, provider models.Provider) {
	r.metrics.Resolutions.WithLabelValues(cat.Name(), string(method), string(provider)).Inc()
}
