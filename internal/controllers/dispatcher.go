package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/jellyfin"
	"github.com/amaumene/deleterr/internal/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrMalformedEvent marks events that cannot be turned into a media item
var ErrMalformedEvent = errors.New("malformed event")

// Result is the outcome of one deletion event
type Result struct {
	Success bool
	Outcome models.Outcome
	Reason  string
	Err     error

	Kind    models.MediaKind
	Title   string
	Catalog string
	Method  models.MatchMethod
	Actions []string
}

func (r *Result) addAction(action string) {
	r.Actions = append(r.Actions, action)
}

// Malformed reports whether the event was rejected before any downstream call
func (r *Result) Malformed() bool {
	return errors.Is(r.Err, ErrMalformedEvent)
}

// EventController routes deletion events to the TV and movie controllers
type EventController struct {
	tv        *TVController
	movies    *MovieController
	enricher  *Enricher
	protected *utils.ProtectedTitles
	db        *models.Database
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

// NewEventController creates a new event controller. db may be nil to disable history.
func NewEventController(
	tv *TVController,
	movies *MovieController,
	enricher *Enricher,
	protected *utils.ProtectedTitles,
	db *models.Database,
	tracer trace.Tracer,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *EventController {
	if protected == nil {
		protected = utils.NewProtectedTitles(nil)
	}
	return &EventController{
		tv:        tv,
		movies:    movies,
		enricher:  enricher,
		protected: protected,
		db:        db,
		tracer:    tracer,
		metrics:   m,
		logger:    logger,
	}
}

// HandleWebhook validates a Jellyfin notification and processes it
func (c *EventController) HandleWebhook(ctx context.Context, payload *jellyfin.WebhookPayload) *Result {
	if !payload.IsRemoval() {
		c.metrics.Events.WithLabelValues("none", string(models.OutcomeIgnored)).Inc()
		return &Result{
			Success: true,
			Outcome: models.OutcomeIgnored,
			Reason:  fmt.Sprintf("notification type %q is not a removal", payload.NotificationType),
			Method:  models.MatchNone,
		}
	}

	item, err := payload.ToMediaItem()
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"item_type": payload.ItemType,
			"name":      payload.Name,
		}).Warn("Rejected malformed deletion event")
		c.metrics.Events.WithLabelValues("invalid", string(models.OutcomeFailed)).Inc()
		return &Result{
			Outcome: models.OutcomeFailed,
			Reason:  err.Error(),
			Err:     fmt.Errorf("%w: %v", ErrMalformedEvent, err),
			Title:   payload.Name,
			Method:  models.MatchNone,
		}
	}

	return c.Process(ctx, item)
}

// Process runs a validated item through enrichment, resolution and the cascade
func (c *EventController) Process(ctx context.Context, item *models.MediaItem) *Result {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "deletion.event", trace.WithAttributes(
		attribute.String("kind", string(item.Kind())),
		attribute.String("title", item.Title()),
	))
	defer span.End()

	res := &Result{
		Kind:   item.Kind(),
		Title:  item.Title(),
		Method: models.MatchNone,
	}

	logger := c.logger.WithFields(logrus.Fields{
		"kind": item.Kind(),
		"item": item.String(),
	})
	logger.Info("Processing deletion event")

	if protected, entry := c.protected.IsProtected(item.Title()); protected {
		res.Success = true
		res.Outcome = models.OutcomeIgnored
		res.Reason = fmt.Sprintf("title matches protected entry %q", entry)
		logger.Warn("Title is protected, skipping")
	} else {
		err := c.route(ctx, item, res)
		if err != nil {
			res.Outcome = models.OutcomeFailed
			res.Err = err
			res.Reason = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WithError(err).Error("Deletion event failed")
		} else {
			res.Success = true
			res.Outcome = models.OutcomeSuccess
			if res.Reason == "" {
				res.Reason = summarize(res.Actions)
			}
			logger.WithFields(logrus.Fields{
				"catalog":      res.Catalog,
				"match_method": res.Method,
				"actions":      len(res.Actions),
			}).Info("Deletion event processed")
		}
	}

	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.String("match_method", string(res.Method)),
		attribute.Int("actions", len(res.Actions)),
	)
	c.metrics.Events.WithLabelValues(string(item.Kind()), string(res.Outcome)).Inc()
	c.metrics.EventDuration.WithLabelValues(string(item.Kind())).Observe(time.Since(start).Seconds())
	c.recordHistory(item, res)

	return res
}

func (c *EventController) route(ctx context.Context, item *models.MediaItem, res *Result) error {
	switch item.Kind() {
	case models.KindEpisode:
		c.enricher.Enrich(ctx, item)
		res.Catalog = c.tv.sonarr.Name()
		return c.tv.HandleEpisode(ctx, item, res)
	case models.KindSeason:
		c.enricher.Enrich(ctx, item)
		res.Catalog = c.tv.sonarr.Name()
		return c.tv.HandleSeason(ctx, item, res)
	case models.KindTVShow:
		res.Catalog = c.tv.sonarr.Name()
		return c.tv.HandleShow(ctx, item, res)
	case models.KindMovie:
		res.Catalog = c.movies.radarr.Name()
		return c.movies.HandleMovie(ctx, item, res)
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrMalformedEvent, item.Kind())
	}
}

func (c *EventController) recordHistory(item *models.MediaItem, res *Result) {
	if c.db == nil {
		return
	}

	record := &models.DeletionRecord{
		Kind:        item.Kind(),
		Title:       item.Title(),
		ExternalIDs: item.ExternalIDs(),
		Catalog:     res.Catalog,
		Outcome:     res.Outcome,
		Reason:      res.Reason,
		MatchMethod: res.Method,
		Actions:     res.Actions,
	}
	if season, ok := item.Season(); ok {
		record.Season = &season
	}
	if episode, ok := item.Episode(); ok {
		record.Episode = &episode
	}

	if err := c.db.CreateDeletionRecord(record); err != nil {
		c.logger.WithError(err).Warn("Failed to record deletion history")
	}
}

func summarize(actions []string) string {
	if len(actions) == 0 {
		return "nothing to do"
	}
	return strings.Join(actions, "; ")
}
