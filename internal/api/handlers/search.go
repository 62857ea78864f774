package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/amaumene/deleterr/internal/controllers"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
)

// SearchRunner runs the missing item search
type SearchRunner interface {
	RunAll(ctx context.Context) ([]*models.SearchReport, error)
	Running() bool
}

// SearchHandler triggers a missing item search in the background
type SearchHandler struct {
	ctx    context.Context
	search SearchRunner
	logger *logrus.Logger

	wg sync.WaitGroup
}

// NewSearchHandler creates a new search handler. Runs started here stop when ctx is cancelled.
func NewSearchHandler(ctx context.Context, search SearchRunner, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		ctx:    ctx,
		search: search,
		logger: logger,
	}
}

// ServeHTTP handles the search trigger endpoint
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.search.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "running"})
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_, err := h.search.RunAll(h.ctx)
		switch {
		case errors.Is(err, controllers.ErrSearchInProgress):
			h.logger.Info("Search already running, manual trigger ignored")
		case err != nil:
			h.logger.WithError(err).Error("Manual search failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Wait blocks until every search started by this handler has returned
func (h *SearchHandler) Wait() {
	h.wg.Wait()
}
