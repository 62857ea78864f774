package handlers

import (
	"errors"
	"net/http"

	"github.com/amaumene/deleterr/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

const recentEventsLimit = 20

// StatusHandler handles status requests
type StatusHandler struct {
	db       *models.Database
	catalogs []string
	logger   *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, catalogs []string, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:       db,
		catalogs: catalogs,
		logger:   logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalEvents    int                             `json:"total_events"`
	Succeeded      int                             `json:"succeeded"`
	Failed         int                             `json:"failed"`
	Ignored        int                             `json:"ignored"`
	EventsByKind   map[string]int                  `json:"events_by_kind"`
	EventsByMethod map[string]int                  `json:"events_by_match_method"`
	Recent         []*models.DeletionRecord        `json:"recent"`
	LastSearch     map[string]*models.SearchReport `json:"last_search"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.db.GetAllDeletionRecords()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get deletion records")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalEvents:    len(records),
		EventsByKind:   make(map[string]int),
		EventsByMethod: make(map[string]int),
		LastSearch:     make(map[string]*models.SearchReport),
	}

	for _, record := range records {
		// Count by outcome
		switch record.Outcome {
		case models.OutcomeSuccess:
			response.Succeeded++
		case models.OutcomeFailed:
			response.Failed++
		case models.OutcomeIgnored:
			response.Ignored++
		}

		// Count by kind
		response.EventsByKind[string(record.Kind)]++

		// Count by match method
		response.EventsByMethod[string(record.MatchMethod)]++
	}

	response.Recent, err = h.db.GetRecentDeletionRecords(recentEventsLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent deletion records")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	for _, name := range h.catalogs {
		report, err := h.db.GetLatestSearchReport(name)
		if errors.Is(err, bolthold.ErrNotFound) {
			continue
		}
		if err != nil {
			h.logger.WithError(err).WithField("catalog", name).Error("Failed to get search report")
			continue
		}
		response.LastSearch[name] = report
	}

	writeJSON(w, http.StatusOK, response)
}
