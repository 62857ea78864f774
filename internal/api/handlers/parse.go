package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/jellyfin"
	"github.com/sirupsen/logrus"
)

// ParseHandler shows how a webhook payload would be interpreted, without touching any catalog
type ParseHandler struct {
	logger *logrus.Logger
}

// NewParseHandler creates a new parse handler
func NewParseHandler(logger *logrus.Logger) *ParseHandler {
	return &ParseHandler{logger: logger}
}

// ParseResponse describes the parsed item
type ParseResponse struct {
	IsRemoval   bool               `json:"is_removal"`
	Valid       bool               `json:"valid"`
	Error       string             `json:"error,omitempty"`
	Kind        models.MediaKind   `json:"kind,omitempty"`
	Title       string             `json:"title,omitempty"`
	Season      *int               `json:"season,omitempty"`
	Episode     *int               `json:"episode,omitempty"`
	Year        int                `json:"year,omitempty"`
	ExternalIDs models.ExternalIDs `json:"external_ids"`
	Display     string             `json:"display,omitempty"`
}

// ServeHTTP handles the parse endpoint
func (h *ParseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload jellyfin.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WithError(err).Debug("Failed to decode parse payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	response := ParseResponse{IsRemoval: payload.IsRemoval()}
	item, err := payload.ToMediaItem()
	if err != nil {
		response.Error = err.Error()
		writeJSON(w, http.StatusOK, response)
		return
	}

	response.Valid = true
	response.Kind = item.Kind()
	response.Title = item.Title()
	response.Year = item.Year()
	response.ExternalIDs = item.ExternalIDs()
	response.Display = item.String()
	if season, ok := item.Season(); ok {
		response.Season = &season
	}
	if episode, ok := item.Episode(); ok {
		response.Episode = &episode
	}

	writeJSON(w, http.StatusOK, response)
}
