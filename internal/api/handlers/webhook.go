package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/amaumene/deleterr/internal/controllers"
	"github.com/amaumene/deleterr/internal/models"
	"github.com/amaumene/deleterr/internal/services/jellyfin"
	"github.com/sirupsen/logrus"
)

// EventProcessor handles one decoded webhook notification
type EventProcessor interface {
	HandleWebhook(ctx context.Context, payload *jellyfin.WebhookPayload) *controllers.Result
}

// WebhookHandler handles Jellyfin deletion notifications
type WebhookHandler struct {
	events EventProcessor
	logger *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(events EventProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		events: events,
		logger: logger,
	}
}

// WebhookResponse is returned for every notification
type WebhookResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// ServeHTTP handles the webhook endpoint
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload jellyfin.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WithError(err).Error("Failed to decode webhook payload")
		writeJSON(w, http.StatusBadRequest, WebhookResponse{Status: "error", Message: "invalid payload"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"notification": payload.NotificationType,
		"item_type":    payload.ItemType,
		"name":         payload.Name,
	}).Info("Received Jellyfin webhook")

	res := h.events.HandleWebhook(r.Context(), &payload)

	response := WebhookResponse{Message: res.Reason, Actions: res.Actions}
	status := http.StatusOK
	switch {
	case res.Malformed():
		response.Status = "error"
		status = http.StatusBadRequest
	case !res.Success:
		response.Status = "error"
		status = http.StatusInternalServerError
	case res.Outcome == models.OutcomeIgnored:
		response.Status = "ignored"
	default:
		response.Status = "success"
	}

	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
