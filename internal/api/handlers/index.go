package handlers

import (
	"net/http"
)

// IndexHandler describes the service and its endpoints
type IndexHandler struct {
	version   string
	endpoints map[string]string
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(version string, endpoints map[string]string) *IndexHandler {
	return &IndexHandler{version: version, endpoints: endpoints}
}

// ServeHTTP handles the root endpoint
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "deleterr",
		"version":   h.version,
		"endpoints": h.endpoints,
	})
}
