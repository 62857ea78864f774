package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const healthCacheKey = "services"

// Checker tests the connection to one downstream service
type Checker func(ctx context.Context) bool

// HealthHandler handles health check requests.
// Connection results are cached so frequent probes do not hammer the services.
type HealthHandler struct {
	checks  map[string]Checker
	cache   *cache.Cache
	timeout time.Duration
	logger  *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks map[string]Checker, ttl, timeout time.Duration, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		cache:   cache.New(ttl, 2*ttl),
		timeout: timeout,
		logger:  logger,
	}
}

// HealthResponse reports overall and per-service health
type HealthResponse struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := h.services(r.Context())

	response := HealthResponse{Status: "healthy", Services: services}
	status := http.StatusOK
	for name, ok := range services {
		if !ok {
			h.logger.WithField("service", name).Warn("Service unreachable")
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

func (h *HealthHandler) services(ctx context.Context) map[string]bool {
	if cached, ok := h.cache.Get(healthCacheKey); ok {
		return cached.(map[string]bool)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]bool, len(h.checks))
	g, ctx := errgroup.WithContext(ctx)
	for name, check := range h.checks {
		name, check := name, check
		g.Go(func() error {
			ok := check(ctx)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	h.cache.SetDefault(healthCacheKey, results)
	return results
}
