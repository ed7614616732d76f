// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auticare/clipscore/pkg/metrics"
)

// ModelStatus is the slice of Dependencies the health check needs.
type ModelStatus interface {
	ModelLoaded() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	status ModelStatus
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(status ModelStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HandleHealth handles GET /healthz requests. The endpoint reports healthy
// as soon as the process serves; model readiness is a separate field so
// orchestrators can distinguish liveness from scoring readiness.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		ModelLoaded: h.status.ModelLoaded(),
	})
}

// MetricsHandler serves the custom Prometheus registry on GET /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
