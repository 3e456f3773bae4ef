package handlers

import (
	"net/http"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/metrics"
	"github.com/ramonehamilton/mtg-binder/internal/version"
)

// QueueDepth reports how many calls wait at the catalog gate.
type QueueDepth interface {
	Pending() int
}

// SystemHandler handles health and status requests.
type SystemHandler struct {
	queue   QueueDepth
	metrics *metrics.Catalog
}

// NewSystemHandler creates a new SystemHandler. Either argument may be nil.
func NewSystemHandler(queue QueueDepth, m *metrics.Catalog) *SystemHandler {
	return &SystemHandler{queue: queue, metrics: m}
}

// Status is the body of GET /status.
type Status struct {
	Service string                   `json:"service"`
	Version string                   `json:"version"`
	Queue   int                      `json:"catalog_queue_depth"`
	Catalog *metrics.CatalogSnapshot `json:"catalog,omitempty"`
}

// Health answers liveness probes.
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}

// GetStatus reports catalog gate latency percentiles and queue depth.
func (h *SystemHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	status := Status{Service: version.Service, Version: version.GetVersion()}
	if h.queue != nil {
		status.Queue = h.queue.Pending()
	}
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		status.Catalog = &snap
	}
	response.Success(w, status)
}
