package controllers

import (
	"net/http"
	"strconv"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
	"github.com/kaminuma/lifelog-insight-service/internal/services"
)

// MetricsController exposes the call metrics collector over HTTP.
type MetricsController struct {
	collector *services.Collector
}

func NewMetricsController(collector *services.Collector) *MetricsController {
	return &MetricsController{collector: collector}
}

// GetEntries lists recorded entries, most recent first.
func (c *MetricsController) GetEntries(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, c.collector.Entries())
}

// statsResponse bundles the per-backend comparison with the top errors.
type statsResponse struct {
	Backends  []services.BackendStats `json:"backends"`
	TopErrors []services.ErrorCount   `json:"top_errors"`
}

// GetStats returns per-backend comparison statistics and the most frequent
// failure kinds.
func (c *MetricsController) GetStats(w http.ResponseWriter, r *http.Request) {
	n := 5
	if raw := r.URL.Query().Get("top_errors"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	respondJSON(w, http.StatusOK, statsResponse{
		Backends:  c.collector.Stats(),
		TopErrors: c.collector.TopErrors(n),
	})
}

// ExportCSV streams the metric log as a CSV download.
func (c *MetricsController) ExportCSV(w http.ResponseWriter, _ *http.Request) {
	data, err := c.collector.ExportCSV()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to export metrics", string(models.ErrKindUnknown))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ai_call_metrics.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(data))
}

// Clear resets the in-memory log and the persisted snapshot.
func (c *MetricsController) Clear(w http.ResponseWriter, r *http.Request) {
	c.collector.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
