package controllers

import (
	"net/http"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// HealthController answers liveness checks.
type HealthController struct {
	db *models.Database
}

func NewHealthController(db *models.Database) *HealthController {
	return &HealthController{db: db}
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	if c.db != nil {
		if err := c.db.Health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
