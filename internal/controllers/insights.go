package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
	"github.com/kaminuma/lifelog-insight-service/internal/services"
)

// configStorageKey is where the user's preferred analysis configuration is
// cached in the KV store.
const configStorageKey = "analysis_config"

// InsightsController handles analysis requests and config caching.
type InsightsController struct {
	registry *services.Registry
	store    models.KVStore
	validate *validator.Validate
	logger   *zap.Logger
}

func NewInsightsController(registry *services.Registry, store models.KVStore, logger *zap.Logger) *InsightsController {
	return &InsightsController{
		registry: registry,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// analyzeRequest is the inbound DTO for one analysis call. Records travel in
// the request body; record storage itself lives outside this service.
type analyzeRequest struct {
	StartDate   string                  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string                  `json:"end_date" validate:"required,datetime=2006-01-02"`
	MoodRecords []models.MoodRecord     `json:"mood_records" validate:"dive"`
	Activities  []models.ActivityRecord `json:"activities" validate:"dive"`
	Config      models.AnalysisConfig   `json:"config"`
	Backend     string                  `json:"backend,omitempty"`
}

// PostAnalyze runs the full pipeline and returns the InsightResult envelope.
// Pipeline failures are reported inside the envelope with HTTP 200; only
// malformed requests get a non-2xx status.
func (c *InsightsController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	var dto analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", string(models.ErrKindRequest))
		return
	}

	if err := c.validate.Struct(dto); err != nil {
		respondError(w, http.StatusUnprocessableEntity, validationMessage(err), string(models.ErrKindRequest))
		return
	}

	cfg := dto.Config.Normalized()
	if err := cfg.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error(), string(models.ErrKindRequest))
		return
	}

	req, err := services.NewAnalysisRequest(dto.StartDate, dto.EndDate, dto.MoodRecords, dto.Activities)
	if err != nil {
		derr, _ := models.AsDomainError(err)
		status := http.StatusUnprocessableEntity
		if derr != nil && derr.Kind == models.ErrKindInsufficientData {
			status = http.StatusBadRequest
		}
		message := err.Error()
		kind := string(models.ErrKindRequest)
		if derr != nil {
			message = derr.Message
			kind = string(derr.Kind)
		}
		respondError(w, status, message, kind)
		return
	}

	backend, err := c.registry.Select(dto.Backend)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), string(models.ErrKindRequest))
		return
	}

	c.logger.Info("running analysis",
		zap.String("backend", string(backend.Kind())),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
		zap.Int("mood_records", len(req.MoodRecords)),
		zap.Int("activities", len(req.Activities)))

	result := backend.GenerateInsight(r.Context(), req, cfg)
	respondJSON(w, http.StatusOK, result)
}

// GetConfig returns the cached analysis configuration, or the defaults when
// nothing is cached yet. Storage failures degrade to defaults.
func (c *InsightsController) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := models.DefaultAnalysisConfig()

	raw, found, err := c.store.GetString(r.Context(), configStorageKey)
	if err != nil {
		c.logger.Warn("failed to load cached config", zap.Error(err))
	} else if found {
		var cached models.AnalysisConfig
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			cfg = cached.Normalized()
		}
	}

	respondJSON(w, http.StatusOK, cfg)
}

// PutConfig caches the analysis configuration for subsequent sessions.
func (c *InsightsController) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.AnalysisConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", string(models.ErrKindRequest))
		return
	}

	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error(), string(models.ErrKindRequest))
		return
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode configuration", string(models.ErrKindUnknown))
		return
	}
	if err := c.store.PutString(r.Context(), configStorageKey, string(raw)); err != nil {
		c.logger.Warn("failed to cache config", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save configuration", string(models.ErrKindUnknown))
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

// GetBackends reports the configuration status of every strategy so the
// client can offer a meaningful choice.
func (c *InsightsController) GetBackends(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, c.registry.Statuses())
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return "invalid field " + first.Field()
	}
	return "invalid request"
}
