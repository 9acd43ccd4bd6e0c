package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/controllers"
	"github.com/kaminuma/lifelog-insight-service/internal/middleware"
	"github.com/kaminuma/lifelog-insight-service/internal/models"
	"github.com/kaminuma/lifelog-insight-service/internal/services"
)

type routerDeps struct {
	registry  *services.Registry
	collector *services.Collector
	kv        models.KVStore
	db        *models.Database
	logger    *zap.Logger
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	insights := controllers.NewInsightsController(deps.registry, deps.kv, deps.logger)
	metrics := controllers.NewMetricsController(deps.collector)
	health := controllers.NewHealthController(deps.db)

	r.Get("/healthz", health.Get)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/insights", insights.PostAnalyze)
		r.Get("/insights/config", insights.GetConfig)
		r.Put("/insights/config", insights.PutConfig)
		r.Get("/backends", insights.GetBackends)

		r.Get("/metrics", metrics.GetEntries)
		r.Get("/metrics/stats", metrics.GetStats)
		r.Get("/metrics/export", metrics.ExportCSV)
		r.Delete("/metrics", metrics.Clear)
	})

	return r
}
