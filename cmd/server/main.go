package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/config"
	"github.com/kaminuma/lifelog-insight-service/internal/models"
	"github.com/kaminuma/lifelog-insight-service/internal/services"
	"github.com/kaminuma/lifelog-insight-service/migrations"
)

func main() {
	cfg := config.MustLoad()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.IsProduction() {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup the database ---------------
	db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := models.MigrateFS(cfg.Database.URL, migrations.FS, "."); err != nil {
		return err
	}

	// Setup services ---------------
	kv := models.NewKVService(db.Pool)

	collector := services.NewCollector(kv, cfg.Metrics.StorageKey, cfg.Metrics.MaxEntries, logger)
	collector.Load(ctx)

	authEvents := services.NewAuthEvents()
	defer authEvents.Close()
	go watchAuthEvents(authEvents, logger)

	retryTransport := &services.RetryTransport{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Logger:         logger,
	}
	httpClient := &http.Client{
		Transport: retryTransport,
		Timeout:   90 * time.Second,
	}

	gemini := services.NewGeminiBackend(services.GeminiOptions{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		HTTPClient:      httpClient,
		Collector:       collector,
		AuthEvents:      authEvents,
		Logger:          logger,
	})

	proxy := services.NewProxyBackend(services.ProxyOptions{
		BaseURL:    cfg.Proxy.BaseURL,
		Tokens:     services.NewStaticTokenProvider(cfg.Proxy.BearerToken, cfg.Proxy.UserID),
		HTTPClient: httpClient,
		Collector:  collector,
		AuthEvents: authEvents,
		Logger:     logger,
	})

	defaultKind := models.BackendGemini
	if cfg.Gemini.APIKey == "" {
		defaultKind = models.BackendProxy
	}
	registry := services.NewRegistry(defaultKind, gemini, proxy)

	// Setup router and serve ---------------
	router := newRouter(routerDeps{
		registry:  registry,
		collector: collector,
		kv:        kv,
		db:        db,
		logger:    logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("default_backend", string(defaultKind)))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// watchAuthEvents logs credential rejections so operators notice expired
// tokens without the adapters holding a global callback.
func watchAuthEvents(events *services.AuthEvents, logger *zap.Logger) {
	for ev := range events.Subscribe() {
		logger.Warn("backend reported an authentication failure",
			zap.String("backend", string(ev.Backend)),
			zap.Int("status", ev.StatusCode))
	}
}
