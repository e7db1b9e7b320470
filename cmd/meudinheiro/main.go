package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"meudinheiro/internal/app"
	"meudinheiro/internal/backend"
	"meudinheiro/internal/cli"
	"meudinheiro/internal/config"
	apphttp "meudinheiro/internal/http"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
	"meudinheiro/internal/parser"
	"meudinheiro/internal/prefs"
)

const (
	parseCacheSize = 256
	parseCacheTTL  = time.Hour
	maxSessions    = 1000
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg, true)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	var textParser parser.Service
	gemini, err := parser.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	switch {
	case errors.Is(err, parser.ErrNotConfigured):
		logger.Info("Text parsing disabled - no GEMINI_API_KEY provided")
	case err != nil:
		logger.Error("Failed to initialize Gemini client, text parsing disabled", log.FieldError, err)
	default:
		textParser = parser.NewCached(gemini, parseCacheSize, parseCacheTTL, m)
		logger.Info("Text parsing enabled", "model", cfg.GeminiModel)
	}

	preferences, err := prefs.Open(cfg.PreferencesPath)
	if err != nil {
		logger.Error("Failed to open preferences", "path", cfg.PreferencesPath, log.FieldError, err)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		NewController: func() *app.Controller {
			opts := []app.Option{
				app.WithLogger(logger),
				app.WithMetrics(m),
				app.WithSaveDelay(cfg.SaveDebounce),
			}
			if textParser != nil {
				opts = append(opts, app.WithParser(textParser))
			}
			return app.NewController(store.Store, opts...)
		},
		Preferences:        preferences,
		Metrics:            m,
		Logger:             logger,
		Ready:              store.Ready,
		SessionTTL:         cfg.SessionTTL,
		MaxSessions:        maxSessions,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	if cfg.JWTSecret != "" {
		deps.Verifier = identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		logger.Info("Token sign-in disabled - no JWT_SECRET provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting meudinheiro server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
