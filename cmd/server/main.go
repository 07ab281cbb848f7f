// Command server runs the study-session backend: an HTTP API over SQLite
// that manages study sessions, ingests PDF material through a vision model,
// maintains a revisioned study plan, and serves per-topic chats.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caky/go-study-backend/internal/config"
	httpapi "github.com/caky/go-study-backend/internal/http"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/observability"
	"github.com/caky/go-study-backend/internal/repo"
	"github.com/caky/go-study-backend/internal/storage"
	"github.com/caky/go-study-backend/internal/sysutil"
	"github.com/caky/go-study-backend/internal/tasks"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Best-effort: local development convenience only.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	pool := tasks.NewPool(cfg.Ingest.JobTimeout)

	deps := httpapi.Deps{
		DB:      db,
		Store:   storage.NewClient(cfg.Storage.BaseURL, cfg.Storage.Bucket, cfg.Storage.ServiceKey),
		LLM:     llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey),
		Spawner: pool,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Let in-flight extraction and welcome jobs finish before closing the DB.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background jobs did not drain in time")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}
