// Command server runs the commerce backend HTTP API.
//
// Startup order: load .env (best effort), load and validate configuration,
// configure logging and tracing, connect the record store, mount the Gin
// router, and serve until SIGINT/SIGTERM triggers a graceful shutdown.
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

	"github.com/tbourn/go-commerce-backend/internal/config"
	httpapi "github.com/tbourn/go-commerce-backend/internal/http"
	"github.com/tbourn/go-commerce-backend/internal/observability"
	"github.com/tbourn/go-commerce-backend/internal/store"
	"github.com/tbourn/go-commerce-backend/internal/sysutil"
)

// version is stamped into traces; overridable via -ldflags at build time.
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	st := newStore(cfg)
	if err := st.Connect(ctx); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("connect store")
	}
	defer func() { _ = st.Close() }()

	r := gin.New()
	httpapi.RegisterRoutes(r, st, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.StoreDriver).Msg("commerce backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

// newStore selects the record store driver from configuration. Validation
// has already constrained StoreDriver to memory|sqlite.
func newStore(cfg config.Config) store.Store {
	if cfg.StoreDriver == "sqlite" {
		return store.NewSQLiteStore(cfg.DBPath)
	}
	return store.NewMemStore()
}
