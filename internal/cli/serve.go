package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-content-dedup/internal/http"
	"github.com/tbourn/go-content-dedup/internal/observability"
	"github.com/tbourn/go-content-dedup/internal/retention"
	"github.com/tbourn/go-content-dedup/internal/services"
)

const shutdownTimeout = 15 * time.Second

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the retention janitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve runs until ctx is cancelled or the listener fails, then drains.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, a.version)
	if err != nil {
		return err
	}

	svc, err := a.openStore()
	if err != nil {
		_ = shutdownOTel(context.Background())
		return err
	}
	if err := observability.InstrumentStore(svc.DB, cfg.OTEL); err != nil {
		log.Warn().Err(err).Msg("store tracing disabled")
	}
	idem := services.NewIdempotencyService(svc.DB, cfg.IdempotencyTTL)

	janitor, err := retention.New(svc, cfg.RetentionDays, cfg.PurgeSchedule)
	if err != nil {
		_ = svc.Close()
		_ = shutdownOTel(context.Background())
		return err
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, svc, idem, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	janitor.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DBPath).
			Int("window_days", cfg.WindowDays).
			Int("retention_days", cfg.RetentionDays).
			Str("version", a.version).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("http server failed")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	janitor.Stop(sctx)
	if err := svc.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
	return serveErr
}
