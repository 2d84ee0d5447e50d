package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpHandler "civic-ledger/internal/adapter/http/handler"
	"civic-ledger/internal/adapter/http/middleware"
	"civic-ledger/internal/worker"
	"civic-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the round sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveRun(cmd.Context())
		},
	}
}

func serveRun(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("driver", cfg.Database.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting SUP ledger")

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// A nil *RateLimitStore must not reach the router as a non-nil interface.
	var limiter middleware.Limiter
	if a.limiter != nil {
		limiter = a.limiter
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        a.auth,
		LedgerSvc:      a.ledger,
		TierSvc:        a.tiers,
		Processor:      a.processor,
		VotingSvc:      a.voting,
		CandidateSvc:   a.candidates,
		KYCSvc:         a.kyc,
		Clients:        a.clients,
		SigSvc:         a.signatures,
		NonceStore:     a.nonceStore,
		TokenSvc:       a.tokens,
		RateLimiter:    limiter,
		HealthCheckers: a.health,
		AuditSvc:       a.audit,
		Metrics:        a.metricsHTTP,
		Logger:         logger.Component(log, "http"),
	})

	sweeper := worker.NewRoundSweeper(a.voting, cfg.Ledger.RoundSweepInterval, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
