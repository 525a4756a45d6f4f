package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"marketpay-backend/internal/config"
	"marketpay-backend/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Error("close store", "error", err)
		}
	}()
	if err := a.withProvider(); err != nil {
		return err
	}
	fees, err := a.fees()
	if err != nil {
		return fmt.Errorf("fee policy: %w", err)
	}
	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	if cfg.Stripe.WebhookSecret == "" {
		a.log.Warn("stripe webhook secret not set, all webhook deliveries will be rejected")
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(cfg, server.Services{
		Orders:   a.orderService(notifier),
		Payments: a.paymentService(fees),
		Webhooks: a.webhookService(),
		Sellers:  a.sellerService(),
		Ping:     a.ping,
	}, a.log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "env", cfg.Env, "port", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("server exited")
	return nil
}
