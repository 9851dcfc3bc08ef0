package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"course-eligibility/internal/api"
	"course-eligibility/internal/eligibility"
	"course-eligibility/internal/metrics"
)

func serveCmd(a *app) *cobra.Command {
	var (
		requestTimeout  time.Duration
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the eligibility HTTP API and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			cat, closeCache := a.readCatalog(ctx, store)
			defer closeCache()

			if a.cfg.SlogLevel() != slog.LevelDebug {
				gin.SetMode(gin.ReleaseMode)
			}

			rec := metrics.New()
			router := api.NewRouter(&api.Server{
				Engine:  eligibility.NewEngine(cat, a.logger, rec, a.cfg.Engine.MaxWorkers),
				Catalog: cat,
				Metrics: rec,
				Logger:  a.logger,
				Timeout: requestTimeout,
			})

			srv := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", srv.Addr, "backend", a.cfg.Catalog.Backend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("serve: shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "Upper bound for one determination")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests")
	return cmd
}
