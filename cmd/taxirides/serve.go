package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosy/taxirides/internal/api"
	"github.com/rosy/taxirides/internal/cache"
	"github.com/rosy/taxirides/internal/config"
	"github.com/rosy/taxirides/internal/logging"
	"github.com/rosy/taxirides/internal/metrics"
	"github.com/rosy/taxirides/internal/observability"
	"github.com/rosy/taxirides/internal/rides"
	"github.com/rosy/taxirides/internal/store"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rides HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.Server.LogFormat, cfg.Server.LogLevel)
			metrics.Init("taxirides")

			ctx := cmd.Context()

			if err := observability.Init(ctx, observability.Config{
				Enabled:    cfg.Tracing.Enabled,
				Endpoint:   cfg.Tracing.Endpoint,
				SampleRate: cfg.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			st, err := store.NewPostgresStore(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer st.Close()

			rc := cache.NewRedisCache(cache.RedisCacheConfig{
				Addr:      cfg.Redis.Addr,
				Password:  cfg.Redis.Password,
				DB:        cfg.Redis.DB,
				KeyPrefix: cfg.Redis.KeyPrefix,
			})
			defer rc.Close()

			svc := rides.New(st, rc, cfg.Cache.TTL.Std())

			mux := http.NewServeMux()
			handler := &api.Handler{Service: svc, Store: st, Cache: rc}
			handler.RegisterRoutes(mux)

			httpServer := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: api.RequestLogger(observability.HTTPMiddleware(mux)),
			}

			errCh := make(chan error, 1)
			go func() {
				logging.Op().Info("rides API started", "addr", cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logging.Op().Info("shutdown signal received", "signal", sig.String())
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")

	return cmd
}
