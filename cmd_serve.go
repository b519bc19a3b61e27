package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/johnson2500/retail-shopping-assistant/memory/api"
	"github.com/johnson2500/retail-shopping-assistant/memory/store"
	configx "github.com/johnson2500/retail-shopping-assistant/pkg/config"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	metricsx "github.com/johnson2500/retail-shopping-assistant/pkg/metrics"
	redisx "github.com/johnson2500/retail-shopping-assistant/pkg/redis"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the memory service",
	Long:  `Serves per-user carts and dialogue context over HTTP, backed by Redis or Postgres.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverCfg, err := configx.New[api.Config]("SERVER")
		if err != nil {
			return err
		}
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			serverCfg.Backend = backend
		}

		repo, err := openRepository(ctx, serverCfg.Backend)
		if err != nil {
			return err
		}
		defer repo.Close()

		recorder := metricsx.New()
		srv := &http.Server{
			Addr:              serverCfg.Addr,
			Handler:           api.NewHandler(repo, api.WithMetrics(recorder)),
			ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logx.Info().Str("addr", srv.Addr).Str("backend", serverCfg.Backend).Msg("memory service listening")
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("memory service: %w", err)
		case <-ctx.Done():
			logx.Info().Msg("shutting down memory service")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Warn().Err(err).Dur("timeout", serverCfg.ShutdownTimeout).Msg("graceful shutdown did not complete")
			return srv.Close()
		}
		return nil
	},
}

func openRepository(ctx context.Context, backend string) (store.Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "redis":
		cfg, err := configx.New[redisx.Config]("REDIS")
		if err != nil {
			return nil, err
		}
		client, err := cfg.New(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewRedisRepository(client, store.WithKeyPrefix(cfg.KeyPrefix)), nil
	case "postgres":
		cfg, err := configx.New[store.DatabaseConfig]("DATABASE")
		if err != nil {
			return nil, err
		}
		return store.OpenBunRepository(ctx, *cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q (want redis or postgres)", backend)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("backend", "", "Storage backend: redis or postgres (overrides SERVER_BACKEND)")
}
