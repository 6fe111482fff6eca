package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/hookmeta/internal/config"
	"github.com/gezibash/hookmeta/internal/observability"
	"github.com/gezibash/hookmeta/internal/snapshot"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish resolved bindings over HTTP and reload on change",
		Long: `Build a snapshot from the manifests and serve it on the admin address
next to /metrics and /health:

  GET  /bindings[?endpoint=id]   current snapshot as JSON
  POST /reload                   rebuild from the manifests
  GET  /history[?id=x|limit=n]   archived snapshots, with --archive

With --watch, manifests are rebuilt whenever a file under the root changes.
A failed rebuild is logged and the previous snapshot stays published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
	config.BindServeFlags(cmd, v)
	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	e, err := setup(cmd, v)
	if err != nil {
		return err
	}
	cfg := e.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, observability.ObsConfig{
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPProtocol:   cfg.Observability.OTLPProtocol,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	logger := obs.Logger
	e.logger = logger

	store := snapshot.NewStore(e.builder(obs.Metrics), e.source)
	routes := []observability.Route{
		{Pattern: "/bindings", Handler: snapshot.BindingsHandler(store)},
		{Pattern: "/reload", Handler: snapshot.ReloadHandler(store)},
	}

	arch, err := e.openArchive(ctx)
	if err != nil {
		_ = obs.Close(context.Background())
		return fmt.Errorf("open archive: %w", err)
	}
	if arch != nil {
		defer arch.Close() //nolint:errcheck
		store.OnPublish(snapshot.Recorder(arch, logger))
		routes = append(routes, observability.Route{Pattern: "/history", Handler: snapshot.HistoryHandler(arch)})
		logger.InfoContext(ctx, "archiving snapshots", "backend", cfg.Archive.Backend)
	}

	if _, err := store.Reload(ctx); err != nil {
		// keep serving so /bindings can report the failure and a fixed
		// manifest can be picked up by the watcher or /reload
		logger.ErrorContext(ctx, "initial snapshot failed", "error", err)
	}

	obs.ServeMetrics(ctx, cfg.Observability.MetricsAddr, routes...)

	errCh := make(chan error, 1)
	if cfg.Serve.Watch {
		w := snapshot.NewWatcher(store, cfg.Manifests.Root, e.source.Match, cfg.Serve.Debounce)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("watch manifests: %w", err)
			}
		}()
	}

	logger.InfoContext(ctx, "serving", "metrics", cfg.Observability.MetricsAddr,
		"root", cfg.Manifests.Root, "watch", cfg.Serve.Watch)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := obs.Close(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return runErr
}
