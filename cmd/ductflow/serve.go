package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ductflow/internal/handler"
	"ductflow/internal/hub"
	"ductflow/internal/loader"
	"ductflow/internal/service"
	"ductflow/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		watch []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if len(watch) > 0 {
				a.cfg.Watch.Enabled = true
				a.cfg.Watch.Paths = append(a.cfg.Watch.Paths, watch...)
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config, :3000)")
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "network files to import and reload on change")

	return cmd
}

// serve runs the HTTP server, the SSE hub and the optional file watcher
// until ctx is cancelled or one of them fails
func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	bus := service.NewEventBus()

	networks, airflowSvc, closeDB, err := a.openServices(bus)
	if err != nil {
		return err
	}
	defer closeDB()

	sseHub := hub.New(logger)
	eventChan := make(chan service.Event, 100)
	bus.Subscribe(eventChan)
	defer bus.Unsubscribe(eventChan)

	router := handler.NewRouter(
		handler.NewNetworkHandler(networks, airflowSvc, logger),
		sseHub,
		logger,
	)

	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		hub.Forward[service.Event](gctx, sseHub, eventChan)
		return nil
	})

	if a.cfg.Watch.Enabled && len(a.cfg.Watch.Paths) > 0 {
		reload := func(path string) {
			doc, err := loader.LoadFile(path)
			if err != nil {
				logger.Error("failed to reload network", "path", path, "error", err)
				return
			}
			if _, err := networks.ImportDocument(gctx, doc); err != nil {
				logger.Error("failed to store network", "path", path, "error", err)
			}
		}
		for _, path := range a.cfg.Watch.Paths {
			reload(path)
		}

		w := watcher.New(a.cfg.Watch.Paths, reload).
			WithDebounce(a.cfg.Watch.Debounce.Duration()).
			WithLogger(logger)
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server listening", "addr", a.cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", "sse_clients", sseHub.ClientCount())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
