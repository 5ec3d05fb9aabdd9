//
//
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lng-monitor/relay/internal/api"
	"github.com/lng-monitor/relay/internal/catalog"
	"github.com/lng-monitor/relay/internal/config"
	"github.com/lng-monitor/relay/internal/history"
	"github.com/lng-monitor/relay/internal/logging"
	"github.com/lng-monitor/relay/internal/metrics"
	"github.com/lng-monitor/relay/internal/snapshot"
	"github.com/lng-monitor/relay/internal/telemetry"
)

func newServeCmd(load configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hub, the WebSocket transport and the HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs until ctx ends or the listener fails.
func serve(ctx context.Context, cfg *config.Config) error {
	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	log.Printf("Starting telemetry relay v%s", api.Version)

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	log.Printf("Catalog loaded: %d instruments", cat.Len())

	m := metrics.New()

	hub := telemetry.NewHub(&cfg.Hub, snapshot.NewGenerator(cat, cfg.Hub.Seed))
	hub.SetObserver(m)

	server := api.NewServer(hub, cat, cfg.Server)
	server.SetMetrics(m)

	recorderDone := make(chan error, 1)
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := history.NewStore(db, cfg.History.Table)
		if err != nil {
			return err
		}
		if err := store.Init(ctx); err != nil {
			return err
		}
		server.SetHistory(store, cfg.History.QueryLimit)

		recorder := history.NewRecorder(store)
		recorder.SetObserver(m)
		go func() { recorderDone <- recorder.Run(recorderCtx, hub) }()
		log.Printf("History recording to table %s", cfg.History.Table)
	} else {
		recorderDone <- nil
	}

	hub.Start()
	log.Printf("Telemetry hub started, tick %v", cfg.Hub.TickInterval)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Addr)
	}()
	log.Printf("HTTP server listening on %s", cfg.Server.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutdown requested")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("HTTP server failed: %w", err)
			log.Printf("%v", runErr)
		}
	}

	if err := server.Stop(context.Background()); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Stopping the hub closes every socket and ends the recorder
	hub.Stop()
	log.Println("Telemetry hub stopped")

	if err := <-recorderDone; err != nil {
		log.Printf("History recorder ended: %v", err)
	}

	log.Println("Relay shutdown complete")
	return runErr
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Builtin(cfg.Builtin)
	}
	cat, err := catalog.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}
