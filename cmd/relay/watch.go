//
//
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lng-monitor/relay/internal/apiclient"
	"github.com/lng-monitor/relay/internal/config"
	"github.com/lng-monitor/relay/internal/fetchcache"
	"github.com/lng-monitor/relay/internal/metrics"
)

type watchOptions struct {
	path     string
	interval time.Duration
	ttl      time.Duration
	count    int
	metrics  *metrics.Metrics
}

func newWatchCmd(load configLoader) *cobra.Command {
	var (
		opts        watchOptions
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll an API endpoint through the response cache and print each result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				opts.interval = cfg.Client.PollInterval
			}
			if !cmd.Flags().Changed("ttl") {
				opts.ttl = cfg.Client.CacheTTL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.metrics = metrics.New()
			if metricsAddr != "" {
				metricsServer := &http.Server{Addr: metricsAddr, Handler: opts.metrics.Handler()}
				go func() {
					if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Printf("watch: metrics listener failed: %v", err)
					}
				}()
				defer metricsServer.Close()
				log.Printf("watch: serving metrics on %s", metricsAddr)
			}

			return watch(ctx, cmd.OutOrStdout(), cfg.Client, opts)
		},
	}
	cmd.Flags().StringVar(&opts.path, "path", "/realtime/equipment-list", "endpoint path below the client base URL")
	cmd.Flags().DurationVar(&opts.interval, "interval", fetchcache.DefaultPollInterval, "pause between polls (overrides client.pollInterval)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "cache lifetime of a result (overrides client.cacheTtl)")
	cmd.Flags().IntVar(&opts.count, "count", 0, "stop after this many results; 0 polls until interrupted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve cache metrics on this address")
	return cmd
}

// watch prints one line of JSON per poll result until ctx ends or count is reached.
func watch(ctx context.Context, out io.Writer, cfg config.ClientConfig, opts watchOptions) error {
	client, err := apiclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return err
	}
	var cacheOpts []fetchcache.Option
	if opts.metrics != nil {
		cacheOpts = append(cacheOpts, fetchcache.WithObserver(opts.metrics))
	}
	cache := fetchcache.New(cacheOpts...)
	fetch := client.Fetcher(opts.path, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan any)
	handle := fetchcache.Poll(ctx, func(ctx context.Context) (any, error) {
		return cache.Get(ctx, opts.path, fetch, opts.ttl)
	}, opts.interval, func(v any) {
		select {
		case results <- v:
		case <-ctx.Done():
		}
	})
	defer func() {
		handle.Cancel()
		cancel()
		<-handle.Done()
		stats := cache.Stats()
		log.Printf("watch: %d hits, %d misses, %d fetches, %d fetch errors",
			stats.Hits, stats.Misses, stats.Fetches, stats.FetchErrors)
	}()

	received := 0
	for {
		select {
		case v := <-results:
			if err := printResult(out, v); err != nil {
				return err
			}
			received++
			if opts.count > 0 && received >= opts.count {
				return nil
			}
		case err := <-handle.Errors():
			log.Printf("watch: %s: %v", opts.path, err)
		case <-ctx.Done():
			return nil
		}
	}
}

func printResult(out io.Writer, v any) error {
	raw, ok := v.(json.RawMessage)
	if !ok {
		return fmt.Errorf("unexpected result type %T", v)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := out.Write(buf.Bytes())
	return err
}
