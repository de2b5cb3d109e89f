package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/stablewatch/cngn-indexer/internal/config"
	"github.com/stablewatch/cngn-indexer/internal/events"
	"github.com/stablewatch/cngn-indexer/internal/explorer"
	"github.com/stablewatch/cngn-indexer/internal/ledger"
	"github.com/stablewatch/cngn-indexer/internal/pipeline"
	"github.com/stablewatch/cngn-indexer/pkg/infra"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
	"github.com/stablewatch/cngn-indexer/pkg/retry"
	"github.com/stablewatch/cngn-indexer/pkg/store/failedtxstore"
)

func newIngestCmd() *cobra.Command {
	var maxNew int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull new transfers from the explorer and append enriched trades to the ledger",
		Run: func(cmd *cobra.Command, args []string) {
			runIngest(maxNew)
		},
	}
	cmd.Flags().
		IntVar(&maxNew, "max-new", 0, "stop after this many new transactions (0 = until exhausted)")
	return cmd
}

func runIngest(maxNew int) {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := explorer.NewClient(explorer.Config{
		BaseURL:           cfg.Explorer.BaseURL,
		APIKey:            cfg.Explorer.APIKey,
		RequestTimeout:    cfg.Explorer.RequestTimeout,
		RequestsPerSecond: cfg.Explorer.RequestsPerSecond,
		BurstSize:         cfg.Explorer.BurstSize,
	})

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		logger.Fatal("Open ledger failed", "err", err)
	}
	defer led.Close()

	seen, err := ledger.LoadDedupIndex(cfg.Ledger.Path)
	if err != nil {
		logger.Fatal("Resume scan failed", "err", err)
	}
	logger.Info("Resume scan complete", "known_hashes", seen.Len())

	policy := newPolicy(cfg)
	fetcher := pipeline.NewDeltaFetcher(client, cfg.Token.Address, seen, policy)
	processor := newProcessor(cfg, client, led, policy)

	failed := openFailedStore(cfg)
	if failed != nil {
		defer failed.Close()
		processor.WithFailureSink(failed)
	}

	if cfg.NATS.Enabled {
		emitter := connectEmitter(cfg)
		if emitter != nil {
			defer emitter.Close()
			processor.WithEmitter(emitter)
		}
	}

	var totalNew, totalTrades, totalDropped int
	for {
		target := cfg.Pipeline.BatchSize
		if maxNew > 0 && maxNew-totalNew < target {
			target = maxNew - totalNew
		}

		batch, done, err := fetcher.NextBatch(ctx, target)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("Fetch interrupted, next run resumes from the ledger")
				break
			}
			logger.Error("Fetch batch failed", "err", err)
			break
		}

		if len(batch) > 0 {
			stats, err := processor.ProcessBatch(ctx, batch)
			totalNew += stats.Attempted
			totalTrades += stats.Produced
			totalDropped += stats.Dropped
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Processing interrupted, next run resumes from the ledger")
					break
				}
				logger.Fatal("Processing failed", "err", err)
			}
		}

		if done {
			logger.Info("Upstream history exhausted")
			break
		}
		if maxNew > 0 && totalNew >= maxNew {
			logger.Info("Reached max-new limit", "max_new", maxNew)
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info("Ingest finished",
		"new_transactions", totalNew,
		"trades_appended", totalTrades,
		"dropped", totalDropped,
		"known_hashes", seen.Len(),
	)
}

func newPolicy(cfg config.Config) retry.Policy {
	policyCfg := retry.DefaultPolicyConfig()
	policyCfg.MaxAttempts = cfg.Pipeline.MaxAttempts
	return retry.NewPolicy(policyCfg)
}

func newProcessor(
	cfg config.Config,
	client pipeline.DetailFetcher,
	appender pipeline.Appender,
	policy retry.Policy,
) *pipeline.Processor {
	fallbackRate := decimal.Zero
	if cfg.Pricing.FallbackRateUSD != "" {
		var err error
		fallbackRate, err = decimal.NewFromString(cfg.Pricing.FallbackRateUSD)
		if err != nil {
			logger.Fatal("Invalid fallback_rate_usd", "value", cfg.Pricing.FallbackRateUSD, "err", err)
		}
	}

	return pipeline.NewProcessor(
		client,
		pipeline.NewClassifier(cfg.Token.Address, cfg.Pipeline.PoolPatterns...),
		pipeline.NewValuator(fallbackRate),
		appender,
		policy,
		pipeline.ProcessorConfig{
			Concurrency: cfg.Pipeline.Concurrency,
			WindowPause: cfg.Pipeline.WindowPause,
			Aggregate:   cfg.Pipeline.Aggregate,
		},
	)
}

// openFailedStore opens the badger store, retrying briefly in case the
// previous run's lock has not been released yet. A store failure only costs
// rescan support, so it degrades to a warning.
func openFailedStore(cfg config.Config) *failedtxstore.Store {
	var store *failedtxstore.Store
	err := retry.Constant(func() error {
		var oerr error
		store, oerr = failedtxstore.Open(cfg.FailedStore.Directory)
		return oerr
	}, 2*time.Second, 3)
	if err != nil {
		logger.Warn("Failed-transaction store unavailable, rescan disabled", "err", err)
		return nil
	}
	return store
}

// connectEmitter dials NATS with exponential backoff; the initial connect
// fails fast when the broker is still coming up.
func connectEmitter(cfg config.Config) events.Emitter {
	var conn *nats.Conn
	err := retry.Exponential(func() error {
		var cerr error
		conn, cerr = infra.GetNATSConnection(cfg.NATS.URL)
		return cerr
	}, retry.ExponentialConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  10 * time.Second,
		OnRetry: func(err error, next time.Duration) {
			logger.Warn("NATS connect failed, retrying", "next", next, "err", err)
		},
	})
	if err != nil {
		logger.Warn("NATS unavailable, trade announcements disabled", "url", cfg.NATS.URL, "err", err)
		return nil
	}
	return events.NewNATSEmitter(conn, cfg.NATS.Subject)
}
