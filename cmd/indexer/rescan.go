package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stablewatch/cngn-indexer/internal/explorer"
	"github.com/stablewatch/cngn-indexer/internal/ledger"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
	"github.com/stablewatch/cngn-indexer/pkg/store/failedtxstore"
)

func newRescanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Retry transactions that exhausted their retry budget in earlier runs",
		Run: func(cmd *cobra.Command, args []string) {
			runRescan()
		},
	}
}

// recordingSink re-records failures into the store and remembers which
// hashes failed again, so only the recovered ones get cleared afterwards.
type recordingSink struct {
	store *failedtxstore.Store

	mu     sync.Mutex
	failed map[string]struct{}
}

func (s *recordingSink) Record(hash, reason string) error {
	s.mu.Lock()
	if s.failed == nil {
		s.failed = make(map[string]struct{})
	}
	s.failed[hash] = struct{}{}
	s.mu.Unlock()
	return s.store.Record(hash, reason)
}

func (s *recordingSink) failedAgain(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[hash]
	return ok
}

func runRescan() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openFailedStore(cfg)
	if store == nil {
		logger.Fatal("Failed-transaction store unavailable")
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		logger.Fatal("List failed transactions", "err", err)
	}
	if len(entries) == 0 {
		logger.Info("No failed transactions to rescan")
		return
	}

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		logger.Fatal("Open ledger failed", "err", err)
	}
	defer led.Close()

	seen, err := ledger.LoadDedupIndex(cfg.Ledger.Path)
	if err != nil {
		logger.Fatal("Resume scan failed", "err", err)
	}

	// Anything already in the ledger slipped through in a later run; just
	// clear it. The rest is safe to reprocess without duplicating rows.
	var hashes []string
	for _, e := range entries {
		if seen.Has(e.Hash) {
			if err := store.Remove(e.Hash); err != nil {
				logger.Warn("Clear recovered hash", "hash", e.Hash, "err", err)
			}
			continue
		}
		hashes = append(hashes, e.Hash)
	}
	if len(hashes) == 0 {
		logger.Info("All recorded failures already present in the ledger")
		return
	}
	logger.Info("Rescanning failed transactions", "count", len(hashes))

	client := explorer.NewClient(explorer.Config{
		BaseURL:           cfg.Explorer.BaseURL,
		APIKey:            cfg.Explorer.APIKey,
		RequestTimeout:    cfg.Explorer.RequestTimeout,
		RequestsPerSecond: cfg.Explorer.RequestsPerSecond,
		BurstSize:         cfg.Explorer.BurstSize,
	})

	sink := &recordingSink{store: store}
	processor := newProcessor(cfg, client, led, newPolicy(cfg)).WithFailureSink(sink)

	stats, err := processor.ProcessBatch(ctx, hashes)
	if err != nil {
		logger.Fatal("Rescan processing failed", "err", err)
	}

	var cleared int
	for _, hash := range hashes {
		if sink.failedAgain(hash) {
			continue
		}
		if err := store.Remove(hash); err != nil {
			logger.Warn("Clear recovered hash", "hash", hash, "err", err)
			continue
		}
		cleared++
	}

	logger.Info("Rescan finished",
		"attempted", stats.Attempted,
		"trades_appended", stats.Produced,
		"still_failing", stats.Dropped,
		"cleared", cleared,
	)
}
