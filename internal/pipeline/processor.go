package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stablewatch/cngn-indexer/internal/explorer"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
	"github.com/stablewatch/cngn-indexer/pkg/retry"
)

// DetailFetcher is the slice of the explorer client the processor needs.
type DetailFetcher interface {
	Transaction(ctx context.Context, hash string) (*explorer.Transaction, error)
	TransactionTokenTransfers(ctx context.Context, hash string) ([]explorer.TokenTransferItem, error)
}

// Appender receives each window's trades in one batched write.
type Appender interface {
	Append(trades []EnrichedTrade) error
}

// FailureSink records items that exhausted their retry budget so a later
// rescan can pick them up.
type FailureSink interface {
	Record(hash, reason string) error
}

// TradeEmitter announces appended trades to downstream consumers.
type TradeEmitter interface {
	EmitTrades(trades []EnrichedTrade) error
}

type ProcessorConfig struct {
	Concurrency int           // window size, max in-flight fetches
	WindowPause time.Duration // fixed pause between windows
	Aggregate   bool          // one net row per transaction instead of one per transfer
}

type Stats struct {
	Attempted int // hashes taken from the batch
	Dropped   int // hashes that produced no output due to failure
	Produced  int // trades appended to the ledger
}

// Processor turns batches of transaction hashes into enriched trades.
// Hashes are processed in fixed windows of at most Concurrency in-flight
// fetches; a window fully joins before the next starts, which bounds peak
// upstream load deterministically. Per-item failures drop that item only;
// only a ledger write failure aborts the run.
type Processor struct {
	client     DetailFetcher
	classifier *Classifier
	valuator   *Valuator
	appender   Appender
	policy     retry.Policy
	failures   FailureSink  // optional
	emitter    TradeEmitter // optional
	cfg        ProcessorConfig
	logger     *slog.Logger
}

func NewProcessor(
	client DetailFetcher,
	classifier *Classifier,
	valuator *Valuator,
	appender Appender,
	policy retry.Policy,
	cfg ProcessorConfig,
) *Processor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 50
	}
	if cfg.WindowPause <= 0 {
		cfg.WindowPause = time.Second
	}
	return &Processor{
		client:     client,
		classifier: classifier,
		valuator:   valuator,
		appender:   appender,
		policy:     policy,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "processor")),
	}
}

// WithFailureSink registers an optional sink for retry-exhausted hashes.
func (p *Processor) WithFailureSink(sink FailureSink) *Processor {
	p.failures = sink
	return p
}

// WithEmitter registers an optional trade announcement channel.
func (p *Processor) WithEmitter(emitter TradeEmitter) *Processor {
	p.emitter = emitter
	return p
}

func (p *Processor) ProcessBatch(ctx context.Context, hashes []string) (Stats, error) {
	var stats Stats

	for start := 0; start < len(hashes); start += p.cfg.Concurrency {
		end := min(start+p.cfg.Concurrency, len(hashes))
		window := hashes[start:end]

		results := make([][]EnrichedTrade, len(window))
		var wg sync.WaitGroup
		for i, hash := range window {
			wg.Add(1)
			go func(i int, hash string) {
				defer wg.Done()
				trades, err := p.processOne(ctx, hash)
				if err != nil {
					p.logger.Warn("Dropping transaction", "hash", hash, "err", err)
					if p.failures != nil {
						if serr := p.failures.Record(hash, err.Error()); serr != nil {
							p.logger.Warn("Record failed hash", "hash", hash, "err", serr)
						}
					}
					return
				}
				results[i] = trades
			}(i, hash)
		}
		wg.Wait()

		var produced []EnrichedTrade
		for i := range window {
			if results[i] == nil {
				stats.Dropped++
				continue
			}
			produced = append(produced, results[i]...)
		}
		stats.Attempted += len(window)

		if len(produced) > 0 {
			if err := p.appender.Append(produced); err != nil {
				return stats, fmt.Errorf("append ledger: %w", err)
			}
			stats.Produced += len(produced)

			if p.emitter != nil {
				if err := p.emitter.EmitTrades(produced); err != nil {
					p.logger.Warn("Emit trades", "count", len(produced), "err", err)
				}
			}
		}

		p.logger.Info("Window processed",
			"window", len(window),
			"trades", len(produced),
			"dropped_total", stats.Dropped,
			"attempted_total", stats.Attempted,
		)

		if end < len(hashes) {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(p.cfg.WindowPause):
			}
		}
	}
	return stats, nil
}

func (p *Processor) processOne(ctx context.Context, hash string) ([]EnrichedTrade, error) {
	tx, err := doWithPolicy(ctx, p.policy, func(ctx context.Context) (*explorer.Transaction, error) {
		return p.client.Transaction(ctx, hash)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}

	items, err := doWithPolicy(ctx, p.policy, func(ctx context.Context) ([]explorer.TokenTransferItem, error) {
		return p.client.TransactionTokenTransfers(ctx, hash)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transfers: %w", err)
	}

	events := TransferEventsFromItems(items)

	var classifications []Classification
	if p.cfg.Aggregate {
		net, err := p.classifier.ClassifyNet(events)
		if err != nil {
			return nil, err
		}
		if net != nil {
			classifications = append(classifications, *net)
		}
	} else {
		classifications, err = p.classifier.Classify(events)
		if err != nil {
			return nil, err
		}
	}

	trades := make([]EnrichedTrade, 0, len(classifications))
	for _, cl := range classifications {
		trades = append(trades, EnrichedTrade{
			TxHash:             tx.Hash,
			BlockTimestamp:     tx.Timestamp,
			TraderAddress:      cl.TraderAddress,
			TokenAmount:        cl.TokenAmount,
			UsdValue:           p.valuator.Value(events, cl.TokenAmount),
			CounterTokenIn:     cl.CounterTokenIn,
			CounterTokenInSym:  cl.CounterTokenInSym,
			CounterTokenOut:    cl.CounterTokenOut,
			CounterTokenOutSym: cl.CounterTokenOutSym,
			PoolAddress:        cl.PoolAddress,
			PoolName:           cl.PoolName,
			InteractedAddress:  tx.To.Hash,
			InteractedName:     tx.To.Name,
			GasUsed:            tx.GasUsed,
			GasPrice:           tx.GasPrice,
		})
	}
	return trades, nil
}
