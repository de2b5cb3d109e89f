package pipeline

import (
	"context"
	"log/slog"

	"github.com/stablewatch/cngn-indexer/internal/explorer"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
	"github.com/stablewatch/cngn-indexer/pkg/retry"
)

// TransferLister is the slice of the explorer client the fetcher needs.
type TransferLister interface {
	TokenTransfers(ctx context.Context, tokenAddress string, pageParams map[string]string) (*explorer.TokenTransfersPage, error)
}

// DeltaFetcher walks the paginated transfer listing and yields batches of
// transaction hashes not yet present in the dedup index.
//
// Termination relies solely on deduplication plus continuation-token
// exhaustion: the fetcher does not assume a page order, and a page with zero
// new items never means "fully synced". Known risk carried over from the
// upstream contract: if the explorer lists oldest-first, a fully synced
// ledger re-scans all historical pages every run before finding anything
// new; if it reorders pages between runs the walk may be longer than needed.
type DeltaFetcher struct {
	client       TransferLister
	tokenAddress string
	seen         *DedupIndex
	policy       retry.Policy

	cursor    map[string]string // nil means "newest page"
	exhausted bool
	logger    *slog.Logger
}

func NewDeltaFetcher(client TransferLister, tokenAddress string, seen *DedupIndex, policy retry.Policy) *DeltaFetcher {
	return &DeltaFetcher{
		client:       client,
		tokenAddress: tokenAddress,
		seen:         seen,
		policy:       policy,
		logger:       logger.With(slog.String("component", "fetcher")),
	}
}

// NextBatch pages through the listing until it has collected targetNewCount
// unseen hashes, the upstream reports no continuation token, or a page comes
// back empty. done=true means the history is exhausted; an empty batch with
// done=true is a normal terminal state, not something to retry.
func (f *DeltaFetcher) NextBatch(ctx context.Context, targetNewCount int) (batch []string, done bool, err error) {
	if f.exhausted {
		return nil, true, nil
	}

	for {
		page, err := doWithPolicy(ctx, f.policy, func(ctx context.Context) (*explorer.TokenTransfersPage, error) {
			return f.client.TokenTransfers(ctx, f.tokenAddress, f.cursor)
		})
		if err != nil {
			return batch, false, err
		}

		var seenCount int
		for _, item := range page.Items {
			if item.TxHash == "" {
				continue
			}
			if f.seen.Add(item.TxHash) {
				batch = append(batch, item.TxHash)
			} else {
				seenCount++
			}
		}

		f.logger.Info("Scanned transfer page",
			"new", len(batch),
			"already_seen", seenCount,
			"page_items", len(page.Items),
		)

		if !page.HasNext() {
			f.exhausted = true
			return batch, true, nil
		}

		cursor, err := page.Cursor()
		if err != nil {
			return batch, false, err
		}
		f.cursor = cursor

		if len(page.Items) == 0 {
			return batch, false, nil
		}
		if targetNewCount > 0 && len(batch) >= targetNewCount {
			return batch, false, nil
		}
	}
}

// Exhausted reports whether the fetcher has reached the end of history.
func (f *DeltaFetcher) Exhausted() bool {
	return f.exhausted
}
