package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablewatch/cngn-indexer/internal/explorer"
)

// TransferEvent is one token movement inside a transaction, decoded from the
// explorer boundary. Immutable once built.
type TransferEvent struct {
	FromAddress   string
	FromLabel     string
	ToAddress     string
	ToLabel       string
	TokenAddress  string
	TokenSymbol   string
	TokenDecimals int
	RawAmount     string
}

// EnrichedTrade is the unit of ledger output. TxHash is the unique key across
// the persisted ledger; append is the only mutation.
type EnrichedTrade struct {
	TxHash             string          `json:"tx_hash"`
	BlockTimestamp     time.Time       `json:"block_timestamp"`
	TraderAddress      string          `json:"trader_address"`
	TokenAmount        decimal.Decimal `json:"token_amount"`
	UsdValue           decimal.Decimal `json:"usd_value"`
	CounterTokenIn     string          `json:"counter_token_in,omitempty"`
	CounterTokenInSym  string          `json:"counter_token_in_symbol,omitempty"`
	CounterTokenOut    string          `json:"counter_token_out,omitempty"`
	CounterTokenOutSym string          `json:"counter_token_out_symbol,omitempty"`
	PoolAddress        string          `json:"pool_address,omitempty"`
	PoolName           string          `json:"pool_name,omitempty"`
	InteractedAddress  string          `json:"interacted_address,omitempty"`
	InteractedName     string          `json:"interacted_name,omitempty"`
	GasUsed            string          `json:"gas_used,omitempty"`
	GasPrice           string          `json:"gas_price,omitempty"`
}

// TransferEventsFromItems converts explorer line items into internal transfer
// events. Unparseable decimals default to 18 rather than dropping the line;
// the decoder rejects the amount later if it is genuinely malformed.
func TransferEventsFromItems(items []explorer.TokenTransferItem) []TransferEvent {
	events := make([]TransferEvent, 0, len(items))
	for _, item := range items {
		decimals := 18
		if d, err := strconv.Atoi(item.Token.Decimals); err == nil {
			decimals = d
		}
		events = append(events, TransferEvent{
			FromAddress:   item.From.Hash,
			FromLabel:     item.From.Name,
			ToAddress:     item.To.Hash,
			ToLabel:       item.To.Name,
			TokenAddress:  item.Token.Address,
			TokenSymbol:   item.Token.Symbol,
			TokenDecimals: decimals,
			RawAmount:     item.Total.Value,
		})
	}
	return events
}

// DedupIndex is the set of transaction hashes already present in the ledger.
// It is rebuilt from the ledger at the start of each run and owned by that one
// run; it only grows.
type DedupIndex struct {
	hashes map[string]struct{}
}

func NewDedupIndex() *DedupIndex {
	return &DedupIndex{hashes: make(map[string]struct{})}
}

func (d *DedupIndex) Has(hash string) bool {
	_, ok := d.hashes[normalizeHash(hash)]
	return ok
}

// Add inserts the hash and reports whether it was new.
func (d *DedupIndex) Add(hash string) bool {
	h := normalizeHash(hash)
	if _, ok := d.hashes[h]; ok {
		return false
	}
	d.hashes[h] = struct{}{}
	return true
}

func (d *DedupIndex) Len() int {
	return len(d.hashes)
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// EqualAddr compares two addresses case-insensitively.
func EqualAddr(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
