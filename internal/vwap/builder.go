// Package vwap derives the daily volume-weighted-average-price series from
// the trade ledger.
package vwap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablewatch/cngn-indexer/internal/pipeline"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

const dateLayout = "2006-01-02"

// DefaultDustThreshold excludes trades too small to price without division
// noise.
var DefaultDustThreshold = decimal.RequireFromString("0.000001")

// DefaultMaxDays bounds the day-by-day walk so a degenerate date range can
// never iterate away (~100 years).
const DefaultMaxDays = 36600

type Config struct {
	RouterAddress string
	RouterName    string
	Stablecoins   []string        // extra recognized tickers beyond USDT/USDC
	DustThreshold decimal.Decimal // zero means DefaultDustThreshold
	MaxDays       int             // zero means DefaultMaxDays
}

// Record is one day of the output series. Zero volumes mark a carry-forward
// day: the price repeats the last traded day and is not a market observation.
type Record struct {
	Date        time.Time
	Price       decimal.Decimal
	TokenVolume decimal.Decimal
	UsdVolume   decimal.Decimal
}

type dailyStat struct {
	tokenVolume decimal.Decimal
	usdVolume   decimal.Decimal
}

type Builder struct {
	cfg     Config
	tickers []string
	logger  *slog.Logger
}

func NewBuilder(cfg Config) *Builder {
	if cfg.DustThreshold.IsZero() {
		cfg.DustThreshold = DefaultDustThreshold
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = DefaultMaxDays
	}
	tickers := []string{"USDT", "USDC"}
	for _, s := range cfg.Stablecoins {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			tickers = append(tickers, s)
		}
	}
	return &Builder{
		cfg:     cfg,
		tickers: tickers,
		logger:  logger.With(slog.String("component", "vwap")),
	}
}

// Build aggregates qualifying trades into daily buckets and emits one record
// per calendar day from the earliest to the latest qualifying date, carrying
// the last computed price across zero-volume days (zero before the first
// trade).
func (b *Builder) Build(trades []pipeline.EnrichedTrade) ([]Record, error) {
	buckets := make(map[string]*dailyStat)
	var qualified int
	for _, t := range trades {
		if !b.qualifies(t) {
			continue
		}
		qualified++
		key := t.BlockTimestamp.UTC().Format(dateLayout)
		stat, ok := buckets[key]
		if !ok {
			stat = &dailyStat{tokenVolume: decimal.Zero, usdVolume: decimal.Zero}
			buckets[key] = stat
		}
		stat.tokenVolume = stat.tokenVolume.Add(t.TokenAmount)
		stat.usdVolume = stat.usdVolume.Add(t.UsdValue)
	}

	b.logger.Info("Aggregated trades", "total", len(trades), "qualified", qualified, "days", len(buckets))
	if len(buckets) == 0 {
		return nil, nil
	}

	var minKey, maxKey string
	for key := range buckets {
		if minKey == "" || key < minKey {
			minKey = key
		}
		if key > maxKey {
			maxKey = key
		}
	}
	minDate, err := time.ParseInLocation(dateLayout, minKey, time.UTC)
	if err != nil {
		return nil, err
	}
	maxDate, err := time.ParseInLocation(dateLayout, maxKey, time.UTC)
	if err != nil {
		return nil, err
	}

	var records []Record
	carry := decimal.Zero
	for d, days := minDate, 0; !d.After(maxDate); d, days = d.AddDate(0, 0, 1), days+1 {
		if days > b.cfg.MaxDays {
			return nil, fmt.Errorf("daily series from %s to %s exceeds %d days", minKey, maxKey, b.cfg.MaxDays)
		}

		stat, ok := buckets[d.Format(dateLayout)]
		if ok && stat.tokenVolume.IsPositive() {
			price := stat.usdVolume.Div(stat.tokenVolume)
			carry = price
			records = append(records, Record{
				Date:        d,
				Price:       price,
				TokenVolume: stat.tokenVolume,
				UsdVolume:   stat.usdVolume,
			})
			continue
		}

		records = append(records, Record{
			Date:        d,
			Price:       carry,
			TokenVolume: decimal.Zero,
			UsdVolume:   decimal.Zero,
		})
	}
	return records, nil
}

// qualifies is the trade-qualification predicate: routed through the
// designated router, a recognized stablecoin involved, and above the dust
// threshold on both legs.
func (b *Builder) qualifies(t pipeline.EnrichedTrade) bool {
	routerHit := strings.EqualFold(t.InteractedAddress, b.cfg.RouterAddress) ||
		(b.cfg.RouterName != "" && t.InteractedName == b.cfg.RouterName)
	if !routerHit {
		return false
	}

	if !b.stablecoinInvolved(t) {
		return false
	}

	return t.TokenAmount.GreaterThan(b.cfg.DustThreshold) &&
		t.UsdValue.GreaterThan(b.cfg.DustThreshold)
}

func (b *Builder) stablecoinInvolved(t pipeline.EnrichedTrade) bool {
	for _, ticker := range b.tickers {
		if strings.EqualFold(t.CounterTokenInSym, ticker) || strings.EqualFold(t.CounterTokenOutSym, ticker) {
			return true
		}
	}
	// Backup signal: a stablecoin ticker in the pool name.
	poolName := strings.ToUpper(t.PoolName)
	for _, ticker := range b.tickers {
		if strings.Contains(poolName, ticker) {
			return true
		}
	}
	return false
}
