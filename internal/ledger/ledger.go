// Package ledger owns the append-only CSV trade ledger: batched appends,
// the dedup-index resume scan, and row-level derived files.
package ledger

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stablewatch/cngn-indexer/internal/pipeline"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

// Header is the ledger schema. The transaction hash stays in the first
// column: the resume scan depends on it.
var Header = []string{
	"tx_hash",
	"block_timestamp",
	"trader_address",
	"token_amount",
	"usd_value",
	"counter_token_in",
	"counter_token_in_symbol",
	"counter_token_out",
	"counter_token_out_symbol",
	"pool_address",
	"pool_name",
	"interacted_address",
	"interacted_name",
	"gas_used",
	"gas_price",
}

const (
	colTxHash = iota
	colTimestamp
	colTrader
	colTokenAmount
	colUsdValue
	colCounterIn
	colCounterInSym
	colCounterOut
	colCounterOutSym
	colPoolAddress
	colPoolName
	colInteractedAddr
	colInteractedName
	colGasUsed
	colGasPrice
)

// Ledger is the append-only CSV file of enriched trades. There is exactly one
// writer per run; appends never rewrite existing rows.
type Ledger struct {
	path   string
	file   *os.File
	logger *slog.Logger
}

func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	l := &Ledger{
		path:   path,
		file:   f,
		logger: logger.With(slog.String("component", "ledger"), slog.String("path", path)),
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(Header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
		l.logger.Info("Created new ledger")
	}
	return l, nil
}

// Append writes one batch of trades and flushes it in a single write.
func (l *Ledger) Append(trades []pipeline.EnrichedTrade) error {
	w := csv.NewWriter(l.file)
	for _, t := range trades {
		if err := w.Write(rowFromTrade(t)); err != nil {
			return fmt.Errorf("append trade %s: %w", t.TxHash, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.file.Close()
}

func rowFromTrade(t pipeline.EnrichedTrade) []string {
	return []string{
		t.TxHash,
		t.BlockTimestamp.UTC().Format(time.RFC3339),
		t.TraderAddress,
		t.TokenAmount.String(),
		t.UsdValue.String(),
		t.CounterTokenIn,
		t.CounterTokenInSym,
		t.CounterTokenOut,
		t.CounterTokenOutSym,
		t.PoolAddress,
		t.PoolName,
		t.InteractedAddress,
		t.InteractedName,
		t.GasUsed,
		t.GasPrice,
	}
}

func tradeFromRow(row []string) (pipeline.EnrichedTrade, error) {
	var t pipeline.EnrichedTrade
	if len(row) != len(Header) {
		return t, fmt.Errorf("row has %d fields, want %d", len(row), len(Header))
	}

	ts, err := time.Parse(time.RFC3339, row[colTimestamp])
	if err != nil {
		return t, fmt.Errorf("parse timestamp %q: %w", row[colTimestamp], err)
	}
	amount, err := decimal.NewFromString(row[colTokenAmount])
	if err != nil {
		return t, fmt.Errorf("parse token amount %q: %w", row[colTokenAmount], err)
	}
	usd, err := decimal.NewFromString(row[colUsdValue])
	if err != nil {
		return t, fmt.Errorf("parse usd value %q: %w", row[colUsdValue], err)
	}

	t = pipeline.EnrichedTrade{
		TxHash:             row[colTxHash],
		BlockTimestamp:     ts,
		TraderAddress:      row[colTrader],
		TokenAmount:        amount,
		UsdValue:           usd,
		CounterTokenIn:     row[colCounterIn],
		CounterTokenInSym:  row[colCounterInSym],
		CounterTokenOut:    row[colCounterOut],
		CounterTokenOutSym: row[colCounterOutSym],
		PoolAddress:        row[colPoolAddress],
		PoolName:           row[colPoolName],
		InteractedAddress:  row[colInteractedAddr],
		InteractedName:     row[colInteractedName],
		GasUsed:            row[colGasUsed],
		GasPrice:           row[colGasPrice],
	}
	return t, nil
}

// LoadDedupIndex rebuilds the dedup index from the ledger's first column. It
// reads raw lines and cuts at the first comma instead of full CSV parsing; a
// deliberate fast path that holds because transaction hashes never contain
// commas and therefore are never quoted.
func LoadDedupIndex(path string) (*pipeline.DedupIndex, error) {
	index := pipeline.NewDedupIndex()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false // header
			continue
		}
		if line == "" {
			continue
		}
		field := line
		if i := strings.IndexByte(line, ','); i >= 0 {
			field = line[:i]
		}
		field = strings.Trim(field, `"`)
		if field != "" {
			index.Add(field)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return index, nil
}

// ReadAll parses the full ledger. Unlike the resume scan this is a proper CSV
// read; consumers like the VWAP builder need every column.
func ReadAll(path string) ([]pipeline.EnrichedTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var trades []pipeline.EnrichedTrade
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if first {
			first = false
			continue
		}
		t, err := tradeFromRow(row)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// FilterRouterTrades writes a derived file keeping only ledger rows whose
// interacted-contract address and name match the designated router. Header
// and quoting rules carry over from the ledger.
func FilterRouterTrades(srcPath, dstPath, routerAddress, routerName string) (int, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, err
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	r := csv.NewReader(src)
	r.FieldsPerRecord = len(Header)
	w := csv.NewWriter(dst)

	if err := w.Write(Header); err != nil {
		return 0, err
	}

	var kept int
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return kept, fmt.Errorf("read ledger: %w", err)
		}
		if first {
			first = false
			continue
		}
		if !strings.EqualFold(row[colInteractedAddr], routerAddress) {
			continue
		}
		if routerName != "" && row[colInteractedName] != routerName {
			continue
		}
		if err := w.Write(row); err != nil {
			return kept, err
		}
		kept++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return kept, err
	}
	return kept, nil
}
