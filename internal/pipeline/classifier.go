package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Classification is the trade reading of one token-of-interest transfer:
// who traded, against which pool, and which counter-tokens moved in and out
// of the trader across the whole transaction.
type Classification struct {
	TraderAddress      string
	PoolAddress        string
	PoolName           string
	TokenAmount        decimal.Decimal
	CounterTokenIn     string
	CounterTokenInSym  string
	CounterTokenOut    string
	CounterTokenOutSym string
}

var defaultPoolPatterns = []string{"pool", "uniswap"}

// Classifier resolves trader and pool sides of token-of-interest transfers.
// Pool detection is a label substring heuristic; on transactions where both
// sides carry pool-like labels the to side wins, best-effort.
type Classifier struct {
	tokenAddress string
	poolPatterns []string
}

func NewClassifier(tokenAddress string, extraPatterns ...string) *Classifier {
	patterns := make([]string, 0, len(defaultPoolPatterns)+len(extraPatterns))
	patterns = append(patterns, defaultPoolPatterns...)
	for _, p := range extraPatterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Classifier{
		tokenAddress: tokenAddress,
		poolPatterns: patterns,
	}
}

func (c *Classifier) looksLikePool(label string) bool {
	if label == "" {
		return false
	}
	lower := strings.ToLower(label)
	for _, p := range c.poolPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Classify emits one record per token-of-interest transfer in the
// transaction. A transaction without any such transfer yields an empty
// result and no error. A malformed amount fails the whole transaction.
func (c *Classifier) Classify(transfers []TransferEvent) ([]Classification, error) {
	var out []Classification
	for _, tr := range transfers {
		if !EqualAddr(tr.TokenAddress, c.tokenAddress) {
			continue
		}
		amount, err := DecodeAmount(tr.RawAmount, tr.TokenDecimals)
		if err != nil {
			return nil, fmt.Errorf("transfer %s -> %s: %w", tr.FromAddress, tr.ToAddress, err)
		}
		cl := c.classifyOne(tr, transfers)
		cl.TokenAmount = amount
		out = append(out, cl)
	}
	return out, nil
}

// ClassifyNet aggregates the transaction to a single record carrying the
// trader's net token-of-interest position. Transfers the trader is not a
// party to (intermediate hops) do not move the net; a zero net falls back to
// the gross total so round trips still produce a row.
func (c *Classifier) ClassifyNet(transfers []TransferEvent) (*Classification, error) {
	records, err := c.Classify(transfers)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	first := records[0]
	net := decimal.Zero
	gross := decimal.Zero
	for _, tr := range transfers {
		if !EqualAddr(tr.TokenAddress, c.tokenAddress) {
			continue
		}
		amount, err := DecodeAmount(tr.RawAmount, tr.TokenDecimals)
		if err != nil {
			return nil, err
		}
		gross = gross.Add(amount)
		if EqualAddr(tr.ToAddress, first.TraderAddress) {
			net = net.Add(amount)
		} else if EqualAddr(tr.FromAddress, first.TraderAddress) {
			net = net.Sub(amount)
		}
	}

	first.TokenAmount = net.Abs()
	if first.TokenAmount.IsZero() {
		first.TokenAmount = gross
	}
	return &first, nil
}

// classifyOne fixes the trader and pool for one token-of-interest transfer,
// then scans the whole transaction for the trader's counter-token flows. A
// transfer sent by the trader marks its token as in (disposed), one received
// by the trader as out (acquired); that resolves multi-hop routes where the
// token of interest is an intermediate hop.
func (c *Classifier) classifyOne(tr TransferEvent, all []TransferEvent) Classification {
	var cl Classification
	switch {
	case c.looksLikePool(tr.ToLabel):
		cl.TraderAddress = tr.FromAddress
		cl.PoolAddress, cl.PoolName = tr.ToAddress, tr.ToLabel
	case c.looksLikePool(tr.FromLabel):
		cl.TraderAddress = tr.ToAddress
		cl.PoolAddress, cl.PoolName = tr.FromAddress, tr.FromLabel
	default:
		// Neither side looks pool-like: from is the trader, to the pool.
		cl.TraderAddress = tr.FromAddress
		cl.PoolAddress, cl.PoolName = tr.ToAddress, tr.ToLabel
	}

	for _, t := range all {
		if EqualAddr(t.TokenAddress, c.tokenAddress) {
			continue
		}
		if EqualAddr(t.FromAddress, cl.TraderAddress) {
			cl.CounterTokenIn, cl.CounterTokenInSym = t.TokenAddress, t.TokenSymbol
		}
		if EqualAddr(t.ToAddress, cl.TraderAddress) {
			cl.CounterTokenOut, cl.CounterTokenOutSym = t.TokenAddress, t.TokenSymbol
		}
	}
	return cl
}
