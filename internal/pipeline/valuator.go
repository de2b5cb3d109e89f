package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultUsdRate is the last-resort token→USD rate (cNGN tracks the naira,
// roughly 1/1540 USD). Override per deployment via pricing.fallback_rate_usd.
var DefaultUsdRate = decimal.RequireFromString("0.00065")

var stablecoinSymbols = map[string]struct{}{
	"USDT": {},
	"USDC": {},
}

// IsStablecoinSymbol reports whether symbol is one of the recognized
// dollar-pegged stablecoins.
func IsStablecoinSymbol(symbol string) bool {
	_, ok := stablecoinSymbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// Valuator assigns a USD value to a token amount with a tiered fallback
// policy. It degrades in accuracy down the tiers but never fails.
type Valuator struct {
	fallbackRate decimal.Decimal
}

// NewValuator builds a valuator. fallbackRate is the externally supplied
// token→USD rate for tier two; pass decimal.Zero when none is configured.
func NewValuator(fallbackRate decimal.Decimal) *Valuator {
	return &Valuator{fallbackRate: fallbackRate}
}

// Value applies the tiers in order, first match wins:
//  1. a USDT/USDC transfer anywhere in the transaction values it verbatim
//     (1:1 peg assumed, no FX correction);
//  2. the configured fallback rate times the token amount;
//  3. the built-in default rate times the token amount.
func (v *Valuator) Value(transfers []TransferEvent, tokenAmount decimal.Decimal) decimal.Decimal {
	for _, tr := range transfers {
		if !IsStablecoinSymbol(tr.TokenSymbol) {
			continue
		}
		usd, err := DecodeAmount(tr.RawAmount, tr.TokenDecimals)
		if err != nil {
			continue
		}
		return usd
	}

	if v.fallbackRate.IsPositive() {
		return tokenAmount.Mul(v.fallbackRate)
	}
	return tokenAmount.Mul(DefaultUsdRate)
}
