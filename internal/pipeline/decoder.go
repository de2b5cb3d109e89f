package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformedAmount = errors.New("malformed amount")
	ErrInvalidDecimals = errors.New("invalid decimals")
)

// DecodeAmount converts an unsigned integer digit string and a decimal-places
// count into raw / 10^decimals. The split is done on the digit string itself,
// never through binary floats, so very large raw amounts keep full precision.
func DecodeAmount(raw string, decimals int) (decimal.Decimal, error) {
	if decimals < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrMalformedAmount)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
		}
	}

	// Left-pad until the integer part has at least one digit.
	padded := raw
	if len(padded) <= decimals {
		padded = strings.Repeat("0", decimals-len(padded)+1) + padded
	}

	split := len(padded) - decimals
	intPart := padded[:split]
	fracPart := strings.TrimRight(padded[split:], "0")

	text := intPart
	if fracPart != "" {
		text = intPart + "." + fracPart
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return value, nil
}
