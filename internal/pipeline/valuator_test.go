package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValue_StablecoinTierWinsVerbatim(t *testing.T) {
	v := NewValuator(decimal.RequireFromString("0.5"))

	usd := v.Value([]TransferEvent{
		{TokenAddress: usdtAddr, TokenSymbol: "USDT", TokenDecimals: 6, RawAmount: "2500000"},
		{TokenAddress: tokenAddr, TokenSymbol: "cNGN", TokenDecimals: 6, RawAmount: "1000000"},
	}, decimal.NewFromInt(1))

	// USDT amount used verbatim, not amount * rate.
	assert.True(t, usd.Equal(decimal.RequireFromString("2.5")), "got %s", usd)
}

func TestValue_USDCRecognizedCaseInsensitive(t *testing.T) {
	v := NewValuator(decimal.Zero)

	usd := v.Value([]TransferEvent{
		{TokenSymbol: "usdc", TokenDecimals: 6, RawAmount: "7000000"},
	}, decimal.NewFromInt(1))

	assert.True(t, usd.Equal(decimal.NewFromInt(7)))
}

func TestValue_FallbackRateTier(t *testing.T) {
	v := NewValuator(decimal.RequireFromString("0.0007"))

	usd := v.Value([]TransferEvent{
		{TokenSymbol: "WETH", TokenDecimals: 18, RawAmount: "1"},
	}, decimal.NewFromInt(1000))

	assert.True(t, usd.Equal(decimal.RequireFromString("0.7")), "got %s", usd)
}

func TestValue_DefaultRateTier(t *testing.T) {
	v := NewValuator(decimal.Zero)

	usd := v.Value(nil, decimal.NewFromInt(1000))

	assert.True(t, usd.Equal(decimal.NewFromInt(1000).Mul(DefaultUsdRate)))
}

func TestValue_MalformedStablecoinAmountFallsThrough(t *testing.T) {
	v := NewValuator(decimal.RequireFromString("0.001"))

	usd := v.Value([]TransferEvent{
		{TokenSymbol: "USDT", TokenDecimals: 6, RawAmount: "garbage"},
	}, decimal.NewFromInt(100))

	assert.True(t, usd.Equal(decimal.RequireFromString("0.1")), "got %s", usd)
}

func TestValue_NeverFails(t *testing.T) {
	v := NewValuator(decimal.Zero)
	usd := v.Value(nil, decimal.Zero)
	assert.True(t, usd.IsZero())
}
