package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenAddr  = "0xCNGN"
	usdtAddr   = "0xUSDT"
	wethAddr   = "0xWETH"
	traderAddr = "0xTrader"
	poolAddr   = "0xPool"
)

func cngnTransfer(from, fromLabel, to, toLabel, raw string) TransferEvent {
	return TransferEvent{
		FromAddress: from, FromLabel: fromLabel,
		ToAddress: to, ToLabel: toLabel,
		TokenAddress: tokenAddr, TokenSymbol: "cNGN", TokenDecimals: 6,
		RawAmount: raw,
	}
}

func TestClassify_PoolOnToSide(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "PancakeSwap V3: cNGN-USDT Pool", "1500000"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, traderAddr, out[0].TraderAddress)
	assert.Equal(t, poolAddr, out[0].PoolAddress)
	assert.Equal(t, "PancakeSwap V3: cNGN-USDT Pool", out[0].PoolName)
	assert.True(t, out[0].TokenAmount.Equal(decimal.RequireFromString("1.5")))
}

func TestClassify_PoolOnFromSide(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		cngnTransfer(poolAddr, "Uniswap V2: cNGN", traderAddr, "", "1500000"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, traderAddr, out[0].TraderAddress)
	assert.Equal(t, poolAddr, out[0].PoolAddress)
}

func TestClassify_NoPoolLabelDefaultsFromAsTrader(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "", "1000000"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, traderAddr, out[0].TraderAddress)
	assert.Equal(t, poolAddr, out[0].PoolAddress)
}

func TestClassify_CounterTokenFlows(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		// Trader sends USDT in, receives cNGN from the pool.
		{FromAddress: traderAddr, ToAddress: poolAddr, TokenAddress: usdtAddr, TokenSymbol: "USDT", TokenDecimals: 6, RawAmount: "2000000"},
		cngnTransfer(poolAddr, "cNGN-USDT Pool", traderAddr, "", "3000000000"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, usdtAddr, out[0].CounterTokenIn)
	assert.Equal(t, "USDT", out[0].CounterTokenInSym)
	assert.Empty(t, out[0].CounterTokenOut)
}

func TestClassify_MultiHopRoute(t *testing.T) {
	c := NewClassifier(tokenAddr)

	// Trader swaps WETH -> cNGN -> USDT; cNGN is the intermediate hop and the
	// trader is not a party to the cNGN leg.
	out, err := c.Classify([]TransferEvent{
		{FromAddress: traderAddr, ToAddress: "0xPoolA", TokenAddress: wethAddr, TokenSymbol: "WETH", TokenDecimals: 18, RawAmount: "1000000000000000000"},
		cngnTransfer("0xPoolA", "Uniswap V3: WETH-cNGN Pool", "0xPoolB", "Uniswap V3: cNGN-USDT Pool", "5000000000"),
		{FromAddress: "0xPoolB", ToAddress: traderAddr, TokenAddress: usdtAddr, TokenSymbol: "USDT", TokenDecimals: 6, RawAmount: "3200000000"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Both sides of the cNGN leg are pool-like; the to side wins as pool.
	assert.Equal(t, "0xPoolA", out[0].TraderAddress)
	assert.Equal(t, "0xPoolB", out[0].PoolAddress)
}

func TestClassify_NoTokenOfInterestIsSilent(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		{FromAddress: traderAddr, ToAddress: poolAddr, TokenAddress: wethAddr, TokenSymbol: "WETH", TokenDecimals: 18, RawAmount: "1"},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestClassify_MalformedAmountFailsTransaction(t *testing.T) {
	c := NewClassifier(tokenAddr)

	_, err := c.Classify([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "Pool", "not-a-number"),
	})
	assert.ErrorIs(t, err, ErrMalformedAmount)
}

func TestClassify_OneRecordPerTransfer(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.Classify([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "cNGN Pool", "1000000"),
		cngnTransfer(poolAddr, "cNGN Pool", traderAddr, "", "400000"),
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestClassifyNet_NetsTraderFlow(t *testing.T) {
	c := NewClassifier(tokenAddr)

	// Trader sends 1.0 and receives 0.4 back: net position 0.6.
	out, err := c.ClassifyNet([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "cNGN Pool", "1000000"),
		cngnTransfer(poolAddr, "cNGN Pool", traderAddr, "", "400000"),
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.TokenAmount.Equal(decimal.RequireFromString("0.6")), "got %s", out.TokenAmount)
}

func TestClassifyNet_ZeroNetFallsBackToGross(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.ClassifyNet([]TransferEvent{
		cngnTransfer(traderAddr, "", poolAddr, "cNGN Pool", "1000000"),
		cngnTransfer(poolAddr, "cNGN Pool", traderAddr, "", "1000000"),
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.TokenAmount.Equal(decimal.RequireFromString("2")), "got %s", out.TokenAmount)
}

func TestClassifyNet_NoTokenOfInterest(t *testing.T) {
	c := NewClassifier(tokenAddr)

	out, err := c.ClassifyNet([]TransferEvent{
		{FromAddress: traderAddr, ToAddress: poolAddr, TokenAddress: wethAddr, TokenDecimals: 18, RawAmount: "1"},
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDedupIndex(t *testing.T) {
	d := NewDedupIndex()

	assert.True(t, d.Add("0xABC"))
	assert.False(t, d.Add("0xabc"), "hash comparison is case-insensitive")
	assert.True(t, d.Has("0xAbC"))
	assert.Equal(t, 1, d.Len())
}
