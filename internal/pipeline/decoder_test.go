package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAmount_Basic(t *testing.T) {
	v, err := DecodeAmount("1500000", 6)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("1.5")), "got %s", v)
}

func TestDecodeAmount_SmallerThanOneUnit(t *testing.T) {
	v, err := DecodeAmount("7", 6)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("0.000007")), "got %s", v)
}

func TestDecodeAmount_ZeroDecimals(t *testing.T) {
	v, err := DecodeAmount("42", 0)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(42)))
}

func TestDecodeAmount_TrailingZerosStripped(t *testing.T) {
	v, err := DecodeAmount("1000000000000000000", 18)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())
}

func TestDecodeAmount_LargerThanFloat64Precision(t *testing.T) {
	// 123456789012345678901234567 / 10^18; float64 would mangle the tail.
	v, err := DecodeAmount("123456789012345678901234567", 18)
	require.NoError(t, err)
	assert.Equal(t, "123456789.012345678901234567", v.String())
}

func TestDecodeAmount_Zero(t *testing.T) {
	v, err := DecodeAmount("0", 18)
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestDecodeAmount_EmptyRaw(t *testing.T) {
	_, err := DecodeAmount("", 6)
	assert.ErrorIs(t, err, ErrMalformedAmount)
}

func TestDecodeAmount_NonNumericRaw(t *testing.T) {
	_, err := DecodeAmount("12x4", 6)
	assert.ErrorIs(t, err, ErrMalformedAmount)

	_, err = DecodeAmount("-15", 6)
	assert.ErrorIs(t, err, ErrMalformedAmount, "sign characters are not digits")
}

func TestDecodeAmount_NegativeDecimals(t *testing.T) {
	_, err := DecodeAmount("1500000", -1)
	assert.ErrorIs(t, err, ErrInvalidDecimals)
}
