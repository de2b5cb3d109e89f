package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablewatch/cngn-indexer/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 1000, BurstSize: 1000})
}

func TestTokenTransfers_DecodesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/tokens/0xToken/transfers", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"items": [{
				"transaction_hash": "0xabc",
				"timestamp": "2024-06-01T10:30:00Z",
				"from": {"hash": "0xTrader", "name": ""},
				"to": {"hash": "0xPool", "name": "PancakeSwap V3: cNGN-USDT Pool"},
				"token": {"address": "0xToken", "symbol": "cNGN", "decimals": "6"},
				"total": {"value": "1500000", "decimals": "6"}
			}],
			"next_page_params": {"block_number": 19923411, "index": 3, "items_count": 50}
		}`))
	})

	page, err := c.TokenTransfers(context.Background(), "0xToken", nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "0xabc", page.Items[0].TxHash)
	assert.Equal(t, "cNGN", page.Items[0].Token.Symbol)
	assert.True(t, page.HasNext())

	cursor, err := page.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "19923411", cursor["block_number"], "block number must not round-trip through float64")
	assert.Equal(t, "3", cursor["index"])
}

func TestTokenTransfers_CursorSentAsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "19923411", r.URL.Query().Get("block_number"))
		assert.Equal(t, "3", r.URL.Query().Get("index"))
		_, _ = w.Write([]byte(`{"items": [], "next_page_params": null}`))
	})

	page, err := c.TokenTransfers(context.Background(), "0xToken", map[string]string{
		"block_number": "19923411",
		"index":        "3",
	})
	require.NoError(t, err)
	assert.False(t, page.HasNext())

	cursor, err := page.Cursor()
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestTransaction_Decodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/transactions/0xabc", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Transaction{
			Hash:     "0xabc",
			GasUsed:  "142034",
			GasPrice: "3000000000",
		})
	})

	tx, err := c.Transaction(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "142034", tx.GasUsed)
}

func TestGet_RateLimitedClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Transaction(context.Background(), "0xabc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, retry.KindRateLimited, FailureKindOf(err))
}

func TestGet_ServerErrorClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Transaction(context.Background(), "0xabc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerError))
	assert.Equal(t, retry.KindServerError, FailureKindOf(err))
}

func TestGet_ClientErrorIsTerminal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Transaction(context.Background(), "0xmissing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrServerError))
	assert.Equal(t, retry.KindTerminal, FailureKindOf(err))
}

func TestGet_AuthHeaderSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "sekret", RequestsPerSecond: 1000, BurstSize: 1000})
	_, err := c.Transaction(context.Background(), "0xabc")
	require.NoError(t, err)
}

func TestFailureKindOf_ContextDeadline(t *testing.T) {
	assert.Equal(t, retry.KindServerError, FailureKindOf(context.DeadlineExceeded))
}
