package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stablewatch/cngn-indexer/pkg/logger"
	"github.com/stablewatch/cngn-indexer/pkg/ratelimiter"
)

const maxErrorBodyLen = 512

type Config struct {
	BaseURL           string
	APIKey            string
	RequestTimeout    time.Duration
	RequestsPerSecond int
	BurstSize         int
}

// Client is the HTTP boundary to a Blockscout-style explorer. Every call is
// rate limited client-side and bounded by a fixed request timeout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimiter.RateLimiter
	logger     *slog.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    ratelimiter.NewRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		logger:     logger.With(slog.String("component", "explorer")),
	}
}

// TokenTransfers fetches one page of the token's transfer listing. pageParams
// is the cursor from the previous page, nil for the newest page.
func (c *Client) TokenTransfers(ctx context.Context, tokenAddress string, pageParams map[string]string) (*TokenTransfersPage, error) {
	query := url.Values{}
	for k, v := range pageParams {
		query.Set(k, v)
	}

	var page TokenTransfersPage
	path := fmt.Sprintf("/api/v2/tokens/%s/transfers", tokenAddress)
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, fmt.Errorf("token transfers page: %w", err)
	}
	return &page, nil
}

// Transaction fetches transaction metadata by hash.
func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	if err := c.get(ctx, "/api/v2/transactions/"+hash, nil, &tx); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", hash, err)
	}
	return &tx, nil
}

// TransactionTokenTransfers fetches the token transfer line items of one
// transaction.
func (c *Client) TransactionTokenTransfers(ctx context.Context, hash string) ([]TokenTransferItem, error) {
	var page transactionTransfersPage
	if err := c.get(ctx, "/api/v2/transactions/"+hash+"/token-transfers", nil, &page); err != nil {
		return nil, fmt.Errorf("transaction transfers %s: %w", hash, err)
	}
	return page.Items, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP request completed", "url", u, "status", resp.StatusCode, "elapsed", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(data)
		if len(body) > maxErrorBodyLen {
			body = body[:maxErrorBodyLen]
		}
		return &APIError{StatusCode: resp.StatusCode, URL: u, Body: body}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response from %s: %w", u, err)
	}
	return nil
}
