package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AddressParam is an address with the explorer's optional contract label.
type AddressParam struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
}

// TokenInfo describes the asset of a transfer line item. Blockscout encodes
// decimals as a string.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

// TotalValue is the raw integer amount of a transfer.
type TotalValue struct {
	Value    string `json:"value"`
	Decimals string `json:"decimals"`
}

// TokenTransferItem is one token movement as reported by the explorer, either
// inside a token transfer listing or a transaction's transfer breakdown.
type TokenTransferItem struct {
	TxHash    string       `json:"transaction_hash"`
	Timestamp time.Time    `json:"timestamp"`
	From      AddressParam `json:"from"`
	To        AddressParam `json:"to"`
	Token     TokenInfo    `json:"token"`
	Total     TotalValue   `json:"total"`
}

// TokenTransfersPage is one page of the token transfer listing.
type TokenTransfersPage struct {
	Items          []TokenTransferItem `json:"items"`
	NextPageParams json.RawMessage     `json:"next_page_params"`
}

// HasNext reports whether the upstream provided a continuation token.
func (p *TokenTransfersPage) HasNext() bool {
	trimmed := bytes.TrimSpace(p.NextPageParams)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && !bytes.Equal(trimmed, []byte("{}"))
}

// Cursor flattens next_page_params into query parameters for the next request.
// Numbers are decoded with json.Number so block numbers survive verbatim
// instead of round-tripping through float64.
func (p *TokenTransfersPage) Cursor() (map[string]string, error) {
	if !p.HasNext() {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(p.NextPageParams))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode next_page_params: %w", err)
	}

	cursor := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			cursor[k] = val
		case json.Number:
			cursor[k] = val.String()
		case bool:
			cursor[k] = fmt.Sprintf("%t", val)
		case nil:
			// skipped: the upstream omits the param on the next request
		default:
			return nil, fmt.Errorf("next_page_params[%s] has unsupported type %T", k, v)
		}
	}
	return cursor, nil
}

// Transaction is the explorer's transaction detail response, reduced to the
// fields this pipeline consumes.
type Transaction struct {
	Hash      string       `json:"hash"`
	Timestamp time.Time    `json:"timestamp"`
	From      AddressParam `json:"from"`
	To        AddressParam `json:"to"`
	GasUsed   string       `json:"gas_used"`
	GasPrice  string       `json:"gas_price"`
}

type transactionTransfersPage struct {
	Items []TokenTransferItem `json:"items"`
}
