// Package events announces appended trades to downstream consumers over
// NATS. Publishing is fire-and-forget; the ledger stays the source of truth.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stablewatch/cngn-indexer/internal/pipeline"
)

type TradeBatchEvent struct {
	Type      string                   `json:"type"`
	Count     int                      `json:"count"`
	Trades    []pipeline.EnrichedTrade `json:"trades"`
	Timestamp int64                    `json:"timestamp"`
}

type Emitter interface {
	EmitTrades(trades []pipeline.EnrichedTrade) error
	Close()
}

type natsEmitter struct {
	conn    *nats.Conn
	subject string
}

func NewNATSEmitter(conn *nats.Conn, subject string) Emitter {
	return &natsEmitter{conn: conn, subject: subject}
}

func (e *natsEmitter) EmitTrades(trades []pipeline.EnrichedTrade) error {
	data, err := json.Marshal(TradeBatchEvent{
		Type:      "trades",
		Count:     len(trades),
		Trades:    trades,
		Timestamp: time.Now().UTC().Unix(),
	})
	if err != nil {
		return err
	}
	return e.conn.Publish(e.subject, data)
}

func (e *natsEmitter) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}
