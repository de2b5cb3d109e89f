package infra

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

// GetNATSConnection dials NATS with infinite reconnects so a broker restart
// never takes the pipeline down with it.
func GetNATSConnection(url string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1), // retry forever
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			logger.Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	return nats.Connect(url, opts...)
}
