package network

import (
	"context"
	"log/slog"
	"time"
)

const minConnectTimeout = time.Second

// BrokerLink is a transport that keeps its own connection, such as an MQTT
// client.
type BrokerLink interface {
	IsConnected() bool
	Connect(timeout time.Duration) error
}

// Broker treats the transport's broker connection as the association.
type Broker struct {
	link   BrokerLink
	logger *slog.Logger
}

func NewBroker(link BrokerLink, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{link: link, logger: logger}
}

func (b *Broker) IsAssociated() bool { return b.link.IsConnected() }

func (b *Broker) Associate(ctx context.Context, attempts int, delay time.Duration) bool {
	timeout := delay
	if timeout < minConnectTimeout {
		timeout = minConnectTimeout
	}
	attempt := 0
	return poll(ctx, attempts, delay, func() bool {
		attempt++
		if err := b.link.Connect(timeout); err != nil {
			b.logger.Debug("broker connect attempt failed", "attempt", attempt, "error", err)
			return false
		}
		return true
	})
}
