package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/greenhouse-node/pkg/config"
	"github.com/ericogr/greenhouse-node/pkg/output"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "greenhouse-node"
	DefaultTopic    = "greenhouse/sensors"

	publishQoS     = 1
	publishTimeout = 5 * time.Second
)

// MQTTOutput publishes each payload to a single topic. The broker link is
// tracked through paho callbacks so it can double as the node's notion of
// being associated with the network.
type MQTTOutput struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// NewMQTT prepares the client without connecting; call Connect.
func NewMQTT(cfg config.MQTTConfig, logger *slog.Logger) *MQTTOutput {
	if logger == nil {
		logger = slog.Default()
	}
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	m := &MQTTOutput{topic: topic, logger: logger}

	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	// reconnection is driven by the scheduler's association step
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(publishTimeout)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		m.setConnected(true)
		logger.Info("mqtt connected", "server", server, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})
	m.client = mqtt.NewClient(opts)
	return m
}

func newWithClient(client mqtt.Client, topic string, logger *slog.Logger) *MQTTOutput {
	return &MQTTOutput{client: client, topic: topic, logger: logger}
}

// Connect makes a single connection attempt bounded by timeout.
func (m *MQTTOutput) Connect(timeout time.Duration) error {
	if m.IsConnected() {
		return nil
	}
	token := m.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connect: timeout after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	m.setConnected(true)
	return nil
}

func (m *MQTTOutput) Submit(ctx context.Context, payload []byte) (output.Response, error) {
	failed := output.Response{StatusCode: output.StatusConnectionFailed}
	if !m.IsConnected() {
		return failed, output.ErrNotConnected
	}
	token := m.client.Publish(m.topic, publishQoS, false, payload)
	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		return failed, fmt.Errorf("publish timeout for topic %s", m.topic)
	case <-ctx.Done():
		return failed, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return failed, fmt.Errorf("publish %s: %w", m.topic, err)
	}
	m.logger.Debug("published payload", "topic", m.topic, "bytes", len(payload))
	return output.Response{StatusCode: output.StatusDelivered}, nil
}

// IsConnected reports the broker link state.
func (m *MQTTOutput) IsConnected() bool {
	m.mu.RLock()
	connected := m.connected
	m.mu.RUnlock()
	return connected && m.client.IsConnected()
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	m.setConnected(false)
	return nil
}

func (m *MQTTOutput) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}
