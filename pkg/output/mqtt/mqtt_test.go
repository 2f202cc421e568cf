package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/greenhouse-node/pkg/config"
	"github.com/ericogr/greenhouse-node/pkg/output"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient implements the parts of mqtt.Client the output uses.
type fakeClient struct {
	mqtt.Client
	connected  bool
	connectErr error
	publishErr error
	topic      string
	qos        byte
	payload    []byte
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Connect() mqtt.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return newToken(c.connectErr)
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return newToken(c.publishErr)
}

func (c *fakeClient) Disconnect(uint) { c.connected = false }

func TestSubmitRequiresConnection(t *testing.T) {
	m := newWithClient(&fakeClient{}, DefaultTopic, slog.Default())
	resp, err := m.Submit(context.Background(), []byte(`{}`))
	if !errors.Is(err, output.ErrNotConnected) {
		t.Fatalf("err: got %v want ErrNotConnected", err)
	}
	if resp.Completed() {
		t.Fatalf("response should not be completed: %+v", resp)
	}
}

func TestConnectThenSubmit(t *testing.T) {
	fc := &fakeClient{}
	m := newWithClient(fc, "greenhouse/a", slog.Default())
	if err := m.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected")
	}
	resp, err := m.Submit(context.Background(), []byte(`{"co2_ppm":700}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.StatusCode != output.StatusDelivered {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if fc.topic != "greenhouse/a" || fc.qos != publishQoS || string(fc.payload) != `{"co2_ppm":700}` {
		t.Fatalf("publish: topic=%s qos=%d payload=%s", fc.topic, fc.qos, fc.payload)
	}
	_ = m.Close()
	if m.IsConnected() {
		t.Fatalf("expected disconnected after Close")
	}
}

func TestConnectError(t *testing.T) {
	m := newWithClient(&fakeClient{connectErr: errors.New("refused")}, DefaultTopic, slog.Default())
	if err := m.Connect(time.Second); err == nil {
		t.Fatalf("expected connect error")
	}
	if m.IsConnected() {
		t.Fatalf("should not be connected")
	}
}

func TestSubmitPublishError(t *testing.T) {
	fc := &fakeClient{publishErr: errors.New("not authorized")}
	m := newWithClient(fc, DefaultTopic, slog.Default())
	if err := m.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	resp, err := m.Submit(context.Background(), []byte(`{}`))
	if err == nil || resp.StatusCode != output.StatusConnectionFailed {
		t.Fatalf("got %+v, %v", resp, err)
	}
}

func TestNewMQTTDefaults(t *testing.T) {
	m := NewMQTT(config.MQTTConfig{}, nil)
	if m.topic != DefaultTopic {
		t.Fatalf("topic: %q", m.topic)
	}
	if m.IsConnected() {
		t.Fatalf("new client must not report connected")
	}
}
