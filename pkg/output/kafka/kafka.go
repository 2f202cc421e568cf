// Package kafka writes payloads to a Kafka topic, one message per cycle.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/config"
	"github.com/ericogr/greenhouse-node/pkg/output"
	kafka "github.com/segmentio/kafka-go"
)

const DefaultTopic = "greenhouse.sensors"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaOutput struct {
	w   messageWriter
	key []byte
}

// NewKafka keys every message with nodeID so one node's readings stay on
// one partition.
func NewKafka(cfg config.KafkaConfig, nodeID string, timeout time.Duration) *KafkaOutput {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  1,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
		BatchSize:    1,
	}
	return &KafkaOutput{w: w, key: []byte(nodeID)}
}

func (k *KafkaOutput) Submit(ctx context.Context, payload []byte) (output.Response, error) {
	msg := kafka.Message{Key: k.key, Value: payload, Time: time.Now()}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return output.Response{StatusCode: output.StatusConnectionFailed}, fmt.Errorf("kafka write: %w", err)
	}
	return output.Response{StatusCode: output.StatusDelivered}, nil
}

func (k *KafkaOutput) Close() error {
	return k.w.Close()
}
