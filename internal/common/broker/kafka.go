// internal/common/broker/kafka.go
package broker

import (
	"context"
	"fmt"
	"time"

	"matching-engine/internal/common/config"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer wraps the Kafka writer for the leads topic.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer for the configured leads topic.
// Acks from all in-sync replicas are required before a publish is reported
// successful.
func NewKafkaProducer(cfg config.KafkaConfig) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.LeadsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: config.GetDuration(cfg.PublishTimeout),
			BatchSize:    1, // one publish call per qualifying pairing
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish sends one keyed message and waits for the broker acknowledgment.
func (p *KafkaProducer) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("kafka publish key=%s: %w", key, err)
	}
	return nil
}

// Ping verifies the broker connection by resolving the topic leader.
func (p *KafkaProducer) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.writer.Addr.String())
	if err != nil {
		return fmt.Errorf("kafka dial failed: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(p.writer.Topic); err != nil {
		return fmt.Errorf("kafka topic lookup failed: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
