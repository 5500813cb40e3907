// Package events publishes accepted measurement batches to Kafka so
// downstream consumers (aggregation, alerting) can follow the ingest
// stream without querying the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/sensord/sensord/internal/models"
)

// Producer wraps a Kafka writer. Messages are keyed by device id so one
// device's readings stay in partition order.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishMeasurements sends one message per measurement.
func (p *Producer) PublishMeasurements(ctx context.Context, deviceID string, rows []models.Measurement) error {
	msgs := make([]kafka.Message, len(rows))
	for i, row := range rows {
		value, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal measurement: %w", err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(deviceID),
			Value: value,
		}
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
