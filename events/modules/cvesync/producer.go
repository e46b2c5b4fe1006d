// Package cvesync handles Kafka event production for CVE sync runs.
package cvesync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ortelius/pdvd-cvesync/model"
)

// MessageWriter is the subset of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SyncProducer sends sync completion events to Kafka
type SyncProducer struct {
	Writer MessageWriter
}

// NewSyncProducer initializes a new Kafka writer for sync events
func NewSyncProducer(brokers []string, topic string, transport *kafka.Transport) *SyncProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	if transport != nil {
		writer.Transport = transport
	}
	return &SyncProducer{Writer: writer}
}

// NewSyncCompletedEvent builds the event contract for a finished run
func NewSyncCompletedEvent(summary model.SyncSummary) SyncCompletedEvent {
	return SyncCompletedEvent{
		EventType:     EventTypeComplete,
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		Success:       summary.Succeeded(),
		Summary:       summary,
	}
}

// PublishSyncCompleted implements ingest.Publisher
func (p *SyncProducer) PublishSyncCompleted(ctx context.Context, summary model.SyncSummary) error {
	event := NewSyncCompletedEvent(summary)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(summary.Mode),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *SyncProducer) Close() error {
	return p.Writer.Close()
}
