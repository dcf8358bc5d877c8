// Package events publishes collection domain events to Kafka. With no
// broker configured the publisher is a no-op; event delivery is
// best-effort everywhere and never blocks the pipeline.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/metrics"
)

const TopicCollectionStatusChanged = "collection.status_changed"

// CollectionStatusChanged is the message body published whenever a
// collection status transition is admitted.
type CollectionStatusChanged struct {
	CollectionID     string    `json:"collection_id"`
	RequestRef       string    `json:"request_ref"`
	Provider         string    `json:"provider"`
	OldStatus        string    `json:"old_status"`
	NewStatus        string    `json:"new_status"`
	AmountAllocation string    `json:"amount_allocation"`
	Fee              string    `json:"fee"`
	AmountTotal      string    `json:"amount_total"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Writer defines the subset of the kafka-go writer we need. This makes
// the publisher testable.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher hands domain events to the broker.
type Publisher struct {
	writer Writer
	topic  string
}

// NewPublisherFromEnv builds a Kafka publisher from KAFKA_BROKER and
// KAFKA_TOPIC. An empty broker yields a no-op publisher.
func NewPublisherFromEnv() *Publisher {
	broker := env.GetEnv("KAFKA_BROKER", "")
	if broker == "" {
		return &Publisher{}
	}
	topic := env.GetEnv("KAFKA_TOPIC", "kore.collections")
	w := &skafka.Writer{
		Addr:     skafka.TCP(broker),
		Topic:    topic,
		Balancer: &skafka.LeastBytes{},
	}
	return &Publisher{writer: w, topic: topic}
}

// NewPublisherWithWriter allows injecting a test writer.
func NewPublisherWithWriter(w Writer, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// PublishStatusChanged sends a collection.status_changed message keyed
// by request_ref. Failures are logged and counted, never returned as
// fatal to the caller's transaction.
func (p *Publisher) PublishStatusChanged(ctx context.Context, ev CollectionStatusChanged) error {
	if p.writer == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("events: marshal status change: %v", err)
		metrics.RecordEventPublished(TopicCollectionStatusChanged, "error")
		return err
	}

	msg := skafka.Message{
		Key:   []byte(ev.RequestRef),
		Value: body,
		Headers: []skafka.Header{
			{Key: "event_type", Value: []byte(TopicCollectionStatusChanged)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("events: kafka write error: %v", err)
		metrics.RecordEventPublished(TopicCollectionStatusChanged, "error")
		return err
	}
	metrics.RecordEventPublished(TopicCollectionStatusChanged, "ok")
	return nil
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
