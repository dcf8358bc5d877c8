package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

type fakeWriter struct {
	messages []skafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishStatusChanged(t *testing.T) {
	fw := &fakeWriter{}
	pub := NewPublisherWithWriter(fw, "kore.collections")

	ev := CollectionStatusChanged{
		CollectionID:     "col_123",
		RequestRef:       "a1b2c3d4",
		Provider:         "paywithaccount",
		OldStatus:        "PENDING",
		NewStatus:        "SUCCESS",
		AmountAllocation: "4950.00",
		Fee:              "50.00",
		AmountTotal:      "5000.00",
		Currency:         "NGN",
	}

	err := pub.PublishStatusChanged(context.Background(), ev)
	assert.NoError(t, err)
	assert.Len(t, fw.messages, 1)

	msg := fw.messages[0]
	assert.Equal(t, "a1b2c3d4", string(msg.Key))

	var got CollectionStatusChanged
	assert.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "col_123", got.CollectionID)
	assert.Equal(t, "SUCCESS", got.NewStatus)
	assert.Equal(t, "PENDING", got.OldStatus)
	assert.False(t, got.OccurredAt.IsZero(), "occurred_at should be stamped when empty")
}

func TestPublishStatusChangedKeepsTimestamp(t *testing.T) {
	fw := &fakeWriter{}
	pub := NewPublisherWithWriter(fw, "kore.collections")

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := pub.PublishStatusChanged(context.Background(), CollectionStatusChanged{
		RequestRef: "ref-1",
		OccurredAt: at,
	})
	assert.NoError(t, err)

	var got CollectionStatusChanged
	assert.NoError(t, json.Unmarshal(fw.messages[0].Value, &got))
	assert.True(t, got.OccurredAt.Equal(at))
}

func TestPublishStatusChangedWriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unreachable")}
	pub := NewPublisherWithWriter(fw, "kore.collections")

	err := pub.PublishStatusChanged(context.Background(), CollectionStatusChanged{RequestRef: "ref-2"})
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	pub := &Publisher{}
	assert.False(t, pub.Enabled())
	assert.NoError(t, pub.PublishStatusChanged(context.Background(), CollectionStatusChanged{RequestRef: "x"}))
	assert.NoError(t, pub.Close())
}

func TestPublisherClose(t *testing.T) {
	fw := &fakeWriter{}
	pub := NewPublisherWithWriter(fw, "kore.collections")
	assert.True(t, pub.Enabled())
	assert.NoError(t, pub.Close())
	assert.True(t, fw.closed)
}
