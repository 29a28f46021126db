package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *fakeWriter) *Producer {
	return NewProducerWithWriter(w, "config-documents", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestProducer_PublishDocumentEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	err := p.PublishDocumentEvent(context.Background(), &DocumentEvent{
		EventType: "config.document.updated",
		Key:       "pricing_data",
		Version:   3,
		UpdatedBy: "alice",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "config-documents", msg.Topic)
	assert.Equal(t, "pricing_data", string(msg.Key))

	var event DocumentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, 3, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "config.document.updated", headers["event_type"])
	assert.Equal(t, "3", headers["document_version"])
}

func TestProducer_PublishDocumentEvent_Error(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.PublishDocumentEvent(context.Background(), &DocumentEvent{Key: "pricing_data"})
	assert.EqualError(t, err, "broker down")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestProducer(w).Close())
	assert.True(t, w.closed)
}
