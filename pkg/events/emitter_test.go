package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakePublisher struct {
	events []*kafka.DocumentEvent
	err    error
}

func (p *fakePublisher) PublishDocumentEvent(_ context.Context, event *kafka.DocumentEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

var noopLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func TestEmitter_EmitDocumentUpdated(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, noopLogger)
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	err := e.EmitDocumentUpdated(context.Background(), &models.Document{
		Key:       "pricing_data",
		Version:   2,
		UpdatedBy: "alice",
		UpdatedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, DocumentUpdated, pub.events[0].EventType)
	assert.Equal(t, "pricing_data", pub.events[0].Key)
	assert.Equal(t, 2, pub.events[0].Version)
	assert.Equal(t, at, pub.events[0].Timestamp)
}

func TestEmitter_EmitDocumentSeeded(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, noopLogger)

	require.NoError(t, e.EmitDocumentSeeded(context.Background(), &models.Document{Key: "pricing_data", Version: 1}))
	require.Len(t, pub.events, 1)
	assert.Equal(t, DocumentSeeded, pub.events[0].EventType)
}

func TestEmitter_Disabled(t *testing.T) {
	e := NewEmitter(nil, noopLogger)
	assert.NoError(t, e.EmitDocumentUpdated(context.Background(), &models.Document{Key: "pricing_data"}))

	var nilEmitter *Emitter
	assert.NoError(t, nilEmitter.EmitDocumentUpdated(context.Background(), &models.Document{Key: "pricing_data"}))
}

func TestEmitter_PublishFailure(t *testing.T) {
	e := NewEmitter(&fakePublisher{err: errors.New("broker down")}, noopLogger)
	err := e.EmitDocumentUpdated(context.Background(), &models.Document{Key: "pricing_data", Version: 5})
	assert.Error(t, err)
}
