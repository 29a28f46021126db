// Package events handles event emission for config document changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	DocumentSeeded  = "config.document.seeded"
	DocumentUpdated = "config.document.updated"
)

// Publisher is implemented by *kafka.Producer
type Publisher interface {
	PublishDocumentEvent(ctx context.Context, event *kafka.DocumentEvent) error
}

// Emitter handles event emission for Clover. A nil publisher disables it.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitDocumentSeeded emits a document seeded event
func (e *Emitter) EmitDocumentSeeded(ctx context.Context, doc *models.Document) error {
	return e.emit(ctx, DocumentSeeded, doc)
}

// EmitDocumentUpdated emits a document updated event
func (e *Emitter) EmitDocumentUpdated(ctx context.Context, doc *models.Document) error {
	return e.emit(ctx, DocumentUpdated, doc)
}

func (e *Emitter) emit(ctx context.Context, eventType string, doc *models.Document) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.Emit")
	defer span.End()

	event := &kafka.DocumentEvent{
		EventType: eventType,
		Key:       doc.Key,
		Version:   doc.Version,
		UpdatedBy: doc.UpdatedBy,
		Timestamp: doc.UpdatedAt,
	}

	if err := e.publisher.PublishDocumentEvent(ctx, event); err != nil {
		metrics.EventPublishFailuresTotal.WithLabelValues(eventType).Inc()
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":     doc.Key,
			"version": doc.Version,
		}).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}
