// Package configstore serves versioned config documents with optimistic
// concurrency on top of the document repository.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/document"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/schema"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/validation"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// EventEmitter is implemented by *events.Emitter
type EventEmitter interface {
	EmitDocumentSeeded(ctx context.Context, doc *models.Document) error
	EmitDocumentUpdated(ctx context.Context, doc *models.Document) error
}

type Options struct {
	// AllowUnversionedWrites turns a put with expectedVersion 0 into an
	// unconditional overwrite instead of a create-only write.
	AllowUnversionedWrites bool
}

type Store struct {
	repo    document.DocumentRepository
	schemas *schema.Registry
	events  EventEmitter
	logger  ectologger.Logger
	opts    Options

	schemaReady atomic.Bool
	schemaMu    sync.Mutex
}

func NewStore(repo document.DocumentRepository, schemas *schema.Registry, events EventEmitter, logger ectologger.Logger, opts Options) *Store {
	return &Store{
		repo:    repo,
		schemas: schemas,
		events:  events,
		logger:  logger,
		opts:    opts,
	}
}

// MarkSchemaReady records that the tables exist, typically after the
// startup migration ran, so requests skip the idempotent DDL.
func (s *Store) MarkSchemaReady() {
	s.schemaReady.Store(true)
}

func (s *Store) SchemaReady() bool {
	return s.schemaReady.Load()
}

// Keys lists the documents this store serves.
func (s *Store) Keys() []string {
	return s.schemas.Keys()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s.schemaReady.Load() {
		return nil
	}

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady.Load() {
		return nil
	}

	if err := s.repo.EnsureSchema(ctx); err != nil {
		return err
	}

	s.schemaReady.Store(true)
	s.logger.WithContext(ctx).Info("Config storage schema is ready")
	return nil
}

// Get returns the current document for key, seeding it with the schema's
// default content the first time it is read.
func (s *Store) Get(ctx context.Context, key string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigStore.Get", tracing.ConfigKey(key))
	defer span.End()
	defer metrics.ObserveOperation("get", time.Now())

	sch, ok := s.schemas.Lookup(key)
	if !ok {
		return nil, unknownDocumentError(key)
	}

	doc, err := s.load(ctx, key, sch)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.DocumentReadsTotal.WithLabelValues(key, "error").Inc()
		return nil, err
	}

	normalized, err := sch.Normalize(doc.Value)
	if err != nil {
		// serve what is stored; the next put replaces it with a valid document
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":     key,
			"version": doc.Version,
		}).Warn("Stored config document does not normalize")
	} else {
		doc.Value = normalized
	}

	tracing.DocumentVersion(span, doc.Version)
	metrics.DocumentReadsTotal.WithLabelValues(key, "ok").Inc()
	metrics.DocumentVersion.WithLabelValues(key).Set(float64(doc.Version))

	return doc, nil
}

func (s *Store) load(ctx context.Context, key string, sch schema.Schema) (*models.Document, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	doc, err := s.repo.Get(ctx, key)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, document.ErrNotFound) {
		return nil, err
	}

	seedValue, err := sch.Seed()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Error("Failed to build seed document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to seed config document")
	}

	seeded, inserted, err := s.repo.Seed(ctx, key, seedValue)
	if err != nil {
		return nil, err
	}

	if !inserted {
		// a concurrent reader seeded first, read what it wrote
		doc, err = s.repo.Get(ctx, key)
		if err != nil {
			if errors.Is(err, document.ErrNotFound) {
				return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to seed config document")
			}
			return nil, err
		}
		return doc, nil
	}

	metrics.DocumentSeedsTotal.WithLabelValues(key).Inc()
	_ = s.events.EmitDocumentSeeded(ctx, seeded)

	return seeded, nil
}

// Put validates value and stores it as the next version when
// expectedVersion matches the stored version. On success the returned
// document carries the new version.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage, expectedVersion int, updatedBy string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigStore.Put", tracing.ConfigKey(key), tracing.AttrExpectedVersion.Int(expectedVersion))
	defer span.End()
	defer metrics.ObserveOperation("put", time.Now())

	sch, ok := s.schemas.Lookup(key)
	if !ok {
		return nil, unknownDocumentError(key)
	}

	if expectedVersion < 0 {
		metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeInvalid).Inc()
		return nil, &schema.ValidationError{Fields: []validation.FieldError{{
			Field:   "expectedVersion",
			Message: "must be greater than or equal to 0",
		}}}
	}

	normalized, err := sch.Normalize(value)
	if err != nil {
		metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeError).Inc()
		return nil, err
	}

	var doc *models.Document
	switch {
	case expectedVersion > 0:
		doc, err = s.repo.CompareAndSwap(ctx, key, normalized, expectedVersion, updatedBy)
	case s.opts.AllowUnversionedWrites:
		doc, err = s.repo.Upsert(ctx, key, normalized, updatedBy)
	default:
		doc, err = s.repo.Create(ctx, key, normalized, updatedBy)
	}

	if err != nil {
		var mismatch *document.VersionMismatchError
		if errors.As(err, &mismatch) {
			metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeConflict).Inc()
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"key":              key,
				"expected_version": mismatch.Expected,
				"current_version":  mismatch.Current,
				"updated_by":       updatedBy,
			}).Info("Rejected stale config document write")
			return nil, &VersionConflictError{
				Key:             key,
				ExpectedVersion: mismatch.Expected,
				CurrentVersion:  mismatch.Current,
			}
		}

		tracing.RecordError(span, err)
		metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeError).Inc()
		return nil, err
	}

	tracing.DocumentVersion(span, doc.Version)
	metrics.DocumentWritesTotal.WithLabelValues(key, metrics.OutcomeCommitted).Inc()
	metrics.DocumentVersion.WithLabelValues(key).Set(float64(doc.Version))

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"key":              key,
		"version":          doc.Version,
		"expected_version": expectedVersion,
		"updated_by":       updatedBy,
	}).Info("Committed config document")

	_ = s.events.EmitDocumentUpdated(ctx, doc)

	return doc, nil
}

// History lists committed versions of key, newest first, without values.
func (s *Store) History(ctx context.Context, key string, limit int) ([]*models.Revision, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigStore.History", tracing.ConfigKey(key))
	defer span.End()

	if _, ok := s.schemas.Lookup(key); !ok {
		return nil, unknownDocumentError(key)
	}

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	return s.repo.ListRevisions(ctx, key, ClampHistoryLimit(limit))
}

// Revision returns the value committed as version of key.
func (s *Store) Revision(ctx context.Context, key string, version int) (*models.Revision, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigStore.Revision", tracing.ConfigKey(key))
	defer span.End()

	if _, ok := s.schemas.Lookup(key); !ok {
		return nil, unknownDocumentError(key)
	}

	if version < 1 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "revision not found")
	}

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rev, err := s.repo.GetRevision(ctx, key, version)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "revision not found")
		}
		return nil, err
	}
	return rev, nil
}

func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
