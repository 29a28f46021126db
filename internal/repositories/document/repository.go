package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/db"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SeedAuthor is recorded as updated_by on seeded rows.
const SeedAuthor = "system:seed"

var ErrNotFound = errors.New("config document not found")

// VersionMismatchError reports a conditional write that matched no row.
// Current is 0 when the document does not exist.
type VersionMismatchError struct {
	Key      string
	Expected int
	Current  int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("config document %q is at version %d, expected %d", e.Key, e.Current, e.Expected)
}

// DocumentRepository defines the interface for config document data access
type DocumentRepository interface {
	EnsureSchema(ctx context.Context) error
	Get(ctx context.Context, key string) (*models.Document, error)
	Seed(ctx context.Context, key string, value json.RawMessage) (*models.Document, bool, error)
	CompareAndSwap(ctx context.Context, key string, value json.RawMessage, expectedVersion int, updatedBy string) (*models.Document, error)
	Create(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*models.Document, error)
	Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*models.Document, error)
	ListRevisions(ctx context.Context, key string, limit int) ([]*models.Revision, error)
	GetRevision(ctx context.Context, key string, version int) (*models.Revision, error)
}

// Repository implements DocumentRepository on Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema applies the embedded up migrations. Every statement is
// idempotent, so this is safe on an already migrated database.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.EnsureSchema")
	defer span.End()

	entries, err := fs.ReadDir(db.Migrations, db.PostgresPath)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read embedded migrations")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to prepare config storage")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		stmt, err := fs.ReadFile(db.Migrations, path.Join(db.PostgresPath, entry.Name()))
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Errorf("Failed to read migration %s", entry.Name())
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to prepare config storage")
		}

		if _, err := r.db.ExecContext(ctx, string(stmt)); err != nil {
			r.logger.WithContext(ctx).WithError(err).Errorf("Failed to apply migration %s", entry.Name())
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to prepare config storage")
		}
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, key string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Get")
	defer span.End()

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(sb.Equal("config_key", key))

	query, args := sb.Build()

	var row DocumentRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Error("Failed to get config document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config document")
	}

	return ToDocument(&row), nil
}

// Seed inserts value as version 1 unless the key already exists. The bool
// reports whether this call created the row.
func (r *Repository) Seed(ctx context.Context, key string, value json.RawMessage) (*models.Document, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Seed")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(documentsTable).
		Cols("config_key", "value", "version", "created_at", "updated_at", "updated_by").
		Values(key, database.JSONB[json.RawMessage]{Data: value}, 1, database.Now, database.Now, SeedAuthor)
	ib.OnConflictDoNothing("config_key")
	ib.ReturningCols(returningCols...)

	query, args := ib.Build()

	doc, err := r.write(ctx, key, value, SeedAuthor, 0, query, args)
	if err != nil {
		var mismatch *VersionMismatchError
		if errors.As(err, &mismatch) {
			// another reader seeded first
			return nil, false, nil
		}
		return nil, false, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"key": key,
	}).Info("Seeded config document")

	return doc, true, nil
}

// CompareAndSwap replaces the value only when the stored version equals
// expectedVersion, bumping the version by one.
func (r *Repository) CompareAndSwap(ctx context.Context, key string, value json.RawMessage, expectedVersion int, updatedBy string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.CompareAndSwap")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(documentsTable).Set(
		ub.Assign("value", database.JSONB[json.RawMessage]{Data: value}),
		ub.Incr("version"),
		ub.Assign("updated_at", database.Now),
		ub.Assign("updated_by", nullString(updatedBy)),
	)
	ub.Where(
		ub.Equal("config_key", key),
		ub.Equal("version", expectedVersion),
	)
	ub.ReturningCols(returningCols...)

	query, args := ub.Build()

	return r.write(ctx, key, value, updatedBy, expectedVersion, query, args)
}

// Create writes version 1 and fails with a VersionMismatchError when the
// key already exists.
func (r *Repository) Create(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Create")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(documentsTable).
		Cols("config_key", "value", "version", "created_at", "updated_at", "updated_by").
		Values(key, database.JSONB[json.RawMessage]{Data: value}, 1, database.Now, database.Now, nullString(updatedBy))
	ib.OnConflictDoNothing("config_key")
	ib.ReturningCols(returningCols...)

	query, args := ib.Build()

	return r.write(ctx, key, value, updatedBy, 0, query, args)
}

// Upsert writes without a version check, creating the row at version 1 or
// bumping the stored version.
func (r *Repository) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Upsert")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(documentsTable).
		Cols("config_key", "value", "version", "created_at", "updated_at", "updated_by").
		Values(key, database.JSONB[json.RawMessage]{Data: value}, 1, database.Now, database.Now, nullString(updatedBy))
	ub := ib.OnConflict("config_key")
	ub.Set(
		ub.Assign("value", database.Excluded("value")),
		ub.Assign("version", database.Raw(documentsTable+".version + 1")),
		ub.Assign("updated_at", database.Now),
		ub.Assign("updated_by", database.Excluded("updated_by")),
	)
	ib.ReturningCols(returningCols...)

	query, args := ib.Build()

	return r.write(ctx, key, value, updatedBy, 0, query, args)
}

func (r *Repository) ListRevisions(ctx context.Context, key string, limit int) ([]*models.Revision, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.ListRevisions")
	defer span.End()

	sb := revisionSummaryStruct.SelectFrom(revisionsTable)
	sb.Where(sb.Equal("config_key", key))
	sb.OrderBy("version").Desc()
	sb.Limit(limit)

	query, args := sb.Build()

	var rows []RevisionSummaryRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":   key,
			"limit": limit,
		}).Error("Failed to list config document revisions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list config document revisions")
	}

	return ToRevisionSummaries(rows), nil
}

func (r *Repository) GetRevision(ctx context.Context, key string, version int) (*models.Revision, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.GetRevision")
	defer span.End()

	sb := revisionStruct.SelectFrom(revisionsTable)
	sb.Where(
		sb.Equal("config_key", key),
		sb.Equal("version", version),
	)

	query, args := sb.Build()

	var row RevisionRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":     key,
			"version": version,
		}).Error("Failed to get config document revision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config document revision")
	}

	return ToRevision(&row), nil
}

var returningCols = []string{"config_key", "version", "created_at", "updated_at", "updated_by"}

// write runs a single conditional statement and records the revision in the
// same transaction. A statement that returns no row is a version mismatch.
func (r *Repository) write(ctx context.Context, key string, value json.RawMessage, updatedBy string, expectedVersion int, query string, args []any) (*models.Document, error) {
	ctx, tx, err := r.db.GetTx(ctx, database.WriteTxOptions)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to write config document")
	}
	defer tx.Rollback(ctx)

	var row DocumentRow
	err = tx.GetContext(ctx, &row, query, args...)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"key":              key,
				"expected_version": expectedVersion,
			}).Error("Failed to write config document")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to write config document")
		}

		current, err := r.currentVersion(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		return nil, &VersionMismatchError{Key: key, Expected: expectedVersion, Current: current}
	}

	version := int(row.Version.Int64)

	ib := database.NewInsertBuilder()
	ib.InsertInto(revisionsTable).
		Cols("config_key", "version", "value", "updated_by", "created_at").
		Values(key, version, database.JSONB[json.RawMessage]{Data: value}, nullString(updatedBy), database.Now)

	revQuery, revArgs := ib.Build()
	if _, err := tx.ExecContext(ctx, revQuery, revArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":     key,
			"version": version,
		}).Error("Failed to record config document revision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to write config document")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to write config document")
	}

	doc := ToDocument(&row)
	doc.Value = value

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"key":              key,
		"version":          version,
		"expected_version": expectedVersion,
		"updated_by":       updatedBy,
	}).Debug("Wrote config document")

	return doc, nil
}

func (r *Repository) currentVersion(ctx context.Context, tx database.Tx, key string) (int, error) {
	sb := database.NewSelectBuilder()
	sb.Select("version").From(documentsTable).Where(sb.Equal("config_key", key))

	query, args := sb.Build()

	var version int
	err := tx.GetContext(ctx, &version, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Error("Failed to read config document version")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to write config document")
	}
	return version, nil
}
