package document

import (
	"database/sql"
	"encoding/json"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	documentsTable = "config_documents"
	revisionsTable = "config_document_revisions"
)

// DocumentRow represents the database row for a config document
type DocumentRow struct {
	Key       sql.NullString                  `db:"config_key"`
	Value     database.JSONB[json.RawMessage] `db:"value"`
	Version   sql.NullInt64                   `db:"version"`
	CreatedAt sql.NullTime                    `db:"created_at"`
	UpdatedAt sql.NullTime                    `db:"updated_at"`
	UpdatedBy sql.NullString                  `db:"updated_by"`
}

// RevisionRow represents the database row for a committed document version
type RevisionRow struct {
	Key       sql.NullString                  `db:"config_key"`
	Version   sql.NullInt64                   `db:"version"`
	Value     database.JSONB[json.RawMessage] `db:"value"`
	UpdatedBy sql.NullString                  `db:"updated_by"`
	CreatedAt sql.NullTime                    `db:"created_at"`
}

// RevisionSummaryRow is RevisionRow without the value, for history listings
type RevisionSummaryRow struct {
	Key       sql.NullString `db:"config_key"`
	Version   sql.NullInt64  `db:"version"`
	UpdatedBy sql.NullString `db:"updated_by"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

var (
	documentStruct        = database.NewStruct(new(DocumentRow))
	revisionStruct        = database.NewStruct(new(RevisionRow))
	revisionSummaryStruct = database.NewStruct(new(RevisionSummaryRow))
)

// ToDocument converts a database row to a domain model
func ToDocument(row *DocumentRow) *models.Document {
	return &models.Document{
		Key:       row.Key.String,
		Value:     row.Value.Data,
		Version:   int(row.Version.Int64),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
		UpdatedBy: row.UpdatedBy.String,
	}
}

func ToRevision(row *RevisionRow) *models.Revision {
	return &models.Revision{
		Key:       row.Key.String,
		Version:   int(row.Version.Int64),
		Value:     row.Value.Data,
		UpdatedBy: row.UpdatedBy.String,
		CreatedAt: row.CreatedAt.Time,
	}
}

func ToRevisionSummaries(rows []RevisionSummaryRow) []*models.Revision {
	revisions := make([]*models.Revision, len(rows))
	for i, row := range rows {
		revisions[i] = &models.Revision{
			Key:       row.Key.String,
			Version:   int(row.Version.Int64),
			UpdatedBy: row.UpdatedBy.String,
			CreatedAt: row.CreatedAt.Time,
		}
	}
	return revisions
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
