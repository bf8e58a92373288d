package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const documentColumns = `id, user_id, title, storage_key, content_type,
	size_bytes, status, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.UserID, &d.Title, &d.StorageKey, &d.ContentType,
		&d.SizeBytes, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// CreateDocumentParams are the parameters for CreateDocument.
type CreateDocumentParams struct {
	UserID      uuid.UUID
	Title       string
	StorageKey  string
	ContentType string
	SizeBytes   int64
}

// CreateDocument inserts a document row in the uploaded state.
func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	const query = `
		INSERT INTO documents (user_id, title, storage_key, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, 'uploaded')
		RETURNING ` + documentColumns
	return scanDocument(q.db.QueryRowContext(ctx, query,
		arg.UserID, arg.Title, arg.StorageKey, arg.ContentType, arg.SizeBytes))
}

// GetDocumentByID fetches a document by primary key.
func (q *Queries) GetDocumentByID(ctx context.Context, id uuid.UUID) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(q.db.QueryRowContext(ctx, query, id))
}

// ListDocumentsByUser returns a user's documents, newest first.
func (q *Queries) ListDocumentsByUser(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	const query = `
		SELECT ` + documentColumns + `
		FROM documents WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocumentStatusParams are the parameters for UpdateDocumentStatus.
type UpdateDocumentStatusParams struct {
	ID     uuid.UUID
	Status string
}

// UpdateDocumentStatus moves a document through the processing lifecycle.
func (q *Queries) UpdateDocumentStatus(ctx context.Context, arg UpdateDocumentStatusParams) error {
	const query = `UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.Status)
	return err
}

// DeleteDocument removes a document row.
func (q *Queries) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// CountDocumentsByUserSinceParams are the parameters for CountDocumentsByUserSince.
type CountDocumentsByUserSinceParams struct {
	UserID       uuid.UUID
	CreatedAfter time.Time
}

// CountDocumentsByUserSince counts a user's documents created at or after
// the given time. This is the audit source of truth when reconciling the
// monthly document counter.
func (q *Queries) CountDocumentsByUserSince(ctx context.Context, arg CountDocumentsByUserSinceParams) (int64, error) {
	const query = `
		SELECT count(*) FROM documents
		WHERE user_id = $1 AND created_at >= $2`
	var count int64
	err := q.db.QueryRowContext(ctx, query, arg.UserID, arg.CreatedAfter).Scan(&count)
	return count, err
}

// CountDocumentsByUser counts all of a user's documents (badge metric).
func (q *Queries) CountDocumentsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `SELECT count(*) FROM documents WHERE user_id = $1`
	var count int64
	err := q.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

// CountDocuments counts all documents across users (admin overview).
func (q *Queries) CountDocuments(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM documents`
	var count int64
	err := q.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// CreateStudyMaterialParams are the parameters for CreateStudyMaterial.
type CreateStudyMaterialParams struct {
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Kind       string
	Content    []byte
}

// CreateStudyMaterial inserts an AI-generated artifact for a document.
func (q *Queries) CreateStudyMaterial(ctx context.Context, arg CreateStudyMaterialParams) (StudyMaterial, error) {
	const query = `
		INSERT INTO study_materials (document_id, user_id, kind, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, user_id, kind, content, created_at`
	var m StudyMaterial
	err := q.db.QueryRowContext(ctx, query, arg.DocumentID, arg.UserID, arg.Kind, arg.Content).
		Scan(&m.ID, &m.DocumentID, &m.UserID, &m.Kind, &m.Content, &m.CreatedAt)
	return m, err
}

// ListStudyMaterialsByDocument returns a document's artifacts, newest first.
func (q *Queries) ListStudyMaterialsByDocument(ctx context.Context, documentID uuid.UUID) ([]StudyMaterial, error) {
	const query = `
		SELECT id, document_id, user_id, kind, content, created_at
		FROM study_materials WHERE document_id = $1
		ORDER BY created_at DESC`
	rows, err := q.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StudyMaterial
	for rows.Next() {
		var m StudyMaterial
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.UserID, &m.Kind, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
