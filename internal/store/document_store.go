package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, property_id, title, document_type, file_name, storage_key, mime_type,
	size_bytes, uploaded_by, created_at, updated_at, deleted_at`

func scanDocument(row scanner) (*domain.Document, error) {
	d := &domain.Document{}
	err := row.Scan(&d.ID, &d.PropertyID, &d.Title, &d.DocumentType, &d.FileName, &d.StorageKey, &d.MimeType,
		&d.SizeBytes, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DocumentStore) Create(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	now := domain.Now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, property_id, title, document_type, file_name, storage_key, mime_type,
			size_bytes, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.PropertyID, d.Title, d.DocumentType, d.FileName, d.StorageKey, d.MimeType,
		d.SizeBytes, d.UploadedBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return s.GetByID(ctx, d.ID)
}

func (s *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ? AND deleted_at IS NULL
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

func (s *DocumentStore) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE property_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, title ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer closeRows(rows)

	docs := []*domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// CountByProperties returns live document counts keyed by property id.
// Properties without documents are absent from the map.
func (s *DocumentStore) CountByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return countByProperties(ctx, s.db, `
		SELECT property_id, COUNT(*) FROM documents
		WHERE deleted_at IS NULL AND property_id IN (%s)
		GROUP BY property_id
	`, ids)
}

func (s *DocumentStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := domain.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "document")
}

// countByProperties runs a "property_id, COUNT(*)" query whose IN list is
// substituted for %s.
func countByProperties(ctx context.Context, db *sql.DB, query string, ids []uuid.UUID, extra ...any) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	marks, args := inClause(ids)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(query, marks), append(extra, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by property: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}
