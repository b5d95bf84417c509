package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type MediaStore struct {
	db *sql.DB
}

func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

const mediaColumns = `id, property_id, media_type, caption, storage_key, mime_type, size_bytes,
	sort_order, uploaded_by, created_at, updated_at, deleted_at`

func scanMedia(row scanner) (*domain.Media, error) {
	m := &domain.Media{}
	err := row.Scan(&m.ID, &m.PropertyID, &m.MediaType, &m.Caption, &m.StorageKey, &m.MimeType, &m.SizeBytes,
		&m.SortOrder, &m.UploadedBy, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create appends m after the property's existing media.
func (s *MediaStore) Create(ctx context.Context, m *domain.Media) (*domain.Media, error) {
	now := domain.Now()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, property_id, media_type, caption, storage_key, mime_type, size_bytes,
			sort_order, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM media WHERE property_id = ? AND deleted_at IS NULL),
			?, ?, ?)
	`, m.ID, m.PropertyID, m.MediaType, m.Caption, m.StorageKey, m.MimeType, m.SizeBytes,
		m.PropertyID, m.UploadedBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}
	return s.GetByID(ctx, m.ID)
}

func (s *MediaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	m, err := scanMedia(s.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+` FROM media WHERE id = ? AND deleted_at IS NULL
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return m, nil
}

func (s *MediaStore) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE property_id = ? AND deleted_at IS NULL
		ORDER BY sort_order ASC, created_at ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer closeRows(rows)

	media := []*domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return media, nil
}

// FirstPhotoByProperties returns the lowest-ordered live photo of each property.
func (s *MediaStore) FirstPhotoByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Media, error) {
	first := make(map[uuid.UUID]*domain.Media, len(ids))
	if len(ids) == 0 {
		return first, nil
	}
	marks, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE media_type = ? AND deleted_at IS NULL AND property_id IN (`+marks+`)
		ORDER BY property_id, sort_order ASC, created_at ASC
	`, append([]any{domain.MediaPhoto}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		if _, seen := first[m.PropertyID]; !seen {
			first[m.PropertyID] = m
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return first, nil
}

func (s *MediaStore) CountByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return countByProperties(ctx, s.db, `
		SELECT property_id, COUNT(*) FROM media
		WHERE deleted_at IS NULL AND property_id IN (%s)
		GROUP BY property_id
	`, ids)
}

func (s *MediaStore) Update(ctx context.Context, id uuid.UUID, caption string, sortOrder int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE media SET caption = ?, sort_order = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, caption, sortOrder, domain.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "media")
}

func (s *MediaStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := domain.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE media SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "media")
}
