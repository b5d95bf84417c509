package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type FlagStore struct {
	db *sql.DB
}

func NewFlagStore(db *sql.DB) *FlagStore {
	return &FlagStore{db: db}
}

const flagColumns = `id, property_id, title, description, severity, status, created_by,
	resolved_by, resolved_at, created_at, updated_at, deleted_at`

func scanFlag(row scanner) (*domain.Flag, error) {
	f := &domain.Flag{}
	err := row.Scan(&f.ID, &f.PropertyID, &f.Title, &f.Description, &f.Severity, &f.Status, &f.CreatedBy,
		&f.ResolvedBy, &f.ResolvedAt, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FlagStore) Create(ctx context.Context, f *domain.Flag) (*domain.Flag, error) {
	now := domain.Now()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flags (id, property_id, title, description, severity, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.PropertyID, f.Title, f.Description, f.Severity, f.Status, f.CreatedBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create flag: %w", err)
	}
	return s.GetByID(ctx, f.ID)
}

func (s *FlagStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flag, error) {
	f, err := scanFlag(s.db.QueryRowContext(ctx, `
		SELECT `+flagColumns+` FROM flags WHERE id = ? AND deleted_at IS NULL
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}
	return f, nil
}

// ListByProperty returns the property's flags, most severe first. A nil
// status returns flags in every status.
func (s *FlagStore) ListByProperty(ctx context.Context, propertyID uuid.UUID, status *domain.FlagStatus) ([]*domain.Flag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+flagColumns+` FROM flags
		WHERE property_id = ? AND deleted_at IS NULL AND (? IS NULL OR status = ?)
		ORDER BY CASE severity
				WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3
			END ASC,
			created_at DESC
	`, propertyID, status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer closeRows(rows)

	flags := []*domain.Flag{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flags: %w", err)
	}
	return flags, nil
}

// CountOpenByProperties counts flags that are neither resolved nor dismissed.
func (s *FlagStore) CountOpenByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return countByProperties(ctx, s.db, `
		SELECT property_id, COUNT(*) FROM flags
		WHERE deleted_at IS NULL AND status IN (?, ?) AND property_id IN (%s)
		GROUP BY property_id
	`, ids, domain.FlagOpen, domain.FlagInProgress)
}

func (s *FlagStore) Update(ctx context.Context, f *domain.Flag) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE flags SET title = ?, description = ?, severity = ?, status = ?,
			resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, f.Title, f.Description, f.Severity, f.Status, f.ResolvedBy, utcPtr(f.ResolvedAt), domain.Now(), f.ID)
	if err != nil {
		return fmt.Errorf("failed to update flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "flag")
}

// Resolve closes the flag with status, recording who closed it and when.
func (s *FlagStore) Resolve(ctx context.Context, id uuid.UUID, status domain.FlagStatus, by uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE flags SET status = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, status, by, at, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "flag")
}
