package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type PropertyStore struct {
	db *sql.DB
}

func NewPropertyStore(db *sql.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

const propertyColumns = `id, uprn, title_number, address_line1, address_line2, town, postcode,
	property_type, tenure, bedrooms, latitude, longitude, is_public, status,
	created_by, created_at, updated_at, deleted_at`

func scanProperty(row scanner) (*domain.Property, error) {
	p := &domain.Property{}
	err := row.Scan(&p.ID, &p.UPRN, &p.TitleNumber, &p.AddressLine1, &p.AddressLine2, &p.Town, &p.Postcode,
		&p.PropertyType, &p.Tenure, &p.Bedrooms, &p.Latitude, &p.Longitude, &p.IsPublic, &p.Status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateWithOwner inserts p and the creator's owner role in one transaction.
func (s *PropertyStore) CreateWithOwner(ctx context.Context, p *domain.Property) (*domain.Property, error) {
	now := domain.Now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, uprn, title_number, address_line1, address_line2, town, postcode,
			property_type, tenure, bedrooms, latitude, longitude, is_public, status,
			created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UPRN, p.TitleNumber, p.AddressLine1, p.AddressLine2, p.Town, p.Postcode,
		p.PropertyType, p.Tenure, p.Bedrooms, p.Latitude, p.Longitude, p.IsPublic, p.Status,
		p.CreatedBy, now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("property with this UPRN: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO property_roles (id, property_id, user_id, status, granted_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New(), p.ID, p.CreatedBy, domain.StatusOwner, p.CreatedBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit property: %w", err)
	}
	return s.GetByID(ctx, p.ID)
}

func (s *PropertyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `
		SELECT `+propertyColumns+` FROM properties WHERE id = ? AND deleted_at IS NULL
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// ListByIDs returns the live properties among ids, most recently updated first.
func (s *PropertyStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyColumns+` FROM properties
		WHERE id IN (`+marks+`) AND deleted_at IS NULL
		ORDER BY updated_at DESC, address_line1 ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer closeRows(rows)

	var properties []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

// Update writes the editable details of p. Visibility and ownership have
// their own operations.
func (s *PropertyStore) Update(ctx context.Context, p *domain.Property) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET uprn = ?, title_number = ?, address_line1 = ?, address_line2 = ?,
			town = ?, postcode = ?, property_type = ?, tenure = ?, bedrooms = ?,
			latitude = ?, longitude = ?, status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, p.UPRN, p.TitleNumber, p.AddressLine1, p.AddressLine2,
		p.Town, p.Postcode, p.PropertyType, p.Tenure, p.Bedrooms,
		p.Latitude, p.Longitude, p.Status, domain.Now(), p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("property with this UPRN: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "property")
}

func (s *PropertyStore) SetVisibility(ctx context.Context, id uuid.UUID, public bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET is_public = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, public, domain.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "property")
}

// Touch bumps updated_at so dashboards order by recent activity.
func (s *PropertyStore) Touch(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE properties SET updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, domain.Now(), id); err != nil {
		return fmt.Errorf("failed to touch property: %w", err)
	}
	return nil
}

func (s *PropertyStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := domain.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "property")
}
