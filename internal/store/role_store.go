package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type RoleStore struct {
	db *sql.DB
}

func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

const roleColumns = `r.id, r.property_id, r.user_id, r.status, r.permission, r.granted_by,
	r.expires_at, r.created_at, r.updated_at, r.deleted_at`

func scanRole(row scanner, extra ...any) (*domain.Role, error) {
	r := &domain.Role{}
	dest := append([]any{&r.ID, &r.PropertyID, &r.UserID, &r.Status, &r.Permission, &r.GrantedBy,
		&r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoleStore) Create(ctx context.Context, r *domain.Role) (*domain.Role, error) {
	now := domain.Now()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_roles (id, property_id, user_id, status, permission, granted_by, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.PropertyID, r.UserID, r.Status, r.Permission, r.GrantedBy, utcPtr(r.ExpiresAt), now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("stakeholder role: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return s.GetByID(ctx, r.ID)
}

func (s *RoleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `
		SELECT `+roleColumns+` FROM property_roles r WHERE r.id = ? AND r.deleted_at IS NULL
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// GetForUser returns the user's non-deleted role on a property, expired or not.
func (s *RoleStore) GetForUser(ctx context.Context, propertyID, userID uuid.UUID) (*domain.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `
		SELECT `+roleColumns+` FROM property_roles r
		WHERE r.property_id = ? AND r.user_id = ? AND r.deleted_at IS NULL
	`, propertyID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// ListByUser returns the user's non-deleted roles on live properties.
func (s *RoleStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roleColumns+` FROM property_roles r
		JOIN properties p ON p.id = r.property_id AND p.deleted_at IS NULL
		WHERE r.user_id = ? AND r.deleted_at IS NULL
		ORDER BY r.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer closeRows(rows)

	var roles []*domain.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return roles, nil
}

// ListByProperty returns every non-deleted stakeholder with their profile.
func (s *RoleStore) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Stakeholder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roleColumns+`, u.email, u.full_name FROM property_roles r
		JOIN users u ON u.id = r.user_id
		WHERE r.property_id = ? AND r.deleted_at IS NULL
		ORDER BY r.created_at ASC, u.email ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakeholders: %w", err)
	}
	defer closeRows(rows)

	stakeholders := []*domain.Stakeholder{}
	for rows.Next() {
		sh := &domain.Stakeholder{}
		r, err := scanRole(rows, &sh.Email, &sh.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stakeholder: %w", err)
		}
		sh.Role = r
		stakeholders = append(stakeholders, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stakeholders: %w", err)
	}
	return stakeholders, nil
}

func (s *RoleStore) Update(ctx context.Context, r *domain.Role) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE property_roles SET status = ?, permission = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, r.Status, r.Permission, utcPtr(r.ExpiresAt), domain.Now(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "role")
}

func (s *RoleStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := domain.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE property_roles SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "role")
}

// CountActiveOwners counts owner roles that are neither deleted nor expired at now.
func (s *RoleStore) CountActiveOwners(ctx context.Context, propertyID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM property_roles
		WHERE property_id = ? AND status = ? AND deleted_at IS NULL
			AND (expires_at IS NULL OR expires_at > ?)
	`, propertyID, domain.StatusOwner, now.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}
