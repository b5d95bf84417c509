package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

const invitationColumns = `id, property_id, email, status, permission, token_hash, invited_by,
	expires_at, accepted_at, accepted_by, revoked_at, created_at`

func scanInvitation(row scanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	err := row.Scan(&inv.ID, &inv.PropertyID, &inv.Email, &inv.Status, &inv.Permission, &inv.TokenHash, &inv.InvitedBy,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedBy, &inv.RevokedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvitationStore) Create(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, property_id, email, status, permission, token_hash, invited_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.PropertyID, strings.ToLower(inv.Email), inv.Status, inv.Permission, inv.TokenHash, inv.InvitedBy,
		inv.ExpiresAt.UTC(), domain.Now())
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("invitation token: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return s.GetByID(ctx, inv.ID)
}

func (s *InvitationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	return s.get(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
}

func (s *InvitationStore) GetByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error) {
	return s.get(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash)
}

func (s *InvitationStore) get(ctx context.Context, query string, arg any) (*domain.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationStore) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE property_id = ?
		ORDER BY created_at DESC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer closeRows(rows)

	invitations := []*domain.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}
	return invitations, nil
}

// Accept marks the invitation accepted by userID and grants role in the same
// transaction. When existing is true role.ID names a live row to overwrite;
// otherwise role is inserted. A concurrent accept or revoke makes the
// conditional update miss and returns domain.ErrInvitationUsed.
func (s *InvitationStore) Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time, role *domain.Role, existing bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE invitations SET accepted_at = ?, accepted_by = ?
		WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL
	`, at, userID, invitationID)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrInvitationUsed
	}

	if existing {
		_, err = tx.ExecContext(ctx, `
			UPDATE property_roles SET status = ?, permission = ?, granted_by = ?, expires_at = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
		`, role.Status, role.Permission, role.GrantedBy, utcPtr(role.ExpiresAt), at, role.ID)
	} else {
		if role.ID == uuid.Nil {
			role.ID = uuid.New()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO property_roles (id, property_id, user_id, status, permission, granted_by, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, role.ID, role.PropertyID, role.UserID, role.Status, role.Permission, role.GrantedBy, utcPtr(role.ExpiresAt), at, at)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("stakeholder role: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to grant invited role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invitation: %w", err)
	}
	return nil
}

// Revoke cancels a pending invitation.
func (s *InvitationStore) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET revoked_at = ? WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pending invitation %w", domain.ErrNotFound)
	}
	return nil
}

// PurgeExpired deletes unaccepted invitations that expired before cutoff.
func (s *InvitationStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge invitations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
