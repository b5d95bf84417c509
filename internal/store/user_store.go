package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, full_name, is_admin, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// Upsert records the profile carried by an access token. An empty fullName
// keeps whatever name is already stored.
func (s *UserStore) Upsert(ctx context.Context, id uuid.UUID, email, fullName string) (*domain.User, error) {
	now := domain.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = CASE WHEN excluded.full_name != '' THEN excluded.full_name ELSE users.full_name END,
			updated_at = excluded.updated_at
	`, id, strings.ToLower(email), fullName, now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?
	`, admin, domain.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return checkAffected(n, "user")
}
