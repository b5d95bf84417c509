package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/db"
	"github.com/vbonduro/propertypassport/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func seedUser(t *testing.T, d *sql.DB, email string) *domain.User {
	t.Helper()
	u, err := NewUserStore(d).Upsert(context.Background(), uuid.New(), email, "")
	require.NoError(t, err)
	return u
}

func seedProperty(t *testing.T, d *sql.DB, owner *domain.User, address string) *domain.Property {
	t.Helper()
	p, err := NewPropertyStore(d).CreateWithOwner(context.Background(), &domain.Property{
		AddressLine1: address,
		Postcode:     "SW1A 1AA",
		PropertyType: domain.PropertyTypeTerraced,
		Tenure:       domain.TenureFreehold,
		Status:       domain.PropertyStatusDraft,
		CreatedBy:    owner.ID,
	})
	require.NoError(t, err)
	return p
}

func TestInClause(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	marks, args := inClause([]uuid.UUID{a, b})
	assert.Equal(t, "?, ?", marks)
	assert.Equal(t, []any{a, b}, args)
}

func TestParseDBTime(t *testing.T) {
	got, err := parseDBTime("2026-03-01 09:30:00+00:00")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 9, got.Hour())

	_, err = parseDBTime("yesterday")
	assert.Error(t, err)
}

func TestCheckAffected(t *testing.T) {
	assert.NoError(t, checkAffected(1, "flag"))
	err := checkAffected(0, "flag")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "flag")
}

func TestIsUniqueViolation(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := d.ExecContext(ctx, `INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, "a@example.com", domain.Now(), domain.Now())
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, `INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		uuid.New(), "A@example.com", domain.Now(), domain.Now())
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("disk I/O error")))
}
