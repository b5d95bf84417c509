package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func createInvitation(t *testing.T, invitations *InvitationStore, p *domain.Property, by uuid.UUID, email string, expires time.Time) *domain.Invitation {
	t.Helper()
	inv, err := invitations.Create(context.Background(), &domain.Invitation{
		PropertyID: p.ID,
		Email:      email,
		Permission: permissionPtr(domain.PermissionViewer),
		TokenHash:  uuid.NewString(),
		InvitedBy:  by,
		ExpiresAt:  expires,
	})
	require.NoError(t, err)
	return inv
}

func TestInvitationStoreCreate(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	invitations := NewInvitationStore(d)
	ctx := context.Background()

	inv := createInvitation(t, invitations, p, owner.ID, "Guest@Example.com", domain.Now().Add(time.Hour))
	assert.Equal(t, "guest@example.com", inv.Email)
	assert.Nil(t, inv.AcceptedAt)

	got, err := invitations.GetByTokenHash(ctx, inv.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inv.ID, got.ID)

	got, err = invitations.GetByTokenHash(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = invitations.Create(ctx, &domain.Invitation{
		PropertyID: p.ID, Email: "x@example.com", Permission: permissionPtr(domain.PermissionViewer),
		TokenHash: inv.TokenHash, InvitedBy: owner.ID, ExpiresAt: domain.Now(),
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestInvitationStoreAccept_NewRole(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	guest := seedUser(t, d, "guest@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	invitations := NewInvitationStore(d)
	ctx := context.Background()

	inv := createInvitation(t, invitations, p, owner.ID, guest.Email, domain.Now().Add(time.Hour))
	role := &domain.Role{PropertyID: p.ID, UserID: guest.ID, Permission: inv.Permission, GrantedBy: owner.ID}
	require.NoError(t, invitations.Accept(ctx, inv.ID, guest.ID, domain.Now(), role, false))

	got, err := NewRoleStore(d).GetForUser(ctx, p.ID, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.PermissionViewer, *got.Permission)

	accepted, err := invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.AcceptedBy)
	assert.Equal(t, guest.ID, *accepted.AcceptedBy)

	// A second accept loses the conditional update.
	err = invitations.Accept(ctx, inv.ID, guest.ID, domain.Now(), role, true)
	assert.True(t, errors.Is(err, domain.ErrInvitationUsed))
}

func TestInvitationStoreAccept_ExistingRole(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	buyer := seedUser(t, d, "buyer@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	roles := NewRoleStore(d)
	invitations := NewInvitationStore(d)
	ctx := context.Background()

	existing, err := roles.Create(ctx, &domain.Role{
		PropertyID: p.ID, UserID: buyer.ID, Status: statusPtr(domain.StatusBuyer), GrantedBy: owner.ID,
	})
	require.NoError(t, err)

	inv := createInvitation(t, invitations, p, owner.ID, buyer.Email, domain.Now().Add(time.Hour))
	existing.Permission = permissionPtr(domain.PermissionEditor)
	require.NoError(t, invitations.Accept(ctx, inv.ID, buyer.ID, domain.Now(), existing, true))

	got, err := roles.GetForUser(ctx, p.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, domain.StatusBuyer, *got.Status)
	assert.Equal(t, domain.PermissionEditor, *got.Permission)
}

func TestInvitationStoreRevoke(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	guest := seedUser(t, d, "guest@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	invitations := NewInvitationStore(d)
	ctx := context.Background()

	inv := createInvitation(t, invitations, p, owner.ID, guest.Email, domain.Now().Add(time.Hour))
	require.NoError(t, invitations.Revoke(ctx, inv.ID, domain.Now()))
	assert.True(t, errors.Is(invitations.Revoke(ctx, inv.ID, domain.Now()), domain.ErrNotFound))

	role := &domain.Role{PropertyID: p.ID, UserID: guest.ID, Permission: inv.Permission, GrantedBy: owner.ID}
	err := invitations.Accept(ctx, inv.ID, guest.ID, domain.Now(), role, false)
	assert.True(t, errors.Is(err, domain.ErrInvitationUsed))

	got, err := NewRoleStore(d).GetForUser(ctx, p.ID, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvitationStorePurgeExpired(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	invitations := NewInvitationStore(d)
	ctx := context.Background()

	now := domain.Now()
	createInvitation(t, invitations, p, owner.ID, "old@example.com", now.Add(-60*24*time.Hour))
	createInvitation(t, invitations, p, owner.ID, "fresh@example.com", now.Add(24*time.Hour))

	n, err := invitations.PurgeExpired(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := invitations.ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh@example.com", list[0].Email)
}
