package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func ownerRole(t *testing.T, h *harness, p *domain.Property, u *domain.User) *domain.Role {
	t.Helper()
	r, err := h.roles.GetForUser(context.Background(), p.ID, u.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func TestAddStakeholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner@example.com")
	buyer := h.user(t, "buyer@example.com")
	p := h.property(t, owner)

	role, err := h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{
		Email:      "Buyer@Example.com",
		Status:     statusOf(domain.StatusBuyer),
		Permission: permissionOf(domain.PermissionViewer),
	})
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, role.UserID)

	_, err = h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{Email: "buyer@example.com", Permission: permissionOf(domain.PermissionEditor)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{Email: "nobody@example.com", Permission: permissionOf(domain.PermissionViewer)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{Email: "buyer@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stakeholders, err := h.svc.Stakeholders.ListStakeholders(ctx, buyer, p.ID)
	require.NoError(t, err)
	emails := make([]string, 0, len(stakeholders))
	for _, sh := range stakeholders {
		emails = append(emails, sh.Email)
	}
	assert.ElementsMatch(t, []string{"owner@example.com", "buyer@example.com"}, emails)
	assert.Contains(t, h.eventTypes(t, p.ID), domain.EventStakeholderAdded)
}

func TestAddStakeholder_OnlyManagersGrant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner@example.com")
	editor := h.user(t, "editor@example.com")
	h.user(t, "friend@example.com")
	p := h.property(t, owner)
	h.grant(t, p, owner, editor, nil, permissionOf(domain.PermissionEditor))

	_, err := h.svc.Stakeholders.AddStakeholder(ctx, editor, p.ID, StakeholderInput{Email: "friend@example.com", Permission: permissionOf(domain.PermissionViewer)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	past := domain.Now().Add(-time.Hour)
	_, err = h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{
		Email:      "friend@example.com",
		Permission: permissionOf(domain.PermissionViewer),
		ExpiresAt:  &past,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "expiry must be in the future")
}

func TestLastOwnerProtection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner@example.com")
	coOwner := h.user(t, "co@example.com")
	p := h.property(t, owner)
	mine := ownerRole(t, h, p, owner)

	err := h.svc.Stakeholders.RemoveStakeholder(ctx, owner, mine.ID)
	assert.ErrorIs(t, err, domain.ErrLastOwner)

	_, err = h.svc.Stakeholders.UpdateStakeholder(ctx, owner, mine.ID, StakeholderInput{Permission: permissionOf(domain.PermissionEditor)})
	assert.ErrorIs(t, err, domain.ErrLastOwner, "demoting the only owner")

	expires := domain.Now().Add(time.Hour)
	_, err = h.svc.Stakeholders.UpdateStakeholder(ctx, owner, mine.ID, StakeholderInput{Status: statusOf(domain.StatusOwner), ExpiresAt: &expires})
	assert.ErrorIs(t, err, domain.ErrLastOwner, "expiring the only owner")

	theirs := h.grant(t, p, owner, coOwner, statusOf(domain.StatusOwner), nil)
	require.NoError(t, h.svc.Stakeholders.RemoveStakeholder(ctx, coOwner, mine.ID))

	err = h.svc.Stakeholders.RemoveStakeholder(ctx, coOwner, theirs.ID)
	assert.ErrorIs(t, err, domain.ErrLastOwner)
	assert.Contains(t, h.eventTypes(t, p.ID), domain.EventStakeholderRemoved)
}

func TestUpdateStakeholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner@example.com")
	tenant := h.user(t, "tenant@example.com")
	p := h.property(t, owner)
	r := h.grant(t, p, owner, tenant, statusOf(domain.StatusTenant), permissionOf(domain.PermissionViewer))

	updated, err := h.svc.Stakeholders.UpdateStakeholder(ctx, owner, r.ID, StakeholderInput{
		Status:     statusOf(domain.StatusTenant),
		Permission: permissionOf(domain.PermissionEditor),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Permission)
	assert.Equal(t, domain.PermissionEditor, *updated.Permission)

	_, err = h.svc.Stakeholders.UpdateStakeholder(ctx, tenant, r.ID, StakeholderInput{Status: statusOf(domain.StatusOwner)})
	assert.ErrorIs(t, err, domain.ErrForbidden, "an editor cannot make themselves owner")
}

func TestLastOwnerProtection_OffsetExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, "owner@example.com")
	h.user(t, "co@example.com")
	p := h.property(t, owner)
	mine := ownerRole(t, h, p, owner)
	plusFive := time.FixedZone("UTC+5", 5*60*60)

	expires := domain.Now().Add(time.Hour).In(plusFive)
	theirs, err := h.svc.Stakeholders.AddStakeholder(ctx, owner, p.ID, StakeholderInput{
		Email: "co@example.com", Status: statusOf(domain.StatusOwner), ExpiresAt: &expires,
	})
	require.NoError(t, err)
	n, err := h.roles.CountActiveOwners(ctx, p.ID, domain.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The co-owner's access lapses; its local clock still reads ahead of UTC.
	lapsed := domain.Now().Add(-time.Minute).In(plusFive)
	theirs.ExpiresAt = &lapsed
	require.NoError(t, h.roles.Update(ctx, theirs))

	err = h.svc.Stakeholders.RemoveStakeholder(ctx, owner, mine.ID)
	assert.ErrorIs(t, err, domain.ErrLastOwner, "an expired co-owner does not count")
}
