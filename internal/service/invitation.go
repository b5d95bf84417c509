package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	tokenBytes        = 32
	defaultInviteDays = 7
	maxInviteDays     = 30
)

// invitationRepository is the subset of store.InvitationStore that InvitationService requires.
type invitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	GetByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Invitation, error)
	Accept(ctx context.Context, invitationID, userID uuid.UUID, at time.Time, role *domain.Role, existing bool) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

type InvitationService struct {
	*guard
	invitations invitationRepository
}

type InviteInput struct {
	Email         string                    `json:"email"`
	Status        *domain.StakeholderStatus `json:"status"`
	Permission    *domain.Permission        `json:"permission"`
	ExpiresInDays int                       `json:"expires_in_days"`
}

// SentInvitation carries the accept token. It is only ever returned here.
type SentInvitation struct {
	*domain.Invitation
	Token string `json:"token"`
}

// HashToken returns the stored form of an invitation token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *InvitationService) Invite(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in InviteInput) (*SentInvitation, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.Invalid("a valid email is required")
	}
	if err := validateGrant(in.Status, in.Permission); err != nil {
		return nil, err
	}
	days := in.ExpiresInDays
	if days == 0 {
		days = defaultInviteDays
	}
	if days < 1 || days > maxInviteDays {
		return nil, domain.Invalid("expires_in_days must be between 1 and %d", maxInviteDays)
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.Create(ctx, &domain.Invitation{
		PropertyID: p.ID,
		Email:      email,
		Status:     in.Status,
		Permission: in.Permission,
		TokenHash:  HashToken(token),
		InvitedBy:  caller.ID,
		ExpiresAt:  domain.Now().Add(time.Duration(days) * 24 * time.Hour),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation sent", "property_id", p.ID, "invitation_id", inv.ID)
	s.record(ctx, p.ID, caller, domain.EventInvitationSent, "Invited "+email, map[string]any{
		"invitation_id": inv.ID,
		"email":         email,
	})
	return &SentInvitation{Invitation: inv, Token: token}, nil
}

func (s *InvitationService) ListInvitations(ctx context.Context, caller *domain.User, propertyID uuid.UUID) ([]*domain.Invitation, error) {
	_, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return nil, err
	}
	return s.invitations.ListByProperty(ctx, propertyID)
}

func (s *InvitationService) RevokeInvitation(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("invitation %w", domain.ErrNotFound)
	}
	_, a, err := s.load(ctx, caller, inv.PropertyID)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return err
	}
	if err := s.invitations.Revoke(ctx, inv.ID, domain.Now()); err != nil {
		return err
	}
	s.record(ctx, inv.PropertyID, caller, domain.EventInvitationRevoked, "Revoked invitation for "+inv.Email, map[string]any{
		"invitation_id": inv.ID,
	})
	return nil
}

// AcceptInvitation grants the invited access to caller. Accepting an
// invitation the caller already accepted is a no-op.
func (s *InvitationService) AcceptInvitation(ctx context.Context, caller *domain.User, token string) (*domain.Invitation, error) {
	if caller == nil {
		return nil, domain.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.Invalid("token is required")
	}
	inv, err := s.invitations.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invitation %w", domain.ErrNotFound)
	}

	now := domain.Now()
	switch {
	case inv.RevokedAt != nil:
		return nil, domain.ErrInvitationRevoked
	case inv.AcceptedAt != nil && inv.AcceptedBy != nil && *inv.AcceptedBy == caller.ID:
		return inv, nil
	case inv.AcceptedAt != nil:
		return nil, domain.ErrInvitationUsed
	case !inv.ExpiresAt.After(now):
		return nil, domain.ErrInvitationExpired
	case !strings.EqualFold(inv.Email, caller.Email):
		return nil, fmt.Errorf("invitation was sent to a different email: %w", domain.ErrForbidden)
	}

	p, err := s.properties.GetByID(ctx, inv.PropertyID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("property %w", domain.ErrNotFound)
	}

	existing, err := s.roles.GetForUser(ctx, p.ID, caller.ID)
	if err != nil {
		return nil, err
	}
	role := mergeInvitation(existing, inv, caller.ID, now)
	if err := s.invitations.Accept(ctx, inv.ID, caller.ID, now, role, existing != nil); err != nil {
		if errors.Is(err, domain.ErrInvitationUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.logger.Info("invitation accepted", "property_id", p.ID, "invitation_id", inv.ID, "user_id", caller.ID)
	s.record(ctx, p.ID, caller, domain.EventInvitationAccepted, caller.Email+" accepted an invitation", map[string]any{
		"invitation_id": inv.ID,
	})
	return s.invitations.GetByID(ctx, inv.ID)
}

// mergeInvitation folds the invited grant into the caller's current role.
// Invitations never downgrade an active role: an owner stays an owner and an
// editor stays an editor. An expired role grants nothing, so it is replaced
// by the invited grant outright. The resulting role no longer expires.
func mergeInvitation(existing *domain.Role, inv *domain.Invitation, userID uuid.UUID, now time.Time) *domain.Role {
	if existing == nil {
		return &domain.Role{
			PropertyID: inv.PropertyID,
			UserID:     userID,
			Status:     inv.Status,
			Permission: inv.Permission,
			GrantedBy:  inv.InvitedBy,
		}
	}
	role := *existing
	role.ExpiresAt = nil
	if !existing.Active(now) {
		role.Status = inv.Status
		role.Permission = inv.Permission
		role.GrantedBy = inv.InvitedBy
		return &role
	}
	if inv.Status != nil && !grantsOwner(role.Status) {
		role.Status = inv.Status
	}
	if inv.Permission != nil && (role.Permission == nil || *role.Permission != domain.PermissionEditor) {
		role.Permission = inv.Permission
	}
	return &role
}
