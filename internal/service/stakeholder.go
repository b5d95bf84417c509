package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/domain"
)

type StakeholderService struct {
	*guard
	users userRepository
}

// StakeholderInput grants a status, a permission or both. Email is only read
// when adding. Only managers (owners and admins) grant anything, so owner
// status never comes from an editor.
type StakeholderInput struct {
	Email      string                    `json:"email"`
	Status     *domain.StakeholderStatus `json:"status"`
	Permission *domain.Permission        `json:"permission"`
	ExpiresAt  *time.Time                `json:"expires_at"`
}

func validateGrant(status *domain.StakeholderStatus, permission *domain.Permission) error {
	if status == nil && permission == nil {
		return domain.Invalid("a status or a permission is required")
	}
	if status != nil && !status.Valid() {
		return domain.Invalid("unknown status %q", *status)
	}
	if permission != nil && !permission.Valid() {
		return domain.Invalid("unknown permission %q", *permission)
	}
	return nil
}

func (in StakeholderInput) validate(now time.Time) error {
	if err := validateGrant(in.Status, in.Permission); err != nil {
		return err
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return domain.Invalid("expires_at must be in the future")
	}
	return nil
}

func grantsOwner(status *domain.StakeholderStatus) bool {
	return status != nil && *status == domain.StatusOwner
}

func (s *StakeholderService) ListStakeholders(ctx context.Context, caller *domain.User, propertyID uuid.UUID) ([]*domain.Stakeholder, error) {
	_, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return nil, err
	}
	return s.roles.ListByProperty(ctx, propertyID)
}

func (s *StakeholderService) AddStakeholder(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in StakeholderInput) (*domain.Role, error) {
	now := domain.Now()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, domain.Invalid("email is required")
	}
	if err := in.validate(now); err != nil {
		return nil, err
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return nil, err
	}

	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("user with email %s %w", email, domain.ErrNotFound)
	}
	existing, err := s.roles.GetForUser(ctx, p.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%s is already a stakeholder: %w", email, domain.ErrConflict)
	}

	role, err := s.roles.Create(ctx, &domain.Role{
		PropertyID: p.ID,
		UserID:     target.ID,
		Status:     in.Status,
		Permission: in.Permission,
		GrantedBy:  caller.ID,
		ExpiresAt:  in.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, caller, domain.EventStakeholderAdded, "Added "+email, roleMetadata(role, email))
	return role, nil
}

func (s *StakeholderService) role(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Role, access.Access, error) {
	r, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, access.Access{}, err
	}
	if r == nil {
		return nil, access.Access{}, fmt.Errorf("stakeholder %w", domain.ErrNotFound)
	}
	_, a, err := s.load(ctx, caller, r.PropertyID)
	if err != nil {
		return nil, access.Access{}, err
	}
	return r, a, nil
}

// ensureOwnerRemains returns ErrLastOwner when r is the property's only
// active owner.
func (s *StakeholderService) ensureOwnerRemains(ctx context.Context, r *domain.Role, now time.Time) error {
	if !grantsOwner(r.Status) || !r.Active(now) {
		return nil
	}
	owners, err := s.roles.CountActiveOwners(ctx, r.PropertyID, now)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}

func (s *StakeholderService) UpdateStakeholder(ctx context.Context, caller *domain.User, roleID uuid.UUID, in StakeholderInput) (*domain.Role, error) {
	now := domain.Now()
	if err := in.validate(now); err != nil {
		return nil, err
	}
	r, a, err := s.role(ctx, caller, roleID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return nil, err
	}
	// Expiring an owner or dropping the status both demote them.
	if !grantsOwner(in.Status) || in.ExpiresAt != nil {
		if err := s.ensureOwnerRemains(ctx, r, now); err != nil {
			return nil, err
		}
	}

	r.Status = in.Status
	r.Permission = in.Permission
	r.ExpiresAt = in.ExpiresAt
	if err := s.roles.Update(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, r.PropertyID, caller, domain.EventStakeholderUpdated, "Updated stakeholder access", roleMetadata(r, ""))
	return s.roles.GetByID(ctx, r.ID)
}

func (s *StakeholderService) RemoveStakeholder(ctx context.Context, caller *domain.User, roleID uuid.UUID) error {
	now := domain.Now()
	r, a, err := s.role(ctx, caller, roleID)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanManage()); err != nil {
		return err
	}
	if err := s.ensureOwnerRemains(ctx, r, now); err != nil {
		return err
	}
	if err := s.roles.SoftDelete(ctx, r.ID); err != nil {
		return err
	}
	s.record(ctx, r.PropertyID, caller, domain.EventStakeholderRemoved, "Removed stakeholder", map[string]any{
		"role_id": r.ID,
		"user_id": r.UserID,
	})
	return nil
}

func roleMetadata(r *domain.Role, email string) map[string]any {
	md := map[string]any{"role_id": r.ID, "user_id": r.UserID}
	if email != "" {
		md["email"] = email
	}
	if r.Status != nil {
		md["status"] = *r.Status
	}
	if r.Permission != nil {
		md["permission"] = *r.Permission
	}
	return md
}
