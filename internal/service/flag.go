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

// flagRepository is the subset of store.FlagStore that the services require.
type flagRepository interface {
	Create(ctx context.Context, f *domain.Flag) (*domain.Flag, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flag, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID, status *domain.FlagStatus) ([]*domain.Flag, error)
	CountOpenByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	Update(ctx context.Context, f *domain.Flag) error
	Resolve(ctx context.Context, id uuid.UUID, status domain.FlagStatus, by uuid.UUID, at time.Time) error
}

type FlagService struct {
	*guard
	flags flagRepository
}

type FlagInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    domain.Severity `json:"severity"`
}

// FlagUpdate changes the fields that are set. Closing a flag goes through
// ResolveFlag.
type FlagUpdate struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Severity    *domain.Severity   `json:"severity"`
	Status      *domain.FlagStatus `json:"status"`
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.Invalid("title is required")
	}
	if len(title) > 200 {
		return "", domain.Invalid("title must be at most 200 characters")
	}
	return title, nil
}

// RaiseFlag records an issue. Any stakeholder may raise one.
func (s *FlagService) RaiseFlag(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in FlagInput) (*domain.Flag, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	severity := in.Severity
	if severity == "" {
		severity = domain.SeverityMedium
	}
	if !severity.Valid() {
		return nil, domain.Invalid("unknown severity %q", in.Severity)
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return nil, err
	}

	f, err := s.flags.Create(ctx, &domain.Flag{
		PropertyID:  p.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Severity:    severity,
		Status:      domain.FlagOpen,
		CreatedBy:   caller.ID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, caller, domain.EventFlagRaised, "Raised: "+f.Title, map[string]any{
		"flag_id":  f.ID,
		"severity": f.Severity,
	})
	return f, nil
}

func (s *FlagService) ListFlags(ctx context.Context, caller *domain.User, propertyID uuid.UUID, status *domain.FlagStatus) ([]*domain.Flag, error) {
	if status != nil && !status.Valid() {
		return nil, domain.Invalid("unknown status %q", *status)
	}
	_, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return nil, err
	}
	return s.flags.ListByProperty(ctx, propertyID, status)
}

func (s *FlagService) flag(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Flag, access.Access, error) {
	f, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return nil, access.Access{}, err
	}
	if f == nil {
		return nil, access.Access{}, fmt.Errorf("flag %w", domain.ErrNotFound)
	}
	_, a, err := s.load(ctx, caller, f.PropertyID)
	if err != nil {
		return nil, access.Access{}, err
	}
	if !a.CanViewRestricted() {
		return nil, access.Access{}, fmt.Errorf("flag %w", domain.ErrNotFound)
	}
	return f, a, nil
}

// UpdateFlag edits an open flag. Editors may edit any flag and authors their
// own. A resolved or dismissed flag only changes by an editor reopening it,
// which clears the resolution.
func (s *FlagService) UpdateFlag(ctx context.Context, caller *domain.User, id uuid.UUID, in FlagUpdate) (*domain.Flag, error) {
	f, a, err := s.flag(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	author := caller != nil && f.CreatedBy == caller.ID
	if f.Status.Closed() {
		if in.Status == nil || in.Status.Closed() {
			return nil, fmt.Errorf("flag is %s; reopen it first: %w", f.Status, domain.ErrConflict)
		}
		if err := authorize(caller, a.CanEdit()); err != nil {
			return nil, err
		}
		f.ResolvedBy = nil
		f.ResolvedAt = nil
	} else if err := authorize(caller, a.CanEdit() || author); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if f.Title, err = validateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		f.Description = strings.TrimSpace(*in.Description)
	}
	if in.Severity != nil {
		if !in.Severity.Valid() {
			return nil, domain.Invalid("unknown severity %q", *in.Severity)
		}
		f.Severity = *in.Severity
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, domain.Invalid("unknown status %q", *in.Status)
		}
		if in.Status.Closed() {
			return nil, domain.Invalid("use resolve to close a flag")
		}
		f.Status = *in.Status
	}

	if err := s.flags.Update(ctx, f); err != nil {
		return nil, err
	}
	s.record(ctx, f.PropertyID, caller, domain.EventFlagUpdated, "Updated: "+f.Title, map[string]any{
		"flag_id": f.ID,
		"status":  f.Status,
	})
	return s.flags.GetByID(ctx, f.ID)
}

// ResolveFlag closes a flag as resolved or dismissed.
func (s *FlagService) ResolveFlag(ctx context.Context, caller *domain.User, id uuid.UUID, status domain.FlagStatus) (*domain.Flag, error) {
	if status == "" {
		status = domain.FlagResolved
	}
	if !status.Closed() {
		return nil, domain.Invalid("status must be resolved or dismissed")
	}
	f, a, err := s.flag(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}
	if err := s.flags.Resolve(ctx, f.ID, status, caller.ID, domain.Now()); err != nil {
		return nil, err
	}
	verb := "Resolved"
	if status == domain.FlagDismissed {
		verb = "Dismissed"
	}
	s.record(ctx, f.PropertyID, caller, domain.EventFlagResolved, verb+": "+f.Title, map[string]any{
		"flag_id": f.ID,
		"status":  status,
	})
	return s.flags.GetByID(ctx, f.ID)
}
