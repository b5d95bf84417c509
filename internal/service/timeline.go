package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

type TimelineService struct {
	*guard
}

// EventInput is a user-authored timeline entry. OccurredAt may backdate it.
type EventInput struct {
	EventType   domain.EventType `json:"event_type"`
	Description string           `json:"description"`
	OccurredAt  *time.Time       `json:"occurred_at"`
	Metadata    map[string]any   `json:"metadata"`
}

func (s *TimelineService) ListEvents(ctx context.Context, caller *domain.User, propertyID uuid.UUID, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	limit = min(limit, maxEventLimit)

	_, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return nil, err
	}
	return s.events.ListByProperty(ctx, propertyID, limit)
}

func (s *TimelineService) AddEvent(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in EventInput) (*domain.Event, error) {
	if !in.EventType.UserAuthored() {
		return nil, domain.Invalid("event_type must be note or milestone")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, domain.Invalid("description is required")
	}
	if len(description) > 2000 {
		return nil, domain.Invalid("description must be at most 2000 characters")
	}
	now := domain.Now()
	var occurred time.Time
	if in.OccurredAt != nil {
		occurred = in.OccurredAt.UTC()
		if occurred.After(now) {
			return nil, domain.Invalid("occurred_at must not be in the future")
		}
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}

	e := &domain.Event{
		PropertyID:  p.ID,
		ActorID:     &caller.ID,
		EventType:   in.EventType,
		Description: description,
		OccurredAt:  occurred,
	}
	if len(in.Metadata) > 0 {
		data, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, domain.Invalid("metadata must be a JSON object")
		}
		e.Metadata = data
	}
	created, err := s.events.Append(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := s.properties.Touch(ctx, p.ID); err != nil {
		s.logger.Error("failed to touch property", "property_id", p.ID, "error", err)
	}
	return created, nil
}
