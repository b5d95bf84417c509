// Package service implements the property passport actions. Each mutating
// action validates its input, loads the property, checks the caller's access,
// writes, and appends one timeline event.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/classify"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
	"github.com/vbonduro/propertypassport/internal/store"
)

// propertyRepository is the subset of store.PropertyStore the services require.
type propertyRepository interface {
	CreateWithOwner(ctx context.Context, p *domain.Property) (*domain.Property, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Property, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Property, error)
	Update(ctx context.Context, p *domain.Property) error
	SetVisibility(ctx context.Context, id uuid.UUID, public bool) error
	Touch(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// roleRepository is the subset of store.RoleStore the services require.
type roleRepository interface {
	Create(ctx context.Context, r *domain.Role) (*domain.Role, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetForUser(ctx context.Context, propertyID, userID uuid.UUID) (*domain.Role, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Role, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Stakeholder, error)
	Update(ctx context.Context, r *domain.Role) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	CountActiveOwners(ctx context.Context, propertyID uuid.UUID, now time.Time) (int, error)
}

type userRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type eventRepository interface {
	Append(ctx context.Context, e *domain.Event) (*domain.Event, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]*domain.Event, error)
	ListRecentByProperties(ctx context.Context, ids []uuid.UUID, limit int) ([]*domain.Event, error)
	LatestByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// guard loads a property with the caller's access and records timeline
// events. Every service embeds one.
type guard struct {
	properties propertyRepository
	roles      roleRepository
	events     eventRepository
	logger     *slog.Logger
}

// load returns the property and the caller's access to it. A property the
// caller cannot see at all is reported as not found.
func (g *guard) load(ctx context.Context, caller *domain.User, propertyID uuid.UUID) (*domain.Property, access.Access, error) {
	p, err := g.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, access.Access{}, err
	}
	if p == nil {
		return nil, access.Access{}, fmt.Errorf("property %w", domain.ErrNotFound)
	}

	var roles []*domain.Role
	if caller != nil {
		r, err := g.roles.GetForUser(ctx, p.ID, caller.ID)
		if err != nil {
			return nil, access.Access{}, err
		}
		if r != nil {
			roles = append(roles, r)
		}
	}
	a := access.Resolve(caller, p, roles, domain.Now())
	if !a.CanView() {
		return nil, access.Access{}, fmt.Errorf("property %w", domain.ErrNotFound)
	}
	return p, a, nil
}

// authorize turns a failed capability check into the right sentinel.
func authorize(caller *domain.User, allowed bool) error {
	if allowed {
		return nil
	}
	if caller == nil {
		return domain.ErrUnauthenticated
	}
	return domain.ErrForbidden
}

// record appends a timeline event and bumps the property's activity time.
// The write it describes has already happened, so failures are logged only.
func (g *guard) record(ctx context.Context, propertyID uuid.UUID, actor *domain.User, eventType domain.EventType, description string, metadata map[string]any) {
	e := &domain.Event{
		PropertyID:  propertyID,
		EventType:   eventType,
		Description: description,
	}
	if actor != nil {
		id := actor.ID
		e.ActorID = &id
	}
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			g.logger.Error("failed to encode event metadata", "property_id", propertyID, "event_type", eventType, "error", err)
		} else {
			e.Metadata = data
		}
	}
	if _, err := g.events.Append(ctx, e); err != nil {
		g.logger.Error("failed to append event", "property_id", propertyID, "event_type", eventType, "error", err)
	}
	if err := g.properties.Touch(ctx, propertyID); err != nil {
		g.logger.Error("failed to touch property", "property_id", propertyID, "error", err)
	}
}

// Services bundles every action service over one database.
type Services struct {
	Properties   *PropertyService
	Documents    *DocumentService
	Media        *MediaService
	Stakeholders *StakeholderService
	Invitations  *InvitationService
	Flags        *FlagService
	Timeline     *TimelineService
	Dashboard    *DashboardService
}

func New(db *sql.DB, objects objectstore.Store, signer *objectstore.Signer, classifier classify.Classifier, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = classify.None{}
	}
	properties := store.NewPropertyStore(db)
	roles := store.NewRoleStore(db)
	events := store.NewEventStore(db)
	documents := store.NewDocumentStore(db)
	media := store.NewMediaStore(db)
	flags := store.NewFlagStore(db)
	g := &guard{properties: properties, roles: roles, events: events, logger: logger}

	return &Services{
		Properties:   &PropertyService{guard: g},
		Documents:    &DocumentService{guard: g, documents: documents, objects: objects, signer: signer, classifier: classifier},
		Media:        &MediaService{guard: g, media: media, objects: objects, signer: signer},
		Stakeholders: &StakeholderService{guard: g, users: store.NewUserStore(db)},
		Invitations:  &InvitationService{guard: g, invitations: store.NewInvitationStore(db)},
		Flags:        &FlagService{guard: g, flags: flags},
		Timeline:     &TimelineService{guard: g},
		Dashboard: &DashboardService{
			properties: properties,
			roles:      roles,
			documents:  documents,
			media:      media,
			flags:      flags,
			events:     events,
			signer:     signer,
		},
	}
}
