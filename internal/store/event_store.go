package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// EventStore is append-only: events are never updated or deleted.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, property_id, actor_id, event_type, description, metadata, occurred_at, created_at`

func scanEvent(row scanner) (*domain.Event, error) {
	e := &domain.Event{}
	var metadata string
	if err := row.Scan(&e.ID, &e.PropertyID, &e.ActorID, &e.EventType, &e.Description, &metadata, &e.OccurredAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Metadata = json.RawMessage(metadata)
	return e, nil
}

// Append stores e. A zero OccurredAt defaults to the creation time and empty
// metadata is stored as an empty object.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	now := domain.Now()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	metadata := string(e.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, property_id, actor_id, event_type, description, metadata, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.PropertyID, e.ActorID, e.EventType, e.Description, metadata, occurred.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

func (s *EventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListByProperty returns the property's timeline, newest occurrence first.
func (s *EventStore) ListByProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]*domain.Event, error) {
	return s.list(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE property_id = ?
		ORDER BY occurred_at DESC, created_at DESC, rowid DESC
		LIMIT ?
	`, propertyID, limit)
}

// ListRecentByProperties returns the latest recorded events across ids.
func (s *EventStore) ListRecentByProperties(ctx context.Context, ids []uuid.UUID, limit int) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)
	return s.list(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE property_id IN (`+marks+`)
		ORDER BY created_at DESC, occurred_at DESC, rowid DESC
		LIMIT ?
	`, append(args, limit)...)
}

// LatestByProperties returns the most recent event creation time per property.
func (s *EventStore) LatestByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	latest := make(map[uuid.UUID]time.Time, len(ids))
	if len(ids) == 0 {
		return latest, nil
	}
	marks, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_id, MAX(created_at) FROM events
		WHERE property_id IN (`+marks+`)
		GROUP BY property_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest events: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id uuid.UUID
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan latest event: %w", err)
		}
		t, err := parseDBTime(raw)
		if err != nil {
			return nil, err
		}
		latest[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest events: %w", err)
	}
	return latest, nil
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer closeRows(rows)

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
