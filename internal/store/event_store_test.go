package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func TestEventStoreAppend(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	events := NewEventStore(d)
	ctx := context.Background()

	e, err := events.Append(ctx, &domain.Event{
		PropertyID:  p.ID,
		ActorID:     &owner.ID,
		EventType:   domain.EventDocumentUploaded,
		Description: "Uploaded survey",
		Metadata:    json.RawMessage(`{"document_id":"abc"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventDocumentUploaded, e.EventType)
	assert.JSONEq(t, `{"document_id":"abc"}`, string(e.Metadata))
	assert.True(t, e.OccurredAt.Equal(e.CreatedAt))
	require.NotNil(t, e.ActorID)
	assert.Equal(t, owner.ID, *e.ActorID)
}

func TestEventStoreAppend_DefaultsMetadata(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")

	e, err := NewEventStore(d).Append(context.Background(), &domain.Event{
		PropertyID: p.ID, EventType: domain.EventNote, Description: "Boiler serviced",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(e.Metadata))
	assert.Nil(t, e.ActorID)
}

func TestEventStoreListByProperty_OrderedByOccurrence(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	events := NewEventStore(d)
	ctx := context.Background()

	now := domain.Now()
	for i, desc := range []string{"oldest", "newest", "middle"} {
		offsets := []time.Duration{-72 * time.Hour, 0, -24 * time.Hour}
		_, err := events.Append(ctx, &domain.Event{
			PropertyID: p.ID, EventType: domain.EventMilestone, Description: desc, OccurredAt: now.Add(offsets[i]),
		})
		require.NoError(t, err)
	}

	list, err := events.ListByProperty(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "newest", list[0].Description)
	assert.Equal(t, "middle", list[1].Description)
	assert.Equal(t, "oldest", list[2].Description)

	list, err = events.ListByProperty(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEventStoreRecentAndLatest(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	a := seedProperty(t, d, owner, "1 High Street")
	b := seedProperty(t, d, owner, "2 High Street")
	quiet := seedProperty(t, d, owner, "3 High Street")
	events := NewEventStore(d)
	ctx := context.Background()

	for _, p := range []*domain.Property{a, a, b} {
		_, err := events.Append(ctx, &domain.Event{PropertyID: p.ID, EventType: domain.EventNote})
		require.NoError(t, err)
	}

	recent, err := events.ListRecentByProperties(ctx, []uuid.UUID{a.ID, b.ID, quiet.ID}, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	latest, err := events.LatestByProperties(ctx, []uuid.UUID{a.ID, b.ID, quiet.ID})
	require.NoError(t, err)
	assert.Contains(t, latest, a.ID)
	assert.Contains(t, latest, b.ID)
	assert.NotContains(t, latest, quiet.ID)
	assert.WithinDuration(t, time.Now(), latest[a.ID], time.Minute)
}
