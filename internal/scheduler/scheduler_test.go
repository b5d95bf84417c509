package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/apicache"
	"github.com/vbonduro/propertypassport/internal/db"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/store"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (r *fakeRecorder) JobRun(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string][]error{}
	}
	r.runs[job] = append(r.runs[job], err)
}

func (r *fakeRecorder) count(job string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs[job])
}

func TestAdd_RejectsBadSchedule(t *testing.T) {
	s := New(nil)
	err := s.Add(Job{Name: "broken", Schedule: "every now and then", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestRun_RecordsOutcome(t *testing.T) {
	rec := &fakeRecorder{}
	s := New(rec)
	boom := errors.New("boom")

	s.run(Job{Name: "ok", Run: func(context.Context) error { return nil }})
	s.run(Job{Name: "fails", Run: func(context.Context) error { return boom }})

	assert.Equal(t, []error{nil}, rec.runs["ok"])
	assert.Equal(t, []error{boom}, rec.runs["fails"])
}

func TestStartRunsScheduledJobs(t *testing.T) {
	rec := &fakeRecorder{}
	s := New(rec)
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error { return nil }}))

	s.Start()
	require.Eventually(t, func() bool { return rec.count("tick") > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestCachePurgeJob(t *testing.T) {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	defer d.Close()
	cache := apicache.NewSQLCache(d)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stale", "epc", json.RawMessage(`{}`), -time.Minute))
	require.NoError(t, cache.Set(ctx, "fresh", "epc", json.RawMessage(`{}`), time.Hour))

	job := CachePurgeJob(cache, "@every 1h")
	require.NoError(t, job.Run(ctx))

	n, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the job already removed the stale entry")
	_, ok, err := cache.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvitationPurgeJob(t *testing.T) {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	defer d.Close()
	ctx := context.Background()

	users := store.NewUserStore(d)
	owner, err := users.Upsert(ctx, uuid.New(), "owner@example.com", "Owner")
	require.NoError(t, err)
	p, err := store.NewPropertyStore(d).CreateWithOwner(ctx, &domain.Property{
		AddressLine1: "1 High Street",
		Town:         "Bath",
		Postcode:     "BA1 1AA",
		PropertyType: domain.PropertyTypeTerraced,
		Tenure:       domain.TenureFreehold,
		Status:       domain.PropertyStatusActive,
		CreatedBy:    owner.ID,
	})
	require.NoError(t, err)

	invitations := store.NewInvitationStore(d)
	viewer := domain.PermissionViewer
	invite := func(email string, expires time.Time) *domain.Invitation {
		inv, err := invitations.Create(ctx, &domain.Invitation{
			PropertyID: p.ID,
			Email:      email,
			Permission: &viewer,
			TokenHash:  uuid.NewString(),
			InvitedBy:  owner.ID,
			ExpiresAt:  expires,
		})
		require.NoError(t, err)
		return inv
	}
	old := invite("old@example.com", domain.Now().Add(-40*24*time.Hour))
	recent := invite("recent@example.com", domain.Now().Add(-24*time.Hour))

	require.NoError(t, InvitationPurgeJob(invitations).Run(ctx))

	got, err := invitations.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = invitations.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
