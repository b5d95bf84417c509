package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func createMedia(t *testing.T, media *MediaStore, p *domain.Property, by uuid.UUID, kind domain.MediaType) *domain.Media {
	t.Helper()
	m, err := media.Create(context.Background(), &domain.Media{
		PropertyID: p.ID,
		MediaType:  kind,
		StorageKey: p.ID.String() + "/media/" + uuid.NewString() + ".jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  512,
		UploadedBy: by,
	})
	require.NoError(t, err)
	return m
}

func TestMediaStoreCreate_AppendsSortOrder(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	other := seedProperty(t, d, owner, "2 High Street")
	media := NewMediaStore(d)

	first := createMedia(t, media, p, owner.ID, domain.MediaPhoto)
	second := createMedia(t, media, p, owner.ID, domain.MediaFloorplan)
	elsewhere := createMedia(t, media, other, owner.ID, domain.MediaPhoto)

	assert.Equal(t, int64(0), first.SortOrder)
	assert.Equal(t, int64(1), second.SortOrder)
	assert.Equal(t, int64(0), elsewhere.SortOrder)
}

func TestMediaStoreUpdate_Reorders(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	media := NewMediaStore(d)
	ctx := context.Background()

	first := createMedia(t, media, p, owner.ID, domain.MediaPhoto)
	second := createMedia(t, media, p, owner.ID, domain.MediaPhoto)

	require.NoError(t, media.Update(ctx, first.ID, "Front elevation", 5))

	list, err := media.ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Front elevation", list[1].Caption)

	assert.True(t, errors.Is(media.Update(ctx, uuid.New(), "", 0), domain.ErrNotFound))
}

func TestMediaStoreFirstPhotoByProperties(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	a := seedProperty(t, d, owner, "1 High Street")
	b := seedProperty(t, d, owner, "2 High Street")
	media := NewMediaStore(d)
	ctx := context.Background()

	createMedia(t, media, a, owner.ID, domain.MediaFloorplan)
	photo := createMedia(t, media, a, owner.ID, domain.MediaPhoto)
	createMedia(t, media, a, owner.ID, domain.MediaPhoto)
	createMedia(t, media, b, owner.ID, domain.MediaVideo)

	first, err := media.FirstPhotoByProperties(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Contains(t, first, a.ID)
	assert.Equal(t, photo.ID, first[a.ID].ID)
	assert.NotContains(t, first, b.ID)

	counts, err := media.CountByProperties(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[a.ID])
	assert.Equal(t, 1, counts[b.ID])
}

func TestMediaStoreSoftDelete(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	media := NewMediaStore(d)
	ctx := context.Background()

	m := createMedia(t, media, p, owner.ID, domain.MediaPhoto)
	require.NoError(t, media.SoftDelete(ctx, m.ID))

	got, err := media.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
