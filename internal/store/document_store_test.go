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

func createDocument(t *testing.T, docs *DocumentStore, p *domain.Property, by uuid.UUID, title string) *domain.Document {
	t.Helper()
	doc, err := docs.Create(context.Background(), &domain.Document{
		PropertyID:   p.ID,
		Title:        title,
		DocumentType: domain.DocumentSurvey,
		FileName:     "survey.pdf",
		StorageKey:   p.ID.String() + "/documents/" + uuid.NewString() + ".pdf",
		MimeType:     "application/pdf",
		SizeBytes:    2048,
		UploadedBy:   by,
	})
	require.NoError(t, err)
	return doc
}

func TestDocumentStoreCreate(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	docs := NewDocumentStore(d)

	doc := createDocument(t, docs, p, owner.ID, "Homebuyer survey")
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, p.ID, doc.PropertyID)
	assert.Equal(t, "Homebuyer survey", doc.Title)
	assert.Equal(t, domain.DocumentSurvey, doc.DocumentType)
	assert.Equal(t, int64(2048), doc.SizeBytes)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestDocumentStoreListAndCount(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	a := seedProperty(t, d, owner, "1 High Street")
	b := seedProperty(t, d, owner, "2 High Street")
	empty := seedProperty(t, d, owner, "3 High Street")
	docs := NewDocumentStore(d)
	ctx := context.Background()

	createDocument(t, docs, a, owner.ID, "Survey")
	gone := createDocument(t, docs, a, owner.ID, "Old survey")
	createDocument(t, docs, a, owner.ID, "Deeds")
	createDocument(t, docs, b, owner.ID, "Lease")
	require.NoError(t, docs.SoftDelete(ctx, gone.ID))

	list, err := docs.ListByProperty(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	counts, err := docs.CountByProperties(ctx, []uuid.UUID{a.ID, b.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[a.ID])
	assert.Equal(t, 1, counts[b.ID])
	_, ok := counts[empty.ID]
	assert.False(t, ok)

	counts, err = docs.CountByProperties(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestDocumentStoreSoftDelete(t *testing.T) {
	d := openTestDB(t)
	owner := seedUser(t, d, "owner@example.com")
	p := seedProperty(t, d, owner, "1 High Street")
	docs := NewDocumentStore(d)
	ctx := context.Background()

	doc := createDocument(t, docs, p, owner.ID, "Survey")
	require.NoError(t, docs.SoftDelete(ctx, doc.ID))

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, errors.Is(docs.SoftDelete(ctx, doc.ID), domain.ErrNotFound))
}
