package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
)

// mediaRepository is the subset of store.MediaStore that the services require.
type mediaRepository interface {
	Create(ctx context.Context, m *domain.Media) (*domain.Media, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Media, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Media, error)
	FirstPhotoByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Media, error)
	CountByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	Update(ctx context.Context, id uuid.UUID, caption string, sortOrder int64) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type MediaService struct {
	*guard
	media   mediaRepository
	objects objectstore.Store
	signer  *objectstore.Signer
}

type UploadMediaInput struct {
	MediaType domain.MediaType
	Caption   string
	MimeType  string
	Data      []byte
}

// MediaUpdate changes the fields that are set.
type MediaUpdate struct {
	Caption   *string `json:"caption"`
	SortOrder *int64  `json:"sort_order"`
}

// MediaItem is a media row with a signed URL for its file.
type MediaItem struct {
	*domain.Media
	URL string `json:"url"`
}

func (s *MediaService) UploadMedia(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in UploadMediaInput) (*domain.Media, error) {
	s.logger.Info("upload media started", "property_id", propertyID, "media_type", in.MediaType, "bytes", len(in.Data))

	if !in.MediaType.Valid() {
		return nil, domain.Invalid("unknown media_type %q", in.MediaType)
	}
	if len(in.Data) == 0 {
		return nil, domain.Invalid("file is empty")
	}
	caption := strings.TrimSpace(in.Caption)
	if len(caption) > 500 {
		return nil, domain.Invalid("caption must be at most 500 characters")
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}

	key, size, err := s.objects.Save(ctx, storagePrefix(p.ID, "media"), in.MimeType, bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to save media: %w", err)
	}
	s.logger.Debug("media saved", "property_id", p.ID, "storage_key", key)

	m, err := s.media.Create(ctx, &domain.Media{
		PropertyID: p.ID,
		MediaType:  in.MediaType,
		Caption:    caption,
		StorageKey: key,
		MimeType:   in.MimeType,
		SizeBytes:  size,
		UploadedBy: caller.ID,
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned media", "storage_key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	s.record(ctx, p.ID, caller, domain.EventMediaUploaded, fmt.Sprintf("Uploaded %s", m.MediaType), map[string]any{
		"media_id":   m.ID,
		"media_type": m.MediaType,
	})
	return m, nil
}

// ListMedia returns the property's media in display order, each with a
// signed URL. Public properties list their media to anyone.
func (s *MediaService) ListMedia(ctx context.Context, caller *domain.User, propertyID uuid.UUID) ([]*MediaItem, error) {
	if _, _, err := s.load(ctx, caller, propertyID); err != nil {
		return nil, err
	}
	media, err := s.media.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	files := make([]objectstore.File, 0, len(media))
	for _, m := range media {
		files = append(files, objectstore.File{Key: m.StorageKey, MimeType: m.MimeType})
	}
	urls, err := s.signer.SignMany(files)
	if err != nil {
		return nil, err
	}

	items := make([]*MediaItem, 0, len(media))
	for _, m := range media {
		items = append(items, &MediaItem{Media: m, URL: urls[m.StorageKey]})
	}
	return items, nil
}

func (s *MediaService) item(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Media, access.Access, error) {
	m, err := s.media.GetByID(ctx, id)
	if err != nil {
		return nil, access.Access{}, err
	}
	if m == nil {
		return nil, access.Access{}, fmt.Errorf("media %w", domain.ErrNotFound)
	}
	_, a, err := s.load(ctx, caller, m.PropertyID)
	if err != nil {
		return nil, access.Access{}, err
	}
	return m, a, nil
}

func (s *MediaService) MediaURL(ctx context.Context, caller *domain.User, id uuid.UUID) (string, error) {
	m, _, err := s.item(ctx, caller, id)
	if err != nil {
		return "", err
	}
	return s.signer.Sign(m.StorageKey, m.MimeType, "")
}

func (s *MediaService) UpdateMedia(ctx context.Context, caller *domain.User, id uuid.UUID, in MediaUpdate) (*domain.Media, error) {
	m, a, err := s.item(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}

	caption, sortOrder := m.Caption, m.SortOrder
	if in.Caption != nil {
		caption = strings.TrimSpace(*in.Caption)
		if len(caption) > 500 {
			return nil, domain.Invalid("caption must be at most 500 characters")
		}
	}
	if in.SortOrder != nil {
		if *in.SortOrder < 0 {
			return nil, domain.Invalid("sort_order must not be negative")
		}
		sortOrder = *in.SortOrder
	}
	if err := s.media.Update(ctx, m.ID, caption, sortOrder); err != nil {
		return nil, err
	}
	s.record(ctx, m.PropertyID, caller, domain.EventMediaUpdated, fmt.Sprintf("Updated %s", m.MediaType), map[string]any{
		"media_id": m.ID,
	})
	return s.media.GetByID(ctx, m.ID)
}

func (s *MediaService) DeleteMedia(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	m, a, err := s.item(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return err
	}
	if err := s.media.SoftDelete(ctx, m.ID); err != nil {
		return err
	}
	s.record(ctx, m.PropertyID, caller, domain.EventMediaDeleted, fmt.Sprintf("Deleted %s", m.MediaType), map[string]any{
		"media_id": m.ID,
	})
	return nil
}
