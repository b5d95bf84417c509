package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
)

const recentEventLimit = 10

type DashboardService struct {
	properties propertyRepository
	roles      roleRepository
	documents  documentRepository
	media      mediaRepository
	flags      flagRepository
	events     eventRepository
	signer     *objectstore.Signer
}

type DashboardProperty struct {
	*domain.Property
	Role         string    `json:"role"`
	Documents    int       `json:"document_count"`
	Media        int       `json:"media_count"`
	OpenFlags    int       `json:"open_flag_count"`
	LastActivity time.Time `json:"last_activity"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

type Dashboard struct {
	Properties   []*DashboardProperty `json:"properties"`
	RecentEvents []*domain.Event      `json:"recent_events"`
}

// Dashboard summarises every property caller holds an active role on. Counts
// come from one grouped query per table.
func (s *DashboardService) Dashboard(ctx context.Context, caller *domain.User) (*Dashboard, error) {
	if caller == nil {
		return nil, domain.ErrUnauthenticated
	}
	now := domain.Now()

	roles, err := s.roles.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	rolesByProperty := make(map[uuid.UUID][]*domain.Role, len(roles))
	var ids []uuid.UUID
	for _, r := range roles {
		if !r.Active(now) {
			continue
		}
		if _, seen := rolesByProperty[r.PropertyID]; !seen {
			ids = append(ids, r.PropertyID)
		}
		rolesByProperty[r.PropertyID] = append(rolesByProperty[r.PropertyID], r)
	}

	dash := &Dashboard{Properties: []*DashboardProperty{}, RecentEvents: []*domain.Event{}}
	if len(ids) == 0 {
		return dash, nil
	}

	properties, err := s.properties.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	documents, err := s.documents.CountByProperties(ctx, ids)
	if err != nil {
		return nil, err
	}
	media, err := s.media.CountByProperties(ctx, ids)
	if err != nil {
		return nil, err
	}
	openFlags, err := s.flags.CountOpenByProperties(ctx, ids)
	if err != nil {
		return nil, err
	}
	latest, err := s.events.LatestByProperties(ctx, ids)
	if err != nil {
		return nil, err
	}
	photos, err := s.media.FirstPhotoByProperties(ctx, ids)
	if err != nil {
		return nil, err
	}

	files := make([]objectstore.File, 0, len(photos))
	for _, m := range photos {
		files = append(files, objectstore.File{Key: m.StorageKey, MimeType: m.MimeType})
	}
	thumbnails, err := s.signer.SignMany(files)
	if err != nil {
		return nil, err
	}

	for _, p := range properties {
		a := access.Resolve(caller, p, rolesByProperty[p.ID], now)
		dp := &DashboardProperty{
			Property:     p,
			Role:         a.Label(),
			Documents:    documents[p.ID],
			Media:        media[p.ID],
			OpenFlags:    openFlags[p.ID],
			LastActivity: p.UpdatedAt,
		}
		if t, ok := latest[p.ID]; ok && t.After(dp.LastActivity) {
			dp.LastActivity = t
		}
		if photo, ok := photos[p.ID]; ok {
			dp.ThumbnailURL = thumbnails[photo.StorageKey]
		}
		dash.Properties = append(dash.Properties, dp)
	}

	recent, err := s.events.ListRecentByProperties(ctx, ids, recentEventLimit)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		dash.RecentEvents = recent
	}
	return dash, nil
}
