package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

type documentLink struct {
	*domain.Document
	URL string
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	d, err := s.services.Dashboard.Dashboard(r.Context(), caller)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.renderPage(w,
		map[string]any{"Dashboard": d, "Caller": caller, "ActiveNav": "dashboard"},
		"base.html", "pages/dashboard.html", "partials/property_card.html", "partials/event_list.html",
	); err != nil {
		s.logger.Error("render page failed", "page", "dashboard", "error", err)
	}
}

func (s *Server) handlePropertyPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	caller := callerFrom(ctx)

	view, err := s.services.Properties.GetProperty(ctx, caller, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	media, err := s.services.Media.ListMedia(ctx, caller, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Property":  view,
		"Media":     media,
		"Caller":    caller,
		"CanEdit":   view.Access.CanEdit(),
		"ActiveNav": "properties",
	}

	if view.Access.CanViewRestricted() {
		docs, err := s.documentLinks(r, caller, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		open := domain.FlagOpen
		flags, err := s.services.Flags.ListFlags(ctx, caller, id, &open)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		events, err := s.services.Timeline.ListEvents(ctx, caller, id, 0)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		data["Documents"] = docs
		data["Flags"] = flags
		data["Events"] = events
		data["Restricted"] = true
	}

	if err := s.renderPage(w, data,
		"base.html", "pages/property.html", "partials/event_list.html",
	); err != nil {
		s.logger.Error("render page failed", "page", "property", "property_id", id, "error", err)
	}
}

func (s *Server) documentLinks(r *http.Request, caller *domain.User, propertyID uuid.UUID) ([]documentLink, error) {
	docs, err := s.services.Documents.ListDocuments(r.Context(), caller, propertyID)
	if err != nil {
		return nil, err
	}
	links := make([]documentLink, 0, len(docs))
	for _, d := range docs {
		url, err := s.signer.Sign(d.StorageKey, d.MimeType, d.FileName)
		if err != nil {
			return nil, err
		}
		links = append(links, documentLink{Document: d, URL: url})
	}
	return links, nil
}

// handleTimelinePartial renders the event list on its own so the property
// page can refresh it.
func (s *Server) handleTimelinePartial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.services.Timeline.ListEvents(r.Context(), callerFrom(r.Context()), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.renderPartial(w, "partials/event_list.html", events); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}
