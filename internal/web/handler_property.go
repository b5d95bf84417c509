package web

import (
	"net/http"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/service"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.services.Dashboard.Dashboard(r.Context(), callerFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, d)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var in service.PropertyInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.services.Properties.CreateProperty(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, p)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.services.Properties.GetProperty(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, view)
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.PropertyInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.services.Properties.UpdateProperty(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, p)
}

type visibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in visibilityRequest
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.IsPublic == nil {
		s.fail(w, r, domain.Invalid("is_public is required"))
		return
	}
	if err := s.services.Properties.SetVisibility(r.Context(), callerFrom(r.Context()), id, *in.IsPublic); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, map[string]bool{"is_public": *in.IsPublic})
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Properties.DeleteProperty(r.Context(), callerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, nil)
}
