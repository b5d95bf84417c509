package web

import (
	"net/http"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/service"
)

func (s *Server) handleListFlags(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var status *domain.FlagStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := domain.FlagStatus(raw)
		if !st.Valid() {
			s.fail(w, r, domain.Invalid("unknown status %q", raw))
			return
		}
		status = &st
	}
	flags, err := s.services.Flags.ListFlags(r.Context(), callerFrom(r.Context()), propertyID, status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, flags)
}

func (s *Server) handleRaiseFlag(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.FlagInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.services.Flags.RaiseFlag(r.Context(), callerFrom(r.Context()), propertyID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, f)
}

func (s *Server) handleUpdateFlag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.FlagUpdate
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.services.Flags.UpdateFlag(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, f)
}

type resolveRequest struct {
	Status domain.FlagStatus `json:"status"`
}

func (s *Server) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in resolveRequest
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	f, err := s.services.Flags.ResolveFlag(r.Context(), callerFrom(r.Context()), id, in.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, f)
}
