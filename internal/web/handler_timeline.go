package web

import (
	"net/http"

	"github.com/vbonduro/propertypassport/internal/service"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.services.Timeline.ListEvents(r.Context(), callerFrom(r.Context()), propertyID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, events)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.EventInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.services.Timeline.AddEvent(r.Context(), callerFrom(r.Context()), propertyID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, e)
}
