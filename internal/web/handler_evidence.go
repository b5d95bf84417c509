package web

import (
	"net/http"

	"github.com/vbonduro/propertypassport/internal/service"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	docs, err := s.services.Documents.ListDocuments(r.Context(), callerFrom(r.Context()), propertyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, docs)
}

type urlResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	url, err := s.services.Documents.DocumentURL(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Documents.DeleteDocument(r.Context(), callerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, nil)
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.services.Media.ListMedia(r.Context(), callerFrom(r.Context()), propertyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, items)
}

func (s *Server) handleMediaURL(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	url, err := s.services.Media.MediaURL(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.MediaUpdate
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.services.Media.UpdateMedia(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Media.DeleteMedia(r.Context(), callerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, nil)
}
