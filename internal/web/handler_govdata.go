package web

import (
	"context"
	"net/http"

	"github.com/vbonduro/propertypassport/internal/govdata"
)

// serveLookup decodes a provider request and writes the cached or fresh
// result with its cached flag.
func serveLookup[T any](s *Server, w http.ResponseWriter, r *http.Request, lookup func(context.Context, T) (*govdata.Result, error)) {
	var req T
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := lookup(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cached := res.Cached
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: res.Data, Cached: &cached})
}

func (s *Server) handleEPC(w http.ResponseWriter, r *http.Request) {
	serveLookup(s, w, r, s.govdata.EPC)
}

func (s *Server) handleLandRegistry(w http.ResponseWriter, r *http.Request) {
	serveLookup(s, w, r, s.govdata.LandRegistry)
}

func (s *Server) handleFloodRisk(w http.ResponseWriter, r *http.Request) {
	serveLookup(s, w, r, s.govdata.FloodRisk)
}

func (s *Server) handleCrime(w http.ResponseWriter, r *http.Request) {
	serveLookup(s, w, r, s.govdata.Crime)
}
