package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// envelope is the body of every /api response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Cached  *bool  `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrLastOwner),
		errors.Is(err, domain.ErrInvitationUsed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvitationExpired),
		errors.Is(err, domain.ErrInvitationRevoked):
		return http.StatusGone
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicMessage hides internal failures from the client.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	if status == http.StatusBadGateway {
		return "upstream data source unavailable"
	}
	return err.Error()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) ok(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, envelope{Success: true, Data: data})
}

// fail writes err as an error envelope for API paths and as plain text
// elsewhere.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	msg := publicMessage(err, status)
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		http.Error(w, msg, status)
		return
	}
	s.writeJSON(w, status, envelope{Success: false, Error: msg})
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("request body is required")
		}
		return domain.Invalid("invalid JSON body: %v", err)
	}
	return nil
}

// pathID parses the named path value as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("%s must be a UUID", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid("%s must be an integer", name)
	}
	return n, nil
}
