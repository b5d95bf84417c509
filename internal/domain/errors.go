package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by stores, services and the HTTP layer. The web
// package maps each one to a status code.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("already exists")
	ErrLastOwner         = errors.New("property must keep at least one owner")
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInvitationRevoked = errors.New("invitation has been revoked")
	ErrInvitationUsed    = errors.New("invitation has already been accepted")
	ErrUpstream          = errors.New("upstream request failed")
)

// Invalid wraps ErrInvalidInput with a field-level reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
