package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
)

// SessionCookie holds a session token for browser requests.
const SessionCookie = "passport_session"

// SessionClaims is the access token issued by the identity provider.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SignSession mints an HS256 session token. It backs the token command and
// tests.
func SignSession(secret []byte, sub uuid.UUID, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

type userUpserter interface {
	Upsert(ctx context.Context, id uuid.UUID, email, fullName string) (*domain.User, error)
}

type authenticator struct {
	secret []byte
	users  userUpserter
}

type callerKey struct{}

func callerFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(callerKey{}).(*domain.User)
	return u
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticate returns nil, nil for requests without a token.
func (a *authenticator) authenticate(r *http.Request) (*domain.User, error) {
	raw := bearerToken(r)
	if raw == "" {
		if r.Header.Get("Authorization") != "" {
			return nil, fmt.Errorf("malformed authorization header: %w", domain.ErrUnauthenticated)
		}
		return nil, nil
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", domain.ErrUnauthenticated)
	}
	if slices.Contains(claims.Audience, objectstore.FileAudience) {
		return nil, fmt.Errorf("file token used as session: %w", domain.ErrUnauthenticated)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("session subject is not a user id: %w", domain.ErrUnauthenticated)
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("session has no email: %w", domain.ErrUnauthenticated)
	}

	user, err := a.users.Upsert(r.Context(), id, email, strings.TrimSpace(claims.Name))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("email belongs to another account: %w", domain.ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// withCaller resolves the session once per request. Handlers decide whether
// an anonymous caller is acceptable.
func (s *Server) withCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.authenticate(r)
		if err != nil {
			s.logger.Warn("authentication failed", "path", r.URL.Path, "error", err)
			s.fail(w, r, err)
			return
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), callerKey{}, user))
		}
		next.ServeHTTP(w, r)
	})
}
