package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
)

var testSecret = []byte("test-secret")

type recordingUsers struct {
	calls []string
	err   error
}

func (u *recordingUsers) Upsert(_ context.Context, id uuid.UUID, email, fullName string) (*domain.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.calls = append(u.calls, email)
	return &domain.User{ID: id, Email: email, FullName: fullName}, nil
}

func requestWithBearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestAuthenticate_NoToken(t *testing.T) {
	users := &recordingUsers{}
	a := &authenticator{secret: testSecret, users: users}

	user, err := a.authenticate(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, users.calls)
}

func TestAuthenticate_BearerUpsertsProfile(t *testing.T) {
	users := &recordingUsers{}
	a := &authenticator{secret: testSecret, users: users}
	id := uuid.New()
	token, err := SignSession(testSecret, id, "owner@example.co.uk", "Ada Owner", time.Hour)
	require.NoError(t, err)

	user, err := a.authenticate(requestWithBearer(token))
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "Ada Owner", user.FullName)
	assert.Equal(t, []string{"owner@example.co.uk"}, users.calls)
}

func TestAuthenticate_SessionCookie(t *testing.T) {
	a := &authenticator{secret: testSecret, users: &recordingUsers{}}
	token, err := SignSession(testSecret, uuid.New(), "buyer@example.co.uk", "", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	user, err := a.authenticate(r)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "buyer@example.co.uk", user.Email)
}

func TestAuthenticate_Rejects(t *testing.T) {
	signed := func(t *testing.T, claims jwt.Claims, secret []byte) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return token
	}
	valid := func(sub string) SessionClaims {
		return SessionClaims{
			Email: "someone@example.co.uk",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	expired := valid(uuid.NewString())
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := valid(uuid.NewString())
	noExpiry.ExpiresAt = nil

	noEmail := valid(uuid.NewString())
	noEmail.Email = ""

	fileURL, err := objectstore.NewSigner(testSecret, time.Hour).Sign("properties/x/documents/a.pdf", "application/pdf", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: signed(t, valid(uuid.NewString()), []byte("other"))},
		{name: "expired", token: signed(t, expired, testSecret)},
		{name: "no expiry", token: signed(t, noExpiry, testSecret)},
		{name: "subject not a uuid", token: signed(t, valid("user-42"), testSecret)},
		{name: "no email", token: signed(t, noEmail, testSecret)},
		{name: "file download token", token: strings.TrimPrefix(fileURL, objectstore.FilePath)},
		{name: "garbage", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &recordingUsers{}
			a := &authenticator{secret: testSecret, users: users}
			user, err := a.authenticate(requestWithBearer(tt.token))
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
			assert.Nil(t, user)
			assert.Empty(t, users.calls)
		})
	}
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	a := &authenticator{secret: testSecret, users: &recordingUsers{}}
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := a.authenticate(r)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthenticate_EmailTakenByAnotherAccount(t *testing.T) {
	a := &authenticator{secret: testSecret, users: &recordingUsers{err: domain.ErrConflict}}
	token, err := SignSession(testSecret, uuid.New(), "taken@example.co.uk", "", time.Hour)
	require.NoError(t, err)

	_, err = a.authenticate(requestWithBearer(token))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
