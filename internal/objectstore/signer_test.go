package objectstore

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func tokenOf(t *testing.T, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, FilePath))
	return strings.TrimPrefix(url, FilePath)
}

func TestSignerSignAndVerify(t *testing.T) {
	s := NewSigner([]byte("secret"), time.Hour)

	url, err := s.Sign("p/documents/a.pdf", "application/pdf", "survey.pdf")
	require.NoError(t, err)

	claims, err := s.Verify(tokenOf(t, url))
	require.NoError(t, err)
	assert.Equal(t, "p/documents/a.pdf", claims.Key)
	assert.Equal(t, "application/pdf", claims.MimeType)
	assert.Equal(t, "survey.pdf", claims.Name)
}

func TestSignerVerify_Expired(t *testing.T) {
	s := NewSigner([]byte("secret"), time.Minute)
	issued := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issued }
	url, err := s.Sign("k", "image/png", "")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(tokenOf(t, url))
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Contains(t, err.Error(), "expired")
}

func TestSignerVerify_WrongSecret(t *testing.T) {
	url, err := NewSigner([]byte("one"), time.Hour).Sign("k", "image/png", "")
	require.NoError(t, err)

	_, err = NewSigner([]byte("two"), time.Hour).Verify(tokenOf(t, url))
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestSignerVerify_RejectsSessionTokens(t *testing.T) {
	secret := []byte("secret")
	session, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"key": "p/documents/a.pdf",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewSigner(secret, time.Hour).Verify(session)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestSignerSignMany(t *testing.T) {
	s := NewSigner([]byte("secret"), time.Hour)
	urls, err := s.SignMany([]File{
		{Key: "a.jpg", MimeType: "image/jpeg"},
		{Key: "b.png", MimeType: "image/png"},
		{Key: "a.jpg", MimeType: "image/jpeg"},
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)

	claims, err := s.Verify(tokenOf(t, urls["b.png"]))
	require.NoError(t, err)
	assert.Equal(t, "b.png", claims.Key)
}
