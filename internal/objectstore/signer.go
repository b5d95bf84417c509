package objectstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// FileAudience is the audience of download tokens, so they cannot be replayed
// as session tokens.
const FileAudience = "passport-files"

// FilePath is where signed download URLs are served.
const FilePath = "/files/"

// FileClaims identify one stored object for a limited time.
type FileClaims struct {
	Key      string `json:"key"`
	MimeType string `json:"mime"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// File is the input to SignMany.
type File struct {
	Key      string
	MimeType string
	Name     string
}

// Signer issues short-lived HS256 download URLs for stored objects.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl, now: time.Now}
}

// Sign returns a download URL path for key.
func (s *Signer) Sign(key, mimeType, name string) (string, error) {
	now := s.now()
	claims := FileClaims{
		Key:      key,
		MimeType: mimeType,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{FileAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign file token: %w", err)
	}
	return FilePath + token, nil
}

// SignMany signs every file and returns the URLs keyed by storage key.
func (s *Signer) SignMany(files []File) (map[string]string, error) {
	urls := make(map[string]string, len(files))
	for _, f := range files {
		if _, ok := urls[f.Key]; ok {
			continue
		}
		u, err := s.Sign(f.Key, f.MimeType, f.Name)
		if err != nil {
			return nil, err
		}
		urls[f.Key] = u
	}
	return urls, nil
}

// Verify checks a token taken from a download URL.
func (s *Signer) Verify(token string) (*FileClaims, error) {
	claims := &FileClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(FileAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("file link expired: %w", domain.ErrForbidden)
		}
		return nil, fmt.Errorf("invalid file link: %w", domain.ErrForbidden)
	}
	if claims.Key == "" {
		return nil, fmt.Errorf("file link has no key: %w", domain.ErrForbidden)
	}
	return claims, nil
}
