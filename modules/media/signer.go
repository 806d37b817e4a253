package media

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidLink is returned for a missing, forged or mismatched link token.
	ErrInvalidLink = errors.New("invalid media link")
	// ErrExpiredLink is returned once a link's lifetime has passed.
	ErrExpiredLink = errors.New("media link has expired")
)

const linkIssuer = "stylehub-media"

type linkClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// Signer issues and checks time-limited links to stored objects.
type Signer struct {
	secret   []byte
	basePath string
	now      func() time.Time
}

// NewSigner creates a signer. basePath is the public route objects are served
// from, e.g. "/media".
func NewSigner(secret, basePath string) *Signer {
	return &Signer{
		secret:   []byte(secret),
		basePath: strings.TrimRight(basePath, "/"),
		now:      time.Now,
	}
}

// Token returns a signed token granting read access to key for ttl.
func (s *Signer) Token(key string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := linkClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    linkIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// URL returns the signed link for key.
func (s *Signer) URL(key string, ttl time.Duration) (string, error) {
	token, err := s.Token(key, ttl)
	if err != nil {
		return "", err
	}
	return s.basePath + "/" + key + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token was issued for key and has not expired.
func (s *Signer) Verify(key, token string) error {
	if token == "" {
		return ErrInvalidLink
	}
	parsed, err := jwt.ParseWithClaims(token, &linkClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidLink
		}
		return s.secret, nil
	}, jwt.WithIssuer(linkIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredLink
		}
		return ErrInvalidLink
	}

	claims, ok := parsed.Claims.(*linkClaims)
	if !ok || !parsed.Valid || claims.Key != key {
		return ErrInvalidLink
	}
	return nil
}
