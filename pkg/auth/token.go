// Package auth signs the anonymous cart session tokens handed to shoppers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
)

var (
	errSecretRequired = errors.New("cart session secret is required")
	errIssuerRequired = errors.New("cart session issuer is required")
	errTTLRequired    = errors.New("cart session ttl must be positive")
	// ErrNoSession is returned for a well-signed token without a subject.
	ErrNoSession = errors.New("cart token has no session")
)

// CartClaims carries the session id in the subject claim.
type CartClaims struct {
	jwt.RegisteredClaims
}

func (c *CartClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// CartSigner mints and verifies HS256 cart tokens for one issuer.
type CartSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewCartSigner(cfg config.CartSessionConfig) (*CartSigner, error) {
	switch {
	case cfg.Secret == "":
		return nil, errSecretRequired
	case cfg.Issuer == "":
		return nil, errIssuerRequired
	case cfg.TTL <= 0:
		return nil, errTTLRequired
	}
	return &CartSigner{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Mint signs a token for sessionID, or for a fresh session when it is blank.
func (s *CartSigner) Mint(now time.Time, sessionID string) (string, *CartClaims, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	claims := &CartClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign cart token: %w", err)
	}
	return signed, claims, nil
}

func (s *CartSigner) Parse(token string) (*CartClaims, error) {
	claims := &CartClaims{}
	if _, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.key, nil }); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

// NeedsRefresh reports whether less than half of the token lifetime remains.
func (s *CartSigner) NeedsRefresh(claims *CartClaims, now time.Time) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(now) < s.ttl/2
}
