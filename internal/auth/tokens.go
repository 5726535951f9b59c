package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidhub/backend/internal/apperrors"
)

// TokenKind distinguishes short-lived access tokens from long-lived refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 240 * time.Hour
)

// TokenConfig holds the signing material and lifetimes for a TokenIssuer.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// TokenIssuer mints and verifies HS256 JWTs. It holds a private copy of its
// configuration; rotating keys means constructing a new issuer.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

type tokenClaims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &TokenIssuer{
		accessSecret:  append([]byte(nil), cfg.AccessSecret...),
		refreshSecret: append([]byte(nil), cfg.RefreshSecret...),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           cfg.Now,
	}, nil
}

// IssueAccess mints an access token for principalID.
func (i *TokenIssuer) IssueAccess(principalID string) (string, time.Time, error) {
	return i.issue(principalID, TokenAccess)
}

// IssueRefresh mints a refresh token for principalID.
func (i *TokenIssuer) IssueRefresh(principalID string) (string, time.Time, error) {
	return i.issue(principalID, TokenRefresh)
}

func (i *TokenIssuer) issue(principalID string, kind TokenKind) (string, time.Time, error) {
	if principalID == "" {
		return "", time.Time{}, apperrors.Validation("principal id must be provided")
	}

	secret, ttl := i.accessSecret, i.accessTTL
	if kind == TokenRefresh {
		secret, ttl = i.refreshSecret, i.refreshTTL
	}

	now := i.now()
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principalID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature and expiry and returns the principal id carried by token.
func (i *TokenIssuer) Verify(token string, expected TokenKind) (string, error) {
	claims := &tokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		c, ok := t.Claims.(*tokenClaims)
		if !ok {
			return nil, fmt.Errorf("unsupported claim type %T", t.Claims)
		}
		switch c.Kind {
		case TokenAccess:
			return i.accessSecret, nil
		case TokenRefresh:
			return i.refreshSecret, nil
		default:
			return nil, fmt.Errorf("unknown token kind %q", c.Kind)
		}
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalidSignature
	}

	if claims.Kind != expected {
		return "", ErrTokenWrongKind
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalidSignature
	}
	return claims.Subject, nil
}

// HashRefreshToken returns the SHA-256 hex digest under which a refresh token is stored.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
