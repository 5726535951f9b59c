package auth

import "github.com/vidhub/backend/internal/apperrors"

var (
	// ErrAuthenticationFailed is returned for unknown identifiers and wrong secrets alike.
	ErrAuthenticationFailed = apperrors.New(apperrors.CodeAuthenticationFailed, "invalid credentials")
	// ErrTokenReplayed indicates a refresh token that verifies but is no longer the principal's current one.
	ErrTokenReplayed = apperrors.New(apperrors.CodeTokenReplayed, "refresh token is no longer valid")
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = apperrors.New(apperrors.CodeTokenExpired, "token expired")
	// ErrTokenInvalidSignature indicates a malformed token or one not signed by this issuer.
	ErrTokenInvalidSignature = apperrors.New(apperrors.CodeTokenInvalidSignature, "token signature invalid")
	// ErrTokenWrongKind indicates an access token presented where a refresh token was expected, or vice versa.
	ErrTokenWrongKind = apperrors.New(apperrors.CodeTokenWrongKind, "token kind mismatch")
	// ErrSessionNotFound indicates the principal has no live refresh token.
	ErrSessionNotFound = apperrors.New(apperrors.CodeNotFound, "session not found")
)
