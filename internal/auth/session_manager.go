package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/models"
)

const minPasswordLength = 8

// SessionStore persists the single live refresh token of each principal.
type SessionStore interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, principalID string) (Session, error)
	Clear(ctx context.Context, principalID string) error
	// Rotate must compare and swap atomically, failing with ErrTokenReplayed on mismatch.
	Rotate(ctx context.Context, principalID, presentedHash string, next Session) error
}

// UserStore captures the principal lookups the manager depends on.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// Observer receives one outcome per manager operation.
type Observer interface {
	ObserveAuth(operation, outcome string)
}

// Session represents the refresh token currently valid for a principal.
type Session struct {
	PrincipalID      string
	RefreshTokenHash string
	ExpiresAt        time.Time
}

// Registration carries the fields needed to create a principal.
type Registration struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// Manager orchestrates credential checks and the access/refresh token lifecycle.
type Manager struct {
	users    UserStore
	store    SessionStore
	tokens   *TokenIssuer
	hasher   PasswordHasher
	observer Observer
	now      func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithClock overrides the manager's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager.
func NewManager(users UserStore, store SessionStore, tokens *TokenIssuer, hasher PasswordHasher, opts ...Option) *Manager {
	if users == nil || store == nil || tokens == nil {
		panic("auth: user store, session store and token issuer must not be nil")
	}
	m := &Manager{
		users:  users,
		store:  store,
		tokens: tokens,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates a principal with a hashed password.
func (m *Manager) Register(ctx context.Context, reg Registration) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.register")
	defer span.End()

	reg.Username = strings.ToLower(strings.TrimSpace(reg.Username))
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Avatar = strings.TrimSpace(reg.Avatar)
	reg.CoverImage = strings.TrimSpace(reg.CoverImage)

	if reg.Username == "" || reg.Email == "" || reg.FullName == "" || reg.Password == "" {
		return models.User{}, m.done("register", apperrors.Validation("username, email, full name and password are required"))
	}
	if strings.Contains(reg.Username, "@") {
		return models.User{}, m.done("register", apperrors.Validation("username must not contain '@'"))
	}
	if reg.Avatar == "" {
		return models.User{}, m.done("register", apperrors.Validation("avatar is required"))
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return models.User{}, m.done("register", apperrors.Validation("invalid email address"))
	}
	if err := validatePassword(reg.Password); err != nil {
		return models.User{}, m.done("register", err)
	}

	hashed, err := m.hasher.Hash(reg.Password)
	if err != nil {
		return models.User{}, m.done("register", fmt.Errorf("hash password: %w", err))
	}

	now := m.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   reg.Username,
		Email:      reg.Email,
		FullName:   reg.FullName,
		Avatar:     reg.Avatar,
		CoverImage: reg.CoverImage,
		Password:   hashed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.users.Create(ctx, user); err != nil {
		return models.User{}, m.done("register", err)
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	return user, m.done("register", nil)
}

// Login verifies credentials and starts a new session, superseding any previous one.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "auth.login")
	defer span.End()
	logger := logging.FromContext(ctx)

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || secret == "" {
		return models.SessionTokens{}, m.done("login", apperrors.Validation("identifier and password are required"))
	}

	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			m.hasher.burn(secret)
			logger.Warn("login unknown identifier")
			return models.SessionTokens{}, m.done("login", ErrAuthenticationFailed)
		}
		return models.SessionTokens{}, m.done("login", fmt.Errorf("login lookup: %w", err))
	}

	if !m.hasher.Verify(user.Password, secret) {
		logger.Warn("login password mismatch", "userId", user.ID)
		return models.SessionTokens{}, m.done("login", ErrAuthenticationFailed)
	}

	tokens, session, err := m.mint(user.ID)
	if err != nil {
		return models.SessionTokens{}, m.done("login", err)
	}
	if err := m.store.Put(ctx, session); err != nil {
		return models.SessionTokens{}, m.done("login", fmt.Errorf("persist session: %w", err))
	}

	logger.Info("session started", "userId", user.ID)
	return tokens, m.done("login", nil)
}

// Refresh exchanges the principal's current refresh token for a new pair. The stored
// token is swapped before the pair is returned, so a presented token works at most once.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "auth.refresh")
	defer span.End()
	logger := logging.FromContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, m.done("refresh", apperrors.Validation("refresh token is required"))
	}

	principalID, err := m.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		logger.Warn("refresh token rejected", "error", err)
		return models.SessionTokens{}, m.done("refresh", err)
	}

	tokens, next, err := m.mint(principalID)
	if err != nil {
		return models.SessionTokens{}, m.done("refresh", err)
	}

	if err := m.store.Rotate(ctx, principalID, HashRefreshToken(refreshToken), next); err != nil {
		if errors.Is(err, ErrTokenReplayed) {
			logger.Warn("superseded refresh token presented", "userId", principalID)
			return models.SessionTokens{}, m.done("refresh", ErrTokenReplayed)
		}
		return models.SessionTokens{}, m.done("refresh", fmt.Errorf("rotate session: %w", err))
	}

	return tokens, m.done("refresh", nil)
}

// Logout revokes the principal's refresh token.
func (m *Manager) Logout(ctx context.Context, principalID string) error {
	ctx, span := logging.StartSpan(ctx, "auth.logout")
	defer span.End()

	if strings.TrimSpace(principalID) == "" {
		return m.done("logout", apperrors.Validation("principal id must be provided"))
	}
	if err := m.store.Clear(ctx, principalID); err != nil {
		return m.done("logout", fmt.Errorf("clear session: %w", err))
	}

	logging.FromContext(ctx).Info("session revoked", "userId", principalID)
	return m.done("logout", nil)
}

// ChangePassword replaces the stored hash after re-verifying the old secret.
// Existing sessions are left alone; callers wanting revocation call Logout.
func (m *Manager) ChangePassword(ctx context.Context, principalID, oldSecret, newSecret string) error {
	ctx, span := logging.StartSpan(ctx, "auth.change_password")
	defer span.End()

	if principalID == "" || oldSecret == "" || newSecret == "" {
		return m.done("change_password", apperrors.Validation("old and new passwords are required"))
	}

	user, err := m.users.FindByID(ctx, principalID)
	if err != nil {
		return m.done("change_password", err)
	}
	if !m.hasher.Verify(user.Password, oldSecret) {
		logging.FromContext(ctx).Warn("change password mismatch", "userId", principalID)
		return m.done("change_password", ErrAuthenticationFailed)
	}
	if err := validatePassword(newSecret); err != nil {
		return m.done("change_password", err)
	}

	hashed, err := m.hasher.Hash(newSecret)
	if err != nil {
		return m.done("change_password", fmt.Errorf("hash password: %w", err))
	}
	if err := m.users.UpdatePassword(ctx, principalID, hashed, m.now()); err != nil {
		return m.done("change_password", err)
	}
	return m.done("change_password", nil)
}

// Authenticate verifies an access token and resolves the principal it names.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	principalID, err := m.tokens.Verify(strings.TrimSpace(accessToken), TokenAccess)
	if err != nil {
		return models.User{}, err
	}

	user, err := m.users.FindByID(ctx, principalID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return models.User{}, ErrAuthenticationFailed
		}
		return models.User{}, fmt.Errorf("authenticate lookup: %w", err)
	}
	return user, nil
}

func (m *Manager) mint(principalID string) (models.SessionTokens, Session, error) {
	access, accessExp, err := m.tokens.IssueAccess(principalID)
	if err != nil {
		return models.SessionTokens{}, Session{}, err
	}
	refresh, refreshExp, err := m.tokens.IssueRefresh(principalID)
	if err != nil {
		return models.SessionTokens{}, Session{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}
	session := Session{
		PrincipalID:      principalID,
		RefreshTokenHash: HashRefreshToken(refresh),
		ExpiresAt:        refreshExp,
	}
	return tokens, session, nil
}

func (m *Manager) done(operation string, err error) error {
	if m.observer == nil {
		return err
	}
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(apperrors.CodeOf(err)))
	}
	m.observer.ObserveAuth(operation, outcome)
	return err
}

func validatePassword(secret string) error {
	if len(secret) < minPasswordLength {
		return apperrors.Validation("password must be at least 8 characters")
	}
	if len(secret) > maxPasswordBytes {
		return apperrors.Validation("password must be at most 72 bytes")
	}
	return nil
}
