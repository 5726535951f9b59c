package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/db"
)

// PostgresSessionStore persists one refresh token hash per user in PostgreSQL.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Put stores the user's session, replacing whatever was there.
func (s *PostgresSessionStore) Put(ctx context.Context, session auth.Session) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO sessions (user_id, refresh_token_hash, expires_at, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id)
        DO UPDATE SET refresh_token_hash = EXCLUDED.refresh_token_hash,
                      expires_at = EXCLUDED.expires_at,
                      updated_at = NOW()
    `, session.PrincipalID, session.RefreshTokenHash, session.ExpiresAt.UTC())
	if err != nil {
		return handlePostgresError(err, "upsert session")
	}
	return nil
}

// Get loads the user's live session.
func (s *PostgresSessionStore) Get(ctx context.Context, principalID string) (auth.Session, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT user_id, refresh_token_hash, expires_at
        FROM sessions
        WHERE user_id = $1
    `, principalID)

	var session auth.Session
	var expiresAt time.Time
	if err := row.Scan(&session.PrincipalID, &session.RefreshTokenHash, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, handlePostgresError(err, "select session")
	}

	session.ExpiresAt = expiresAt.UTC()
	return session, nil
}

// Clear removes the user's session if there is one.
func (s *PostgresSessionStore) Clear(ctx context.Context, principalID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, principalID); err != nil {
		return handlePostgresError(err, "delete session")
	}
	return nil
}

// Rotate replaces the stored hash only while it still equals presentedHash.
func (s *PostgresSessionStore) Rotate(ctx context.Context, principalID, presentedHash string, next auth.Session) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE sessions
        SET refresh_token_hash = $3, expires_at = $4, updated_at = NOW()
        WHERE user_id = $1 AND refresh_token_hash = $2
    `, principalID, presentedHash, next.RefreshTokenHash, next.ExpiresAt.UTC())
	if err != nil {
		return handlePostgresError(err, "rotate session")
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrTokenReplayed
	}
	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
var _ auth.UserStore = (*PostgresUserRepository)(nil)
