package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "pgxmock expectations were not met")
		mock.Close()
	})
	return mock
}

func TestHandlePostgresError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Code
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: apperrors.CodeNotFound},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: apperrors.CodeConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: apperrors.CodeNotFound},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: apperrors.CodeValidation},
		{name: "undefined table", err: &pgconn.PgError{Code: "42P01"}, want: apperrors.CodeInternal},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: apperrors.CodeDependency},
		{name: "connection", err: errors.New("dial tcp: connection refused"), want: apperrors.CodeDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.CodeOf(handlePostgresError(tt.err, "op")))
		})
	}

	assert.NoError(t, handlePostgresError(nil, "op"))
	assert.ErrorIs(t, handlePostgresError(context.Canceled, "op"), context.Canceled)
	assert.ErrorIs(t, handlePostgresError(pgx.ErrNoRows, "op"), ErrNotFound)
}

func TestPostgresUserRepository_Create(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	user := models.User{ID: "u1", Username: "alice", Email: "alice@example.com", FullName: "Alice", Avatar: "a.png", Password: "hash", CreatedAt: now, UpdatedAt: now}

	tests := []struct {
		name  string
		setup func(mock pgxmock.PgxPoolIface)
		code  apperrors.Code
	}{
		{
			name: "success",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO users").
					WithArgs("u1", "alice", "alice@example.com", "Alice", "a.png", "", "hash", now, now).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO users").
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			code: apperrors.CodeConflict,
		},
		{
			name: "database error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO users").WillReturnError(assert.AnError)
			},
			code: apperrors.CodeDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			err := NewPostgresUserRepository(mock).Create(context.Background(), user)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestPostgresUserRepository_FindByIdentifier(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()
	columns := []string{"id", "username", "email", "full_name", "avatar", "cover_image", "password_hash", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1 OR username = \\$1 ORDER BY \\(email = \\$1\\) DESC LIMIT 1").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(columns).AddRow("u1", "alice", "alice@example.com", "Alice", "a.png", "", "hash", now, now))
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresUserRepository(mock)

	user, err := repo.FindByIdentifier(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "hash", user.Password)

	_, err = repo.FindByIdentifier(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUserRepository_FindProfiles(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()
	columns := []string{"id", "username", "email", "full_name", "avatar", "cover_image", "password_hash", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ANY").
		WithArgs([]string{"u1", "gone"}).
		WillReturnRows(pgxmock.NewRows(columns).AddRow("u1", "alice", "alice@example.com", "Alice", "a.png", "", "hash", now, now))

	repo := NewPostgresUserRepository(mock)

	profiles, err := repo.FindProfiles(context.Background(), []string{"u1", "gone"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles["u1"].Username)

	empty, err := repo.FindProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresUserRepository_UpdatePassword(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE users").WithArgs("u1", "new-hash", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users").WithArgs("missing", "new-hash", now).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresUserRepository(mock)
	assert.NoError(t, repo.UpdatePassword(context.Background(), "u1", "new-hash", now))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "missing", "new-hash", now), ErrNotFound)
}

func TestPostgresEdgeRepository_InsertRemove(t *testing.T) {
	mock := newMock(t)
	edge := models.Edge{ActorID: "alice", TargetID: "bob", Kind: models.EdgeSubscription}

	mock.ExpectExec("INSERT INTO edges").
		WithArgs("alice", "bob", "subscription", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO edges").
		WithArgs("alice", "bob", "subscription", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("DELETE FROM edges").
		WithArgs("alice", "bob", "subscription").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM edges").
		WithArgs("alice", "bob", "subscription").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO edges").
		WithArgs("alice", "bob", "subscription", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "40001"})

	repo := NewPostgresEdgeRepository(mock)
	ctx := context.Background()

	assert.NoError(t, repo.Insert(ctx, edge))
	assert.ErrorIs(t, repo.Insert(ctx, edge), relations.ErrAlreadyExists)
	assert.NoError(t, repo.Remove(ctx, edge))
	assert.ErrorIs(t, repo.Remove(ctx, edge), relations.ErrNotFound)
	assert.True(t, apperrors.IsRetryable(repo.Insert(ctx, edge)))
}

func TestPostgresEdgeRepository_Reads(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice", "bob", "subscription").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM edges WHERE target_id").
		WithArgs("bob", "subscription").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM edges WHERE actor_id").
		WithArgs("bob", "subscription").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT target_id FROM edges").
		WithArgs("alice", "video_like").
		WillReturnRows(pgxmock.NewRows([]string{"target_id"}).AddRow("v2").AddRow("v1"))
	mock.ExpectQuery("SELECT actor_id FROM edges").
		WithArgs("bob", "subscription").
		WillReturnRows(pgxmock.NewRows([]string{"actor_id"}))

	repo := NewPostgresEdgeRepository(mock)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, models.Edge{ActorID: "alice", TargetID: "bob", Kind: models.EdgeSubscription})
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := repo.CountByTarget(ctx, "bob", models.EdgeSubscription)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = repo.CountByActor(ctx, "bob", models.EdgeSubscription)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	targets, err := repo.ListTargets(ctx, "alice", models.EdgeVideoLike)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v1"}, targets)

	actors, err := repo.ListActors(ctx, "bob", models.EdgeSubscription)
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestPostgresSessionStore_Rotate(t *testing.T) {
	mock := newMock(t)
	next := auth.Session{PrincipalID: "u1", RefreshTokenHash: "next", ExpiresAt: time.Now().Add(time.Hour)}

	mock.ExpectExec("UPDATE sessions").
		WithArgs("u1", "current", "next", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE sessions").
		WithArgs("u1", "current", "next", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE sessions").
		WithArgs("u1", "current", "next", pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	store := NewPostgresSessionStore(mock)
	ctx := context.Background()

	assert.NoError(t, store.Rotate(ctx, "u1", "current", next))
	assert.ErrorIs(t, store.Rotate(ctx, "u1", "current", next), auth.ErrTokenReplayed)
	assert.Equal(t, apperrors.CodeDependency, apperrors.CodeOf(store.Rotate(ctx, "u1", "current", next)))
}

func TestPostgresSessionStore_PutGetClear(t *testing.T) {
	mock := newMock(t)
	expires := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("u1", "hash", expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT user_id, refresh_token_hash, expires_at FROM sessions").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "refresh_token_hash", "expires_at"}).AddRow("u1", "hash", expires))
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("SELECT user_id, refresh_token_hash, expires_at FROM sessions").
		WithArgs("u1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPostgresSessionStore(mock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, auth.Session{PrincipalID: "u1", RefreshTokenHash: "hash", ExpiresAt: expires}))

	session, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash", session.RefreshTokenHash)
	assert.True(t, session.ExpiresAt.Equal(expires))

	require.NoError(t, store.Clear(ctx, "u1"))

	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	assert.NoError(t, store.Clear(ctx, "u1"))
}

func TestPostgresVideoRepository_RecordView(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE videos SET views = views \\+ 1").
			WithArgs("v1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO watch_history").
			WithArgs(pgxmock.AnyArg(), "alice", "v1", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		entry, err := NewPostgresVideoRepository(mock).RecordView(context.Background(), "alice", "v1")
		require.NoError(t, err)
		assert.Len(t, entry.ID, 26)
		assert.Equal(t, "v1", entry.VideoID)
	})

	t.Run("unknown video", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE videos").
			WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		_, err := NewPostgresVideoRepository(mock).RecordView(context.Background(), "alice", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresVideoRepository_ChannelContent(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT").
		WithArgs("bob").
		WillReturnRows(pgxmock.NewRows([]string{"videos", "views", "video_likes", "tweet_likes"}).
			AddRow(int64(3), int64(120), int64(7), int64(2)))

	content, err := NewPostgresVideoRepository(mock).ChannelContent(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelContent{TotalVideos: 3, TotalViews: 120, TotalVideoLikes: 7, TotalTweetLikes: 2}, content)
}

func TestPostgresVideoRepository_ListByOwner(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	columns := []string{"id", "owner_id", "title", "description", "thumbnail", "video_file", "duration", "views", "is_published", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM videos WHERE owner_id = \\$1 ORDER BY created_at DESC, id").
		WithArgs("bob").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("v2", "bob", "Second", "", "thumbs/v2.png", "videos/v2.mp4", 31.5, int64(4), true, at.Add(time.Hour)).
			AddRow("v1", "bob", "First", "", "thumbs/v1.png", "videos/v1.mp4", 12.0, int64(9), false, at))

	videos, err := NewPostgresVideoRepository(mock).ListByOwner(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "v2", videos[0].ID)
	assert.Equal(t, 31.5, videos[0].Duration)
	assert.False(t, videos[1].IsPublished)

	mock.ExpectQuery("SELECT (.+) FROM videos").
		WithArgs("carol").
		WillReturnRows(pgxmock.NewRows(columns))

	videos, err = NewPostgresVideoRepository(mock).ListByOwner(context.Background(), "carol")
	require.NoError(t, err)
	assert.NotNil(t, videos)
	assert.Empty(t, videos)
}

func TestPostgresVideoRepository_WatchEntries(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, viewer_id, video_id, watched_at FROM watch_history").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "viewer_id", "video_id", "watched_at"}).
			AddRow("02", "alice", "v2", at.Add(time.Minute)).
			AddRow("01", "alice", "v1", at))

	entries, err := NewPostgresVideoRepository(mock).WatchEntries(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "v2", entries[0].VideoID)
}
