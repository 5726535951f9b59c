//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
	"github.com/vidhub/backend/migrations"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Username = "alice2"
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict, "duplicate email")

	byEmail, err := repo.FindByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	byName, err := repo.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.ID, byName.ID)

	updatedAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "rotated-hash", updatedAt))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated-hash", found.Password)
	assert.WithinDuration(t, updatedAt, found.UpdatedAt, time.Millisecond)

	_, err = repo.FindByIdentifier(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUserRepository_EmailMatchWinsOverUsername(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, repo, "alice")

	now := time.Now().UTC()
	shadow := models.User{
		ID:        uuid.NewString(),
		Username:  alice.Email,
		Email:     "mallory@example.com",
		FullName:  "Mallory",
		Avatar:    "avatars/mallory.png",
		Password:  "password-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, shadow))

	found, err := repo.FindByIdentifier(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
}

func TestPostgresSessionStore_RotateIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	user := createTestUser(t, NewPostgresUserRepository(testPool), "bob")
	store := NewPostgresSessionStore(testPool)
	expires := time.Now().Add(time.Hour).UTC()

	require.NoError(t, store.Put(ctx, auth.Session{PrincipalID: user.ID, RefreshTokenHash: "h0", ExpiresAt: expires}))
	require.NoError(t, store.Put(ctx, auth.Session{PrincipalID: user.ID, RefreshTokenHash: "h1", ExpiresAt: expires}))

	const racers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rotated  int
		replayed int
	)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		next := auth.Session{PrincipalID: user.ID, RefreshTokenHash: fmt.Sprintf("h2-%d", i), ExpiresAt: expires}
		go func() {
			defer wg.Done()
			err := store.Rotate(ctx, user.ID, "h1", next)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				rotated++
			case errors.Is(err, auth.ErrTokenReplayed):
				replayed++
			default:
				t.Errorf("unexpected rotate error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rotated)
	assert.Equal(t, racers-1, replayed)

	session, err := store.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.RefreshTokenHash, "h2-"), session.RefreshTokenHash)

	assert.ErrorIs(t, store.Rotate(ctx, user.ID, "h0", session), auth.ErrTokenReplayed)

	require.NoError(t, store.Clear(ctx, user.ID))
	_, err = store.Get(ctx, user.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.ErrorIs(t, store.Rotate(ctx, user.ID, session.RefreshTokenHash, session), auth.ErrTokenReplayed)
}

func TestPostgresEdgeRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")

	repo := NewPostgresEdgeRepository(testPool)
	edge := models.Edge{ActorID: alice.ID, TargetID: bob.ID, Kind: models.EdgeSubscription}

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		inserted  int
		collision int
	)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			err := repo.Insert(ctx, edge)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, relations.ErrAlreadyExists):
				collision++
			default:
				t.Errorf("unexpected insert error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, racers-1, collision)

	count, err := repo.CountByTarget(ctx, bob.ID, models.EdgeSubscription)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Remove(ctx, edge))
	assert.ErrorIs(t, repo.Remove(ctx, edge), relations.ErrNotFound)
}

func TestPostgresVideoRepository_ViewsAndStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")

	videos := NewPostgresVideoRepository(testPool)
	older := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     bob.ID,
		Title:       "Hello",
		IsPublished: true,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	newer := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     bob.ID,
		Title:       "Again",
		IsPublished: true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, videos.Create(ctx, older))
	require.NoError(t, videos.Create(ctx, newer))

	_, err := testPool.Exec(ctx, `INSERT INTO tweets (id, owner_id, content) VALUES ($1, $2, $3)`, "tweet-1", bob.ID, "hi")
	require.NoError(t, err)

	edges := NewPostgresEdgeRepository(testPool)
	for _, edge := range []models.Edge{
		{ActorID: alice.ID, TargetID: older.ID, Kind: models.EdgeVideoLike},
		{ActorID: alice.ID, TargetID: "tweet-1", Kind: models.EdgeTweetLike},
	} {
		require.NoError(t, edges.Insert(ctx, edge))
	}

	for i := 0; i < 2; i++ {
		_, err := videos.RecordView(ctx, alice.ID, older.ID)
		require.NoError(t, err)
	}
	_, err = videos.RecordView(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := videos.WatchEntries(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	content, err := videos.ChannelContent(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChannelContent{TotalVideos: 2, TotalViews: 2, TotalVideoLikes: 1, TotalTweetLikes: 1}, content)

	found, err := videos.FindByIDs(ctx, []string{older.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[older.ID].Views)

	listed, err := videos.ListByOwner(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID)
	assert.Equal(t, older.ID, listed[1].ID)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := testPool.Exec(ctx, "TRUNCATE TABLE watch_history, edges, tweets, videos, sessions, users CASCADE")
	require.NoError(t, err)
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  strings.ToUpper(username[:1]) + username[1:],
		Avatar:    "avatars/" + username + ".png",
		Password:  "password-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}
