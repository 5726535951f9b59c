package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/vidhub/backend/internal/db"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
	"github.com/vidhub/backend/internal/views"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return handlePostgresError(err, "insert user")
	}
	return nil
}

// FindByIdentifier fetches a user by email address or username. An email match
// takes precedence over a username match.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE email = $1 OR username = $1
        ORDER BY (email = $1) DESC
        LIMIT 1
    `, identifier)
	return scanUser(row, "select user by identifier")
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id)
	return scanUser(row, "select user by id")
}

// FindProfiles returns the users that exist among ids, keyed by id.
func (r *PostgresUserRepository) FindProfiles(ctx context.Context, ids []string) (map[string]models.User, error) {
	profiles := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = ANY($1)
    `, ids)
	if err != nil {
		return nil, handlePostgresError(err, "query profiles")
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows, "scan profile")
		if err != nil {
			return nil, err
		}
		profiles[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(err, "iterate profiles")
	}
	return profiles, nil
}

// UpdatePassword replaces a user's password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, updatedAt)
	if err != nil {
		return handlePostgresError(err, "update password")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update password: %w", ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row, operation string) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, handlePostgresError(err, operation)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// PostgresEdgeRepository stores relationship edges keyed by (actor, target, kind).
type PostgresEdgeRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresEdgeRepository constructs an edge repository backed by PostgreSQL.
func NewPostgresEdgeRepository(pool db.Pool) *PostgresEdgeRepository {
	return &PostgresEdgeRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Exists reports whether the edge is present.
func (r *PostgresEdgeRepository) Exists(ctx context.Context, edge models.Edge) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM edges
            WHERE actor_id = $1 AND target_id = $2 AND kind = $3
        )
    `, edge.ActorID, edge.TargetID, string(edge.Kind)).Scan(&exists)
	if err != nil {
		return false, handlePostgresError(err, "check edge")
	}
	return exists, nil
}

// Insert adds the edge, failing with relations.ErrAlreadyExists when the primary key is taken.
func (r *PostgresEdgeRepository) Insert(ctx context.Context, edge models.Edge) error {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO edges (actor_id, target_id, kind, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (actor_id, target_id, kind) DO NOTHING
    `, edge.ActorID, edge.TargetID, string(edge.Kind), r.now())
	if err != nil {
		return handlePostgresError(err, "insert edge")
	}
	if tag.RowsAffected() == 0 {
		return relations.ErrAlreadyExists
	}
	return nil
}

// Remove deletes the edge, failing with relations.ErrNotFound when it is absent.
func (r *PostgresEdgeRepository) Remove(ctx context.Context, edge models.Edge) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM edges
        WHERE actor_id = $1 AND target_id = $2 AND kind = $3
    `, edge.ActorID, edge.TargetID, string(edge.Kind))
	if err != nil {
		return handlePostgresError(err, "delete edge")
	}
	if tag.RowsAffected() == 0 {
		return relations.ErrNotFound
	}
	return nil
}

// CountByTarget counts edges of kind pointing at targetID.
func (r *PostgresEdgeRepository) CountByTarget(ctx context.Context, targetID string, kind models.EdgeKind) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM edges WHERE target_id = $1 AND kind = $2`, targetID, kind)
}

// CountByActor counts edges of kind created by actorID.
func (r *PostgresEdgeRepository) CountByActor(ctx context.Context, actorID string, kind models.EdgeKind) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM edges WHERE actor_id = $1 AND kind = $2`, actorID, kind)
}

// ListTargets returns the targets of actorID's edges of kind, newest first.
func (r *PostgresEdgeRepository) ListTargets(ctx context.Context, actorID string, kind models.EdgeKind) ([]string, error) {
	return r.list(ctx, `
        SELECT target_id FROM edges
        WHERE actor_id = $1 AND kind = $2
        ORDER BY created_at DESC, target_id
    `, actorID, kind)
}

// ListActors returns the actors with an edge of kind to targetID, newest first.
func (r *PostgresEdgeRepository) ListActors(ctx context.Context, targetID string, kind models.EdgeKind) ([]string, error) {
	return r.list(ctx, `
        SELECT actor_id FROM edges
        WHERE target_id = $1 AND kind = $2
        ORDER BY created_at DESC, actor_id
    `, targetID, kind)
}

func (r *PostgresEdgeRepository) count(ctx context.Context, query, id string, kind models.EdgeKind) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, id, string(kind)).Scan(&n); err != nil {
		return 0, handlePostgresError(err, "count edges")
	}
	return n, nil
}

func (r *PostgresEdgeRepository) list(ctx context.Context, query, id string, kind models.EdgeKind) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, id, string(kind))
	if err != nil {
		return nil, handlePostgresError(err, "query edges")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, handlePostgresError(err, "scan edge")
		}
		ids = append(ids, other)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(err, "iterate edges")
	}
	return ids, nil
}

const videoColumns = `id, owner_id, title, description, thumbnail, video_file, duration, views, is_published, created_at`

// PostgresVideoRepository provides PostgreSQL-backed access to videos and the viewing log.
type PostgresVideoRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.Thumbnail, video.VideoFile, video.Duration, video.Views, video.IsPublished, video.CreatedAt)
	if err != nil {
		return handlePostgresError(err, "insert video")
	}
	return nil
}

// FindByIDs returns the videos that exist among ids, keyed by id.
func (r *PostgresVideoRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error) {
	found := make(map[string]models.Video, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE id = ANY($1)
    `, ids)
	if err != nil {
		return nil, handlePostgresError(err, "query videos")
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		found[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(err, "iterate videos")
	}
	return found, nil
}

// ListByOwner returns every video uploaded by ownerID, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1
        ORDER BY created_at DESC, id
    `, ownerID)
	if err != nil {
		return nil, handlePostgresError(err, "query channel videos")
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(err, "iterate channel videos")
	}
	return videos, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.Thumbnail, &v.VideoFile, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt); err != nil {
		return models.Video{}, handlePostgresError(err, "scan video")
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// ChannelContent totals a channel's videos, views and the likes its videos and tweets received.
func (r *PostgresVideoRepository) ChannelContent(ctx context.Context, channelID string) (models.ChannelContent, error) {
	var content models.ChannelContent
	err := r.pool.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
            (SELECT COALESCE(SUM(views), 0) FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM edges e JOIN videos v ON v.id = e.target_id
                WHERE e.kind = 'video_like' AND v.owner_id = $1),
            (SELECT COUNT(*) FROM edges e JOIN tweets t ON t.id = e.target_id
                WHERE e.kind = 'tweet_like' AND t.owner_id = $1)
    `, channelID).Scan(&content.TotalVideos, &content.TotalViews, &content.TotalVideoLikes, &content.TotalTweetLikes)
	if err != nil {
		return models.ChannelContent{}, handlePostgresError(err, "aggregate channel content")
	}
	return content, nil
}

// RecordView appends to the viewer's watch log and bumps the video's view count.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, viewerID, videoID string) (models.WatchEntry, error) {
	entry := models.WatchEntry{
		ID:        ulid.Make().String(),
		ViewerID:  viewerID,
		VideoID:   videoID,
		WatchedAt: r.now(),
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.WatchEntry{}, handlePostgresError(err, "begin record view")
	}
	abort := func(err error) (models.WatchEntry, error) {
		_ = tx.Rollback(ctx)
		return models.WatchEntry{}, err
	}

	tag, err := tx.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID)
	if err != nil {
		return abort(handlePostgresError(err, "increment views"))
	}
	if tag.RowsAffected() == 0 {
		return abort(fmt.Errorf("increment views: %w", ErrNotFound))
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO watch_history (id, viewer_id, video_id, watched_at)
        VALUES ($1, $2, $3, $4)
    `, entry.ID, entry.ViewerID, entry.VideoID, entry.WatchedAt); err != nil {
		return abort(handlePostgresError(err, "insert watch entry"))
	}

	if err := tx.Commit(ctx); err != nil {
		return abort(handlePostgresError(err, "commit record view"))
	}
	return entry, nil
}

// WatchEntries returns the viewer's raw viewing log, newest first.
func (r *PostgresVideoRepository) WatchEntries(ctx context.Context, viewerID string) ([]models.WatchEntry, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, viewer_id, video_id, watched_at
        FROM watch_history
        WHERE viewer_id = $1
        ORDER BY watched_at DESC, id DESC
    `, viewerID)
	if err != nil {
		return nil, handlePostgresError(err, "query watch history")
	}
	defer rows.Close()

	var entries []models.WatchEntry
	for rows.Next() {
		var e models.WatchEntry
		if err := rows.Scan(&e.ID, &e.ViewerID, &e.VideoID, &e.WatchedAt); err != nil {
			return nil, handlePostgresError(err, "scan watch entry")
		}
		e.WatchedAt = e.WatchedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError(err, "iterate watch history")
	}
	return entries, nil
}

var _ relations.Store = (*PostgresEdgeRepository)(nil)
var _ views.Directory = (*PostgresUserRepository)(nil)
var _ views.Catalog = (*PostgresVideoRepository)(nil)
var _ views.WatchLog = (*PostgresVideoRepository)(nil)
