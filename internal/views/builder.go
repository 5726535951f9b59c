package views

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/media"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/retry"
)

// ErrChannelNotFound is returned when the requested channel does not exist.
var ErrChannelNotFound = apperrors.New(apperrors.CodeNotFound, "channel not found")

// EdgeReader exposes the relationship queries the views are derived from.
type EdgeReader interface {
	Exists(ctx context.Context, edge models.Edge) (bool, error)
	CountByTarget(ctx context.Context, targetID string, kind models.EdgeKind) (int64, error)
	CountByActor(ctx context.Context, actorID string, kind models.EdgeKind) (int64, error)
	ListTargets(ctx context.Context, actorID string, kind models.EdgeKind) ([]string, error)
	ListActors(ctx context.Context, targetID string, kind models.EdgeKind) ([]string, error)
}

// Directory looks up principals.
type Directory interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindProfiles returns the users that exist among ids, keyed by id.
	FindProfiles(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Catalog looks up videos and per-channel content totals.
type Catalog interface {
	// FindByIDs returns the videos that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
	// ListByOwner returns a channel's videos, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	ChannelContent(ctx context.Context, channelID string) (models.ChannelContent, error)
}

// WatchLog reads a viewer's viewing log.
type WatchLog interface {
	WatchEntries(ctx context.Context, viewerID string) ([]models.WatchEntry, error)
}

// Builder assembles read-only aggregate views. Views are computed on every
// call and references to records that no longer exist are left out.
type Builder struct {
	edges    EdgeReader
	users    Directory
	videos   Catalog
	watches  WatchLog
	resolver media.Resolver
	policy   retry.Policy
}

// Option customises a Builder.
type Option func(*Builder)

// WithResolver sets the resolver used for avatar, cover, thumbnail and video URLs.
func WithResolver(r media.Resolver) Option {
	return func(b *Builder) {
		if r != nil {
			b.resolver = r
		}
	}
}

// WithRetryPolicy overrides the retry policy applied to each read.
func WithRetryPolicy(p retry.Policy) Option {
	return func(b *Builder) {
		b.policy = p
	}
}

// NewBuilder constructs a Builder.
func NewBuilder(edges EdgeReader, users Directory, videos Catalog, watches WatchLog, opts ...Option) *Builder {
	if edges == nil || users == nil || videos == nil || watches == nil {
		panic("views: edge, user, video and watch sources must not be nil")
	}
	b := &Builder{
		edges:    edges,
		users:    users,
		videos:   videos,
		watches:  watches,
		resolver: media.Passthrough{},
		policy:   retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ChannelProfile describes channelID as seen by viewerID. An empty viewerID is
// an anonymous viewer, for whom IsSubscribed is always false.
func (b *Builder) ChannelProfile(ctx context.Context, channelID, viewerID string) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_profile")
	defer span.End()

	channel, err := b.channel(ctx, channelID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	var subscribers, subscribedTo int64
	var subscribed bool
	err = b.read(ctx, func(ctx context.Context) error {
		var err error
		if subscribers, err = b.edges.CountByTarget(ctx, channel.ID, models.EdgeSubscription); err != nil {
			return err
		}
		if subscribedTo, err = b.edges.CountByActor(ctx, channel.ID, models.EdgeSubscription); err != nil {
			return err
		}
		if viewerID == "" {
			subscribed = false
			return nil
		}
		subscribed, err = b.edges.Exists(ctx, models.Edge{ActorID: viewerID, TargetID: channel.ID, Kind: models.EdgeSubscription})
		return err
	})
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("count subscriptions: %w", err)
	}

	return models.ChannelProfile{
		ID:                channel.ID,
		Username:          channel.Username,
		FullName:          channel.FullName,
		Avatar:            b.resolve(ctx, channel.Avatar),
		CoverImage:        b.resolve(ctx, channel.CoverImage),
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
		IsSubscribed:      subscribed,
	}, nil
}

// WatchHistory returns the viewer's watched videos, one entry per video at its
// most recent watch, newest first.
func (b *Builder) WatchHistory(ctx context.Context, viewerID string) ([]models.WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "views.watch_history")
	defer span.End()

	if strings.TrimSpace(viewerID) == "" {
		return nil, apperrors.Validation("viewer id must be provided")
	}

	var entries []models.WatchEntry
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		entries, err = b.watches.WatchEntries(ctx, viewerID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("load watch log: %w", err)
	}

	latest := latestPerVideo(entries)
	ids := make([]string, 0, len(latest))
	for _, entry := range latest {
		ids = append(ids, entry.VideoID)
	}

	summaries, err := b.videoSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	history := make([]models.WatchedVideo, 0, len(latest))
	for _, entry := range latest {
		summary, ok := summaries[entry.VideoID]
		if !ok {
			continue
		}
		history = append(history, models.WatchedVideo{Video: summary, WatchedAt: entry.WatchedAt})
	}
	return history, nil
}

// ChannelStats summarises a channel's content and audience.
func (b *Builder) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_stats")
	defer span.End()

	channel, err := b.channel(ctx, channelID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	var content models.ChannelContent
	var subscribers int64
	err = b.read(ctx, func(ctx context.Context) error {
		var err error
		if content, err = b.videos.ChannelContent(ctx, channel.ID); err != nil {
			return err
		}
		subscribers, err = b.edges.CountByTarget(ctx, channel.ID, models.EdgeSubscription)
		return err
	})
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("load channel stats: %w", err)
	}

	return models.ChannelStats{
		TotalVideos:      content.TotalVideos,
		TotalViews:       content.TotalViews,
		TotalSubscribers: subscribers,
		TotalVideoLikes:  content.TotalVideoLikes,
		TotalTweetLikes:  content.TotalTweetLikes,
	}, nil
}

// ChannelVideos lists a channel's uploads, newest first. Unpublished videos
// are only listed when the viewer owns the channel.
func (b *Builder) ChannelVideos(ctx context.Context, channelID, viewerID string) ([]models.VideoSummary, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_videos")
	defer span.End()

	channel, err := b.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var videos []models.Video
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		videos, err = b.videos.ListByOwner(ctx, channel.ID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list channel videos: %w", err)
	}

	owner := b.summary(ctx, channel)
	out := make([]models.VideoSummary, 0, len(videos))
	for _, video := range videos {
		if !video.IsPublished && viewerID != channel.ID {
			continue
		}
		out = append(out, models.VideoSummary{
			ID:          video.ID,
			Title:       video.Title,
			Description: video.Description,
			Thumbnail:   b.resolve(ctx, video.Thumbnail),
			VideoFile:   b.resolve(ctx, video.VideoFile),
			Duration:    video.Duration,
			Views:       video.Views,
			CreatedAt:   video.CreatedAt,
			Owner:       owner,
		})
	}
	return out, nil
}

// LikedVideos returns the videos the viewer currently likes, most recently liked first.
func (b *Builder) LikedVideos(ctx context.Context, viewerID string) ([]models.VideoSummary, error) {
	ctx, span := logging.StartSpan(ctx, "views.liked_videos")
	defer span.End()

	if strings.TrimSpace(viewerID) == "" {
		return nil, apperrors.Validation("viewer id must be provided")
	}

	var ids []string
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		ids, err = b.edges.ListTargets(ctx, viewerID, models.EdgeVideoLike)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}

	summaries, err := b.videoSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	liked := make([]models.VideoSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := summaries[id]; ok {
			liked = append(liked, summary)
		}
	}
	return liked, nil
}

// Subscribers lists the channels subscribed to channelID.
func (b *Builder) Subscribers(ctx context.Context, channelID string) ([]models.ChannelSummary, error) {
	ctx, span := logging.StartSpan(ctx, "views.subscribers")
	defer span.End()

	channel, err := b.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		ids, err = b.edges.ListActors(ctx, channel.ID, models.EdgeSubscription)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return b.channelSummaries(ctx, ids)
}

// Subscriptions lists the channels viewerID is subscribed to.
func (b *Builder) Subscriptions(ctx context.Context, viewerID string) ([]models.ChannelSummary, error) {
	ctx, span := logging.StartSpan(ctx, "views.subscriptions")
	defer span.End()

	if strings.TrimSpace(viewerID) == "" {
		return nil, apperrors.Validation("viewer id must be provided")
	}

	var ids []string
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		ids, err = b.edges.ListTargets(ctx, viewerID, models.EdgeSubscription)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return b.channelSummaries(ctx, ids)
}

func (b *Builder) channel(ctx context.Context, channelID string) (models.User, error) {
	if strings.TrimSpace(channelID) == "" {
		return models.User{}, apperrors.Validation("channel id must be provided")
	}

	var channel models.User
	err := b.read(ctx, func(ctx context.Context) error {
		var err error
		channel, err = b.users.FindByID(ctx, channelID)
		return err
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return models.User{}, ErrChannelNotFound
		}
		return models.User{}, fmt.Errorf("load channel: %w", err)
	}
	return channel, nil
}

// videoSummaries joins videos with their owners. Videos whose record or owner
// is missing are absent from the result.
func (b *Builder) videoSummaries(ctx context.Context, ids []string) (map[string]models.VideoSummary, error) {
	if len(ids) == 0 {
		return map[string]models.VideoSummary{}, nil
	}

	var videos map[string]models.Video
	var owners map[string]models.User
	err := b.read(ctx, func(ctx context.Context) error {
		var err error
		if videos, err = b.videos.FindByIDs(ctx, ids); err != nil {
			return err
		}
		ownerIDs := make([]string, 0, len(videos))
		seen := make(map[string]struct{}, len(videos))
		for _, v := range videos {
			if _, ok := seen[v.OwnerID]; ok {
				continue
			}
			seen[v.OwnerID] = struct{}{}
			ownerIDs = append(ownerIDs, v.OwnerID)
		}
		owners, err = b.users.FindProfiles(ctx, ownerIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}

	logger := logging.FromContext(ctx)
	out := make(map[string]models.VideoSummary, len(videos))
	for _, id := range ids {
		video, ok := videos[id]
		if !ok {
			logger.Debug("skipping dangling video reference", "videoId", id)
			continue
		}
		owner, ok := owners[video.OwnerID]
		if !ok {
			logger.Debug("skipping video with missing owner", "videoId", id, "ownerId", video.OwnerID)
			continue
		}
		out[id] = models.VideoSummary{
			ID:          video.ID,
			Title:       video.Title,
			Description: video.Description,
			Thumbnail:   b.resolve(ctx, video.Thumbnail),
			VideoFile:   b.resolve(ctx, video.VideoFile),
			Duration:    video.Duration,
			Views:       video.Views,
			CreatedAt:   video.CreatedAt,
			Owner:       b.summary(ctx, owner),
		}
	}
	return out, nil
}

func (b *Builder) channelSummaries(ctx context.Context, ids []string) ([]models.ChannelSummary, error) {
	if len(ids) == 0 {
		return []models.ChannelSummary{}, nil
	}

	var users map[string]models.User
	if err := b.read(ctx, func(ctx context.Context) error {
		var err error
		users, err = b.users.FindProfiles(ctx, ids)
		return err
	}); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	out := make([]models.ChannelSummary, 0, len(ids))
	for _, id := range ids {
		if user, ok := users[id]; ok {
			out = append(out, b.summary(ctx, user))
		}
	}
	return out, nil
}

func (b *Builder) summary(ctx context.Context, user models.User) models.ChannelSummary {
	return models.ChannelSummary{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Avatar:   b.resolve(ctx, user.Avatar),
	}
}

func (b *Builder) read(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, b.policy, fn)
}

// resolve falls back to the stored reference when the resolver fails.
func (b *Builder) resolve(ctx context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	url, err := b.resolver.Resolve(ctx, ref)
	if err != nil {
		logging.FromContext(ctx).Warn("media resolution failed", "ref", ref, "error", err)
		return ref
	}
	return url
}

// latestPerVideo keeps the most recent entry for each video, newest first.
// Entries with equal timestamps are ordered by id, which is time-sortable.
func latestPerVideo(entries []models.WatchEntry) []models.WatchEntry {
	newest := make(map[string]models.WatchEntry, len(entries))
	for _, entry := range entries {
		current, ok := newest[entry.VideoID]
		if !ok || newer(entry, current) {
			newest[entry.VideoID] = entry
		}
	}

	out := make([]models.WatchEntry, 0, len(newest))
	for _, entry := range newest {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

func newer(a, b models.WatchEntry) bool {
	if !a.WatchedAt.Equal(b.WatchedAt) {
		return a.WatchedAt.After(b.WatchedAt)
	}
	return a.ID > b.ID
}
