package handlers

import (
	"context"

	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
)

// SessionManager handles credentials and the token lifecycle.
type SessionManager interface {
	Register(ctx context.Context, reg auth.Registration) (models.User, error)
	Login(ctx context.Context, identifier, secret string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, principalID string) error
	ChangePassword(ctx context.Context, principalID, oldSecret, newSecret string) error
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// RelationToggler flips or sets relationship edges.
type RelationToggler interface {
	Toggle(ctx context.Context, actorID, targetID string, kind models.EdgeKind) (relations.Outcome, error)
	Set(ctx context.Context, actorID, targetID string, kind models.EdgeKind, on bool) (relations.Outcome, error)
}

// ViewBuilder assembles the read-only aggregate views.
type ViewBuilder interface {
	ChannelProfile(ctx context.Context, channelID, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, viewerID string) ([]models.WatchedVideo, error)
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	ChannelVideos(ctx context.Context, channelID, viewerID string) ([]models.VideoSummary, error)
	LikedVideos(ctx context.Context, viewerID string) ([]models.VideoSummary, error)
	Subscribers(ctx context.Context, channelID string) ([]models.ChannelSummary, error)
	Subscriptions(ctx context.Context, viewerID string) ([]models.ChannelSummary, error)
}

// ViewRecorder appends to a viewer's watch log.
type ViewRecorder interface {
	RecordView(ctx context.Context, viewerID, videoID string) (models.WatchEntry, error)
}
