package models

import "time"

// User represents a registered principal. Every user is also a channel.
type User struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Avatar     string
	CoverImage string
	Password   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EdgeKind names the relationship an edge records.
type EdgeKind string

const (
	EdgeVideoLike    EdgeKind = "video_like"
	EdgeCommentLike  EdgeKind = "comment_like"
	EdgeTweetLike    EdgeKind = "tweet_like"
	EdgeSubscription EdgeKind = "subscription"
)

// Valid reports whether k is one of the known edge kinds.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeVideoLike, EdgeCommentLike, EdgeTweetLike, EdgeSubscription:
		return true
	}
	return false
}

// Edge is a directed relationship between an actor and a target. Its presence is the relationship state.
type Edge struct {
	ActorID  string
	TargetID string
	Kind     EdgeKind
}

// Video stores the metadata of an uploaded video.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Thumbnail   string
	VideoFile   string
	Duration    float64
	Views       int64
	IsPublished bool
	CreatedAt   time.Time
}

// WatchEntry is one row of a viewer's viewing log.
type WatchEntry struct {
	ID        string
	ViewerID  string
	VideoID   string
	WatchedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// ChannelSummary is the minimal owner profile attached to other views.
type ChannelSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile is the public view of a channel as seen by a particular viewer.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"fullName"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
	SubscriberCount   int64  `json:"subscriberCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// VideoSummary is a video enriched with its owner's minimal profile.
type VideoSummary struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Thumbnail   string         `json:"thumbnail"`
	VideoFile   string         `json:"videoFile"`
	Duration    float64        `json:"duration"`
	Views       int64          `json:"views"`
	CreatedAt   time.Time      `json:"createdAt"`
	Owner       ChannelSummary `json:"owner"`
}

// WatchedVideo is one entry of a shaped watch history.
type WatchedVideo struct {
	Video     VideoSummary `json:"video"`
	WatchedAt time.Time    `json:"watchedAt"`
}

// ChannelContent holds the per-channel totals that come from the video and tweet tables.
type ChannelContent struct {
	TotalVideos     int64
	TotalViews      int64
	TotalVideoLikes int64
	TotalTweetLikes int64
}

// ChannelStats is the dashboard summary for a channel.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideoLikes  int64 `json:"totalVideoLikes"`
	TotalTweetLikes  int64 `json:"totalTweetLikes"`
}
