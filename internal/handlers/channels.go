package handlers

import (
	"net/http"
	"time"

	"github.com/vidhub/backend/internal/logging"
)

// ChannelHandler serves the aggregate channel and viewer views.
type ChannelHandler struct {
	Views    ViewBuilder
	WatchLog ViewRecorder
}

type watchEntryResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	WatchedAt time.Time `json:"watchedAt"`
}

func (h ChannelHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.Views != nil {
		return true
	}
	ctx := r.Context()
	logging.FromContext(ctx).Error("channel handler missing view builder")
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "views unavailable"})
	return false
}

// Profile implements GET /api/v1/channels/{channelId}. Anonymous viewers are allowed.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	profile, err := h.Views.ChannelProfile(ctx, r.PathValue("channelId"), logging.PrincipalFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profile)
}

// Stats implements GET /api/v1/channels/{channelId}/stats.
func (h ChannelHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	stats, err := h.Views.ChannelStats(ctx, r.PathValue("channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, stats)
}

// Videos implements GET /api/v1/channels/{channelId}/videos. The channel's
// owner also sees unpublished uploads.
func (h ChannelHandler) Videos(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	videos, err := h.Views.ChannelVideos(ctx, r.PathValue("channelId"), logging.PrincipalFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": nonNil(videos)})
}

// Subscribers implements GET /api/v1/channels/{channelId}/subscribers.
func (h ChannelHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	subscribers, err := h.Views.Subscribers(ctx, r.PathValue("channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"subscribers": nonNil(subscribers)})
}

// Subscriptions implements GET /api/v1/me/subscriptions.
func (h ChannelHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	channels, err := h.Views.Subscriptions(ctx, logging.PrincipalFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"channels": nonNil(channels)})
}

// History implements GET /api/v1/me/history.
func (h ChannelHandler) History(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	history, err := h.Views.WatchHistory(ctx, logging.PrincipalFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"history": nonNil(history)})
}

// LikedVideos implements GET /api/v1/me/liked-videos.
func (h ChannelHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	videos, err := h.Views.LikedVideos(ctx, logging.PrincipalFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": nonNil(videos)})
}

// RecordView implements POST /api/v1/videos/{videoId}/views.
func (h ChannelHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.WatchLog == nil {
		logging.FromContext(ctx).Error("channel handler missing watch log")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "watch log unavailable"})
		return
	}

	entry, err := h.WatchLog.RecordView(ctx, logging.PrincipalFromContext(ctx), r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, watchEntryResponse{ID: entry.ID, VideoID: entry.VideoID, WatchedAt: entry.WatchedAt})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
