package handlers

import (
	"net/http"

	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/models"
	"github.com/vidhub/backend/internal/relations"
)

// likeKinds maps the path segment of the like endpoints to edge kinds.
var likeKinds = map[string]models.EdgeKind{
	"videos":   models.EdgeVideoLike,
	"comments": models.EdgeCommentLike,
	"tweets":   models.EdgeTweetLike,
}

// RelationHandler exposes subscribe and like toggles for the authenticated principal.
type RelationHandler struct {
	Relations RelationToggler
}

type toggleResponse struct {
	TargetID string          `json:"targetId"`
	Kind     models.EdgeKind `json:"kind"`
	Outcome  string          `json:"outcome"`
	Active   bool            `json:"active"`
}

// ToggleSubscription implements POST /api/v1/subscriptions/{channelId}/toggle.
func (h RelationHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, r.PathValue("channelId"), models.EdgeSubscription)
}

// Subscribe implements PUT /api/v1/subscriptions/{channelId}.
func (h RelationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, r.PathValue("channelId"), models.EdgeSubscription, true)
}

// Unsubscribe implements DELETE /api/v1/subscriptions/{channelId}.
func (h RelationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, r.PathValue("channelId"), models.EdgeSubscription, false)
}

// ToggleLike implements POST /api/v1/likes/{kind}/{targetId}/toggle.
func (h RelationHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.likeKind(w, r)
	if !ok {
		return
	}
	h.toggle(w, r, r.PathValue("targetId"), kind)
}

// Like implements PUT /api/v1/likes/{kind}/{targetId}.
func (h RelationHandler) Like(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.likeKind(w, r)
	if !ok {
		return
	}
	h.set(w, r, r.PathValue("targetId"), kind, true)
}

// Unlike implements DELETE /api/v1/likes/{kind}/{targetId}.
func (h RelationHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.likeKind(w, r)
	if !ok {
		return
	}
	h.set(w, r, r.PathValue("targetId"), kind, false)
}

func (h RelationHandler) likeKind(w http.ResponseWriter, r *http.Request) (models.EdgeKind, bool) {
	kind, ok := likeKinds[r.PathValue("kind")]
	if !ok {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "unknown like target"})
	}
	return kind, ok
}

func (h RelationHandler) toggle(w http.ResponseWriter, r *http.Request, targetID string, kind models.EdgeKind) {
	ctx := r.Context()
	if h.Relations == nil {
		logging.FromContext(ctx).Error("relation handler missing toggle engine")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "relations unavailable"})
		return
	}

	outcome, err := h.Relations.Toggle(ctx, logging.PrincipalFromContext(ctx), targetID, kind)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newToggleResponse(targetID, kind, outcome))
}

func (h RelationHandler) set(w http.ResponseWriter, r *http.Request, targetID string, kind models.EdgeKind, on bool) {
	ctx := r.Context()
	if h.Relations == nil {
		logging.FromContext(ctx).Error("relation handler missing toggle engine")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "relations unavailable"})
		return
	}

	outcome, err := h.Relations.Set(ctx, logging.PrincipalFromContext(ctx), targetID, kind, on)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newToggleResponse(targetID, kind, outcome))
}

func newToggleResponse(targetID string, kind models.EdgeKind, outcome relations.Outcome) toggleResponse {
	return toggleResponse{
		TargetID: targetID,
		Kind:     kind,
		Outcome:  string(outcome),
		Active:   outcome == relations.Created,
	}
}
