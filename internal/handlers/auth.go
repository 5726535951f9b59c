package handlers

import (
	"net/http"
	"time"

	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/models"
)

// AuthHandler exposes the account and session endpoints.
type AuthHandler struct {
	Sessions SessionManager
}

type signUpRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

type authResponse struct {
	User   *userResponse        `json:"user,omitempty"`
	Tokens models.SessionTokens `json:"tokens"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
	}
}

func (h AuthHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.Sessions != nil {
		return true
	}
	ctx := r.Context()
	logging.FromContext(ctx).Error("auth handler missing session manager")
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication unavailable"})
	return false
}

// SignUp implements POST /api/v1/auth/signup. The new account is logged in immediately.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Sessions.Register(ctx, auth.Registration{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.Login(ctx, user.Email, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("account created", "user_id", user.ID)
	created := toUserResponse(user)
	respondJSON(ctx, w, http.StatusCreated, authResponse{User: &created, Tokens: tokens})
}

// Login implements POST /api/v1/auth/login. The identifier may be an email or a username.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	identifier := req.Identifier
	switch {
	case identifier != "":
	case req.Email != "":
		identifier = req.Email
	default:
		identifier = req.Username
	}

	tokens, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Refresh implements POST /api/v1/auth/refresh.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Logout implements POST /api/v1/auth/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	if err := h.Sessions.Logout(ctx, logging.PrincipalFromContext(ctx)); err != nil {
		respondError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword implements POST /api/v1/auth/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Sessions.ChangePassword(ctx, logging.PrincipalFromContext(ctx), req.OldPassword, req.NewPassword); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password changed"})
}

// Me implements GET /api/v1/auth/me.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, toUserResponse(user))
}
