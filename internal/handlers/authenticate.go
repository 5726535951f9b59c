package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/models"
)

type userCtxKey struct{}

func withUser(ctx context.Context, user models.User) context.Context {
	ctx = context.WithValue(ctx, userCtxKey{}, user)
	return logging.WithPrincipal(ctx, user.ID)
}

func userFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticator resolves bearer access tokens into principals.
type Authenticator struct {
	Sessions SessionManager
}

// Require rejects requests without a valid access token.
func (a Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := bearerToken(r)
		if token == "" {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		if a.Sessions == nil {
			logging.FromContext(ctx).Error("authenticator missing session manager")
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication unavailable"})
			return
		}

		user, err := a.Sessions.Authenticate(ctx, token)
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		next(w, r.WithContext(withUser(ctx, user)))
	}
}

// Optional attaches the principal when a valid token is presented and serves the
// request anonymously otherwise.
func (a Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := bearerToken(r)
		if token == "" || a.Sessions == nil {
			next(w, r)
			return
		}

		user, err := a.Sessions.Authenticate(ctx, token)
		if err != nil {
			logging.FromContext(ctx).Debug("ignoring invalid optional credentials", "error", err)
			next(w, r)
			return
		}

		next(w, r.WithContext(withUser(ctx, user)))
	}
}
