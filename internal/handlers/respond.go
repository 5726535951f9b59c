package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/logging"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error's code to the HTTP status reported to clients.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeAuthenticationFailed,
		apperrors.CodeTokenReplayed,
		apperrors.CodeTokenExpired,
		apperrors.CodeTokenInvalidSignature,
		apperrors.CodeTokenWrongKind:
		return http.StatusUnauthorized
	case apperrors.CodeAuthorizationDenied:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := apperrors.CodeOf(err)
	logger := logging.FromContext(ctx)

	message := apperrors.MessageOf(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "error", err, "code", code)
		if status == http.StatusServiceUnavailable {
			message = "service temporarily unavailable"
		} else {
			message = "internal error"
		}
	default:
		logger.Warn("request rejected", "error", err, "code", code)
	}

	respondJSON(ctx, w, status, errorResponse{Error: message, Code: string(code)})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request completed with server error", "status", status)
		return
	}
	logger.Debug("response written", "status", status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body")
	}
	return nil
}
