package middleware

import (
	"context"
	"net/http"
	apperrors "spotbook/pkg/errors"
	apphttp "spotbook/pkg/http"
	"spotbook/pkg/logger"
	"spotbook/pkg/sanitizer"
)

// HeaderUserID carries the authenticated user id, set by the gateway in front
// of this service.
const HeaderUserID = "X-User-ID"

const MsgAuthenticationRequired = "Authentication required"

type userIDKey struct{}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequireUser rejects requests without a user id with 401.
func RequireUser(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sanitizer.NormalizeID(r.Header.Get(HeaderUserID))
			if userID == "" {
				log.Ctx(r.Context()).Warn("Request without user id", "path", r.URL.Path)
				_ = apphttp.WriteError(w, apperrors.Unauthorized(MsgAuthenticationRequired))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
