package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Kodar11/Blog/pkg/logger"
)

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// TokenFromRequest looks for a token in the named cookie first and falls back
// to the bearer header. It returns "" when neither carries one.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return BearerToken(r)
}

// WithUserID records the authenticated user on the context and swaps the
// request-scoped logger for one carrying user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = logger.WithUserID(ctx, userID)
	return logger.NewContext(ctx, logger.FromContext(ctx).With("user_id", userID))
}

// UserIDFromContext returns the user ID set by WithUserID.
func UserIDFromContext(ctx context.Context) string {
	return logger.UserIDFromContext(ctx)
}
