package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kodar11/Blog/internal/auth"
	"github.com/Kodar11/Blog/internal/domain"
	"github.com/Kodar11/Blog/pkg/httputil"
	"github.com/Kodar11/Blog/pkg/middleware"
)

// ContentTypeJSON rejects write requests carrying a non-JSON body with 415.
// Bodiless POSTs such as logout pass through; a body of unknown length
// (chunked) is checked.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if hasBody(r) && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.Write(w, http.StatusUnsupportedMediaType, nil, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// Authenticator resolves an access token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// Guard is the request guard in front of every protected route. It reads the
// access token from the accessToken cookie or the bearer header, rejects the
// request with 401 when it does not resolve to a user, and otherwise attaches
// the identity and a user-scoped logger to the request context.
func Guard(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := middleware.TokenFromRequest(r, AccessTokenCookie)

			identity, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, logger)
				return
			}

			ctx := auth.NewContext(r.Context(), identity)
			ctx = middleware.WithUserID(ctx, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
