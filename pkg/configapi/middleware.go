package configapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/configresolver"
)

type contextKey string

const sessionContextKey contextKey = "configapi_session"

// sessionFromContext extracts the authenticated Session set by RequireAuth.
func sessionFromContext(ctx context.Context) *configresolver.Session {
	sess, _ := ctx.Value(sessionContextKey).(*configresolver.Session)
	return sess
}

// RequireAuth validates the Authorization: Bearer <token> header against
// the session manager and rejects revoked or invalid tokens with 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, prefix)

		sess, err := h.sessions.Verify(token)
		if err != nil {
			httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
