package shared

import (
	"net/http"
	"strconv"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
)

// Identity headers stamped by the edge proxy. The service trusts them as
// given; authentication happens upstream.
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

// ActorMiddleware extracts the acting user from request headers into context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{Role: r.Header.Get(ActorRoleHeader)}
		if idStr := r.Header.Get(ActorIDHeader); idStr != "" {
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				actor.ID = id
			}
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireWriter gates write endpoints on a known, non-viewer actor.
func RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor.ID == 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
			return
		}
		if !actor.CanWrite() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "actor role cannot write")
			return
		}
		next.ServeHTTP(w, r)
	})
}
