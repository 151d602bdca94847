package boundary

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type statusContextKey struct{}

// StatusFromContext returns the status the Gate routed the request with.
func StatusFromContext(ctx context.Context) (goSession.Status, bool) {
	status, ok := ctx.Value(statusContextKey{}).(goSession.Status)
	return status, ok
}

// Gate selects a handler tree by session status. A nil handler answers with the
// default response for that state: 503 while loading, 401 when unauthenticated, 404
// when no authenticated tree is configured.
type Gate struct {
	Loading         http.Handler
	Authenticated   http.Handler
	Unauthenticated http.Handler
}

// Handler reads src once per request and serves the matching tree. The status is
// available to handlers through StatusFromContext.
func (g Gate) Handler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		status := src.Status()
		r = r.WithContext(context.WithValue(r.Context(), statusContextKey{}, status))

		switch status {
		case goSession.StatusAuthenticated:
			serveOr(w, r, g.Authenticated, http.StatusNotFound)
		case goSession.StatusUnauthenticated:
			serveOr(w, r, g.Unauthenticated, http.StatusUnauthorized)
		default:
			w.Header().Set("Retry-After", "1")
			serveOr(w, r, g.Loading, http.StatusServiceUnavailable)
		}
	})
}

// Guard admits requests only while src is Authenticated. Unknown yields 503 so callers
// retry once bootstrap completes; Unauthenticated yields 401.
func Guard(src Source) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Gate{Authenticated: next}.Handler(src)
	}
}

func serveOr(w http.ResponseWriter, r *http.Request, h http.Handler, status int) {
	if h != nil {
		h.ServeHTTP(w, r)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
