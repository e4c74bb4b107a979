package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const actorKey ctxKey = "folio/actor"

// Actor identifies the front-desk operator behind a request.
type Actor struct {
	ID   string
	Role string
}

// WithActor stores the operator on the provided context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom extracts the operator from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, false
	}
	return a, true
}

// ActorMiddleware copies the X-Actor-ID and X-Actor-Role headers set by the
// upstream gateway into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), Actor{ID: id, Role: role})))
	})
}
