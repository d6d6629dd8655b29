package middleware

import (
	"context"
	"net/http"

	"github.com/opsdeck/reviewflow/internal/domain/identity"
)

// Actor headers. Authentication happens upstream; by the time a request
// reaches this service the caller's identity and category are already
// resolved and arrive as plain headers. External client reviewers may carry
// only a name or email.
const (
	headerActorID       = "X-Actor-ID"
	headerActorName     = "X-Actor-Name"
	headerActorEmail    = "X-Actor-Email"
	headerActorCategory = "X-Actor-Category"
)

type actorCtxKey struct{}

// actorInfo bundles the resolved identity with its declared category.
type actorInfo struct {
	ref      identity.Ref
	category string
}

// Actor is middleware that extracts the acting identity from request
// headers and stores it in the context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := actorInfo{
			ref: identity.Ref{
				UserID: r.Header.Get(headerActorID),
				Name:   r.Header.Get(headerActorName),
				Email:  r.Header.Get(headerActorEmail),
			},
			category: r.Header.Get(headerActorCategory),
		}
		ctx := context.WithValue(r.Context(), actorCtxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the acting identity stored in ctx. The zero Ref
// is returned when no actor headers were present.
func ActorFromContext(ctx context.Context) identity.Ref {
	if info, ok := ctx.Value(actorCtxKey{}).(actorInfo); ok {
		return info.ref
	}
	return identity.Ref{}
}

// ActorCategoryFromContext returns the actor's declared category, or "".
func ActorCategoryFromContext(ctx context.Context) string {
	if info, ok := ctx.Value(actorCtxKey{}).(actorInfo); ok {
		return info.category
	}
	return ""
}
