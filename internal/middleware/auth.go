package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/splitbook/splitbook/internal/auth"
	"github.com/splitbook/splitbook/internal/ledger"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// actorKey is the context key for the authenticated actor.
const actorKey contextKey = "actor"

// ActorFrom extracts the authenticated actor from the context.
// The zero Actor (empty ID) means the request is unauthenticated.
func ActorFrom(ctx context.Context) ledger.Actor {
	actor, _ := ctx.Value(actorKey).(ledger.Actor)
	return actor
}

// WithActor returns a copy of ctx carrying the actor. Exported for tests and
// internal callers that bypass HTTP.
func WithActor(ctx context.Context, actor ledger.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// RequireAuth validates the bearer token and threads the acting user through
// the request context as an explicit ledger.Actor. Requests without a valid
// token get a 401.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, auth.ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			actor := ledger.Actor{
				ID:          claims.UserID,
				Email:       claims.Email,
				DisplayName: claims.DisplayName,
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
