package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/guard"
	"github.com/nkiryanov/passgate/internal/handlers/render"
)

type decider interface {
	Decide(ctx context.Context, policy guard.Policy, token string) guard.Decision
}

// GuardMiddleware lets request through only if guard allows it
// Access token is taken from the cookie with given name
func GuardMiddleware(g decider, policy guard.Policy, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(cookieName); err == nil {
				token = cookie.Value
			}

			decision := g.Decide(r.Context(), policy, token)
			if !decision.Allowed {
				render.Error(w, r, apperrors.Unauthorized(decision.Message()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
