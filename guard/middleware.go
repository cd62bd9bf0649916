package guard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/goSession/session"
)

// SessionFunc resolves the session that owns an incoming request.
type SessionFunc func(*http.Request) session.Session

type sessionContextKey struct{}

// SessionFromContext returns the session stored by an allowing middleware.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(session.Session)
	return s, ok
}

func (a *Authorizer) middleware(load SessionFunc, decide func(*http.Request, session.Session) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s session.Session
			if load != nil {
				s = load(r)
			}

			d := decide(r, s)
			if !d.Allowed {
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth redirects requests without a user to the login page.
func (a *Authorizer) RequireAuth(load SessionFunc) func(http.Handler) http.Handler {
	return a.middleware(load, func(_ *http.Request, s session.Session) Decision {
		return a.RequireAuthenticated(s)
	})
}

// RequireRoles redirects requests whose role is not in allowed.
func (a *Authorizer) RequireRoles(load SessionFunc, allowed ...session.Role) func(http.Handler) http.Handler {
	return a.middleware(load, func(_ *http.Request, s session.Session) Decision {
		return a.Authorize(s, allowed...)
	})
}

// Middleware applies t to every request path.
func (a *Authorizer) Middleware(t *Table, load SessionFunc) func(http.Handler) http.Handler {
	return a.middleware(load, func(r *http.Request, s session.Session) Decision {
		return a.AuthorizePath(t, s, r.URL.Path)
	})
}

// Mount registers h on r at pattern behind a role check.
func (a *Authorizer) Mount(r chi.Router, pattern string, load SessionFunc, h http.Handler, allowed ...session.Role) {
	if len(allowed) == 0 {
		r.With(a.RequireAuth(load)).Handle(pattern, h)
		return
	}
	r.With(a.RequireRoles(load, allowed...)).Handle(pattern, h)
}
