// Package guard gates page rendering on session and permission state. Every
// request re-evaluates the guard against the current session, so a
// mid-session logout or permission downgrade collapses a protected view on
// the next request.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/shared"
)

const (
	// DefaultRedirect is where unauthenticated visitors are sent.
	DefaultRedirect = "/login"
	// UnauthorizedPath is the fixed destination for denied accounts.
	UnauthorizedPath = "/unauthorized"
)

// UserSource restores a user snapshot from an access token. Restoration
// failures are treated as logged out, never surfaced.
type UserSource interface {
	CurrentUser(ctx context.Context, token string) (*authz.User, error)
}

// TokenRefresher is implemented by user sources that can also mint a fresh
// token. When available, restore rotates the session token so a long-lived
// session record does not outlast its credential.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, token string) (string, error)
}

// Options configures a protected route.
type Options struct {
	RequirePortalAccess bool
	RedirectTo          string
}

// Middleware wires the route guard for HTTP handlers.
type Middleware struct {
	Users  UserSource
	Logger *slog.Logger
}

// Protect wraps a view so it only renders for an authenticated session,
// optionally requiring portal access. The three observable outcomes are:
// restore-in-flight (resolved synchronously before any decision), redirect,
// or the wrapped view with its request untouched.
func (m Middleware) Protect(opts Options) func(http.Handler) http.Handler {
	redirectTo := opts.RedirectTo
	if redirectTo == "" {
		redirectTo = DefaultRedirect
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			m.restore(r.Context(), sess)

			if !sess.IsAuthenticated() {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}
			if opts.RequirePortalAccess && !authz.HasPortalAccess(sess.User()) {
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny allows the request when at least one permission is granted.
// An empty requirement passes through unconditionally.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.requirePerms(perms, authz.HasAnyPermission)
}

// RequireAll allows the request only when every permission is granted.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.requirePerms(perms, authz.HasAllPermissions)
}

// RequireSystemAdmin restricts the request to holders of the system.admin
// sentinel.
func (m Middleware) RequireSystemAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := m.currentUser(r)
			if !authz.UserIsSystemAdmin(user) {
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) requirePerms(perms []string, check func(*authz.User, []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if !check(m.currentUser(r), perms) {
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUser(r *http.Request) *authz.User {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	m.restore(r.Context(), sess)
	return sess.User()
}

// restore rehydrates the user snapshot when the session carries a token but
// no user, the server-side analogue of the loading state. Failure clears
// the stale token and degrades to logged out.
func (m Middleware) restore(ctx context.Context, sess *shared.Session) {
	if sess.IsAuthenticated() || sess.AccessToken() == "" || m.Users == nil {
		return
	}
	user, err := m.Users.CurrentUser(ctx, sess.AccessToken())
	if err != nil {
		if m.Logger != nil {
			if errors.Is(err, shared.ErrNotAuthenticated) {
				m.Logger.Info("session token rejected", slog.Any("error", err))
			} else {
				m.Logger.Warn("session restore failed", slog.Any("error", err))
			}
		}
		sess.ClearAuth()
		return
	}
	sess.ReplaceUser(user)

	// Rotate the token too when the source supports it; failure keeps the
	// current one.
	if refresher, ok := m.Users.(TokenRefresher); ok {
		if fresh, err := refresher.RefreshToken(ctx, sess.AccessToken()); err == nil && fresh != "" {
			sess.SetAuth(user, fresh)
		}
	}
}
