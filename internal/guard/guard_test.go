package guard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	_ "github.com/meridian-hq/meridian-portal/testing"
)

type stubUsers struct {
	user *authz.User
	err  error
}

func (s *stubUsers) CurrentUser(ctx context.Context, token string) (*authz.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func newSession(t *testing.T) (*shared.SessionManager, *shared.Session, *http.Request) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "portal_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	return sm, sess, req
}

func protectedView(rendered *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*rendered = true
		w.WriteHeader(http.StatusOK)
	})
}

func activeUser(perms ...string) *authz.User {
	return &authz.User{
		ID:       "u1",
		IsActive: true,
		Role:     authz.ResolvedRole(authz.Role{ID: "r1", Name: "Role", Permissions: perms, IsActive: true}),
	}
}

func TestProtectRedirectsUnauthenticated(t *testing.T) {
	_, _, req := newSession(t)
	m := guard.Middleware{Users: &stubUsers{}}

	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(res, req)

	if rendered {
		t.Fatalf("protected view rendered for unauthenticated user")
	}
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != guard.DefaultRedirect {
		t.Fatalf("expected redirect to %s, got %d -> %q", guard.DefaultRedirect, res.Code, res.Header().Get("Location"))
	}
}

func TestProtectRedirectsInactiveToUnauthorized(t *testing.T) {
	_, sess, req := newSession(t)
	user := activeUser("system.admin")
	user.IsActive = false
	sess.SetAuth(user, "tok")

	m := guard.Middleware{Users: &stubUsers{}}
	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(res, req)

	if rendered {
		t.Fatalf("protected view rendered for inactive user")
	}
	if res.Header().Get("Location") != guard.UnauthorizedPath {
		t.Fatalf("expected redirect to %s, got %q", guard.UnauthorizedPath, res.Header().Get("Location"))
	}
}

func TestProtectRendersWithoutPortalRequirement(t *testing.T) {
	_, sess, req := newSession(t)
	user := activeUser() // no permissions at all
	user.IsActive = false
	sess.SetAuth(user, "tok")

	m := guard.Middleware{Users: &stubUsers{}}
	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{})(protectedView(&rendered)).ServeHTTP(res, req)

	if !rendered {
		t.Fatalf("view should render when portal access is not required")
	}
}

func TestProtectRendersActiveUser(t *testing.T) {
	_, sess, req := newSession(t)
	sess.SetAuth(activeUser(), "tok")

	m := guard.Middleware{Users: &stubUsers{}}
	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(res, req)

	if !rendered {
		t.Fatalf("active user should reach the view regardless of permissions")
	}
}

func TestProtectRestoresFromToken(t *testing.T) {
	_, sess, req := newSession(t)
	// Token persisted, user snapshot missing: the restore path.
	sessSetToken(sess, "tok-77")

	m := guard.Middleware{Users: &stubUsers{user: activeUser("roles.read")}}
	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(res, req)

	if !rendered {
		t.Fatalf("restorable session should render the view, got %d", res.Code)
	}
	if sess.User() == nil {
		t.Fatalf("restore did not replace the user snapshot")
	}
}

func TestProtectRestoreFailureDegradesToLoggedOut(t *testing.T) {
	_, sess, req := newSession(t)
	sessSetToken(sess, "tok-expired")

	m := guard.Middleware{Users: &stubUsers{err: errors.New("401")}}
	rendered := false
	res := httptest.NewRecorder()
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(res, req)

	if rendered {
		t.Fatalf("view rendered after failed restore")
	}
	if res.Header().Get("Location") != guard.DefaultRedirect {
		t.Fatalf("failed restore should redirect to login, got %q", res.Header().Get("Location"))
	}
	if sess.AccessToken() != "" {
		t.Fatalf("stale token kept after failed restore")
	}
}

func TestRequireAny(t *testing.T) {
	_, sess, req := newSession(t)
	sess.SetAuth(activeUser("roles.read"), "tok")
	m := guard.Middleware{}

	rendered := false
	res := httptest.NewRecorder()
	m.RequireAny("roles.delete", "roles.read")(protectedView(&rendered)).ServeHTTP(res, req)
	if !rendered {
		t.Fatalf("any: expected view to render")
	}

	rendered = false
	res = httptest.NewRecorder()
	m.RequireAny("roles.delete")(protectedView(&rendered)).ServeHTTP(res, req)
	if rendered {
		t.Fatalf("any: expected denial")
	}
	if res.Header().Get("Location") != guard.UnauthorizedPath {
		t.Fatalf("denied request should land on %s", guard.UnauthorizedPath)
	}
}

func TestRequireAll(t *testing.T) {
	_, sess, req := newSession(t)
	sess.SetAuth(activeUser("roles.read", "roles.update"), "tok")
	m := guard.Middleware{}

	rendered := false
	m.RequireAll("roles.read", "roles.update")(protectedView(&rendered)).ServeHTTP(httptest.NewRecorder(), req)
	if !rendered {
		t.Fatalf("all: expected view to render")
	}

	rendered = false
	m.RequireAll("roles.read", "roles.delete")(protectedView(&rendered)).ServeHTTP(httptest.NewRecorder(), req)
	if rendered {
		t.Fatalf("all: expected denial")
	}
}

func TestRequireSystemAdmin(t *testing.T) {
	_, sess, req := newSession(t)
	sess.SetAuth(activeUser("roles.manage"), "tok")
	m := guard.Middleware{}

	rendered := false
	res := httptest.NewRecorder()
	m.RequireSystemAdmin()(protectedView(&rendered)).ServeHTTP(res, req)
	if rendered {
		t.Fatalf("non-admin reached admin view")
	}

	sess.SetAuth(activeUser("system.admin"), "tok")
	rendered = false
	m.RequireSystemAdmin()(protectedView(&rendered)).ServeHTTP(httptest.NewRecorder(), req)
	if !rendered {
		t.Fatalf("system admin denied")
	}
}

// sessSetToken leaves a token in the session without a user snapshot,
// mimicking a persisted session before restore.
func sessSetToken(sess *shared.Session, token string) {
	sess.SetAuth(nil, token)
}

type refreshingUsers struct {
	stubUsers
	fresh      string
	refreshErr error
}

func (s *refreshingUsers) RefreshToken(ctx context.Context, token string) (string, error) {
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	return s.fresh, nil
}

func TestProtectRotatesTokenOnRestore(t *testing.T) {
	_, sess, req := newSession(t)
	sessSetToken(sess, "tok-old")

	src := &refreshingUsers{stubUsers: stubUsers{user: activeUser("roles.read")}, fresh: "tok-next"}
	m := guard.Middleware{Users: src}
	rendered := false
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(httptest.NewRecorder(), req)

	if !rendered {
		t.Fatalf("restorable session should render the view")
	}
	if got := sess.AccessToken(); got != "tok-next" {
		t.Fatalf("token not rotated on restore, got %q", got)
	}
}

func TestProtectKeepsTokenWhenRefreshFails(t *testing.T) {
	_, sess, req := newSession(t)
	sessSetToken(sess, "tok-old")

	src := &refreshingUsers{stubUsers: stubUsers{user: activeUser("roles.read")}, refreshErr: errors.New("refresh unavailable")}
	m := guard.Middleware{Users: src}
	rendered := false
	m.Protect(guard.Options{RequirePortalAccess: true})(protectedView(&rendered)).ServeHTTP(httptest.NewRecorder(), req)

	if !rendered {
		t.Fatalf("refresh failure must not block the view")
	}
	if got := sess.AccessToken(); got != "tok-old" {
		t.Fatalf("failed refresh should keep the current token, got %q", got)
	}
}
