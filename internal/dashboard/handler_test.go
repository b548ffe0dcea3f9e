package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/dashboard"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
	_ "github.com/meridian-hq/meridian-portal/testing"
)

type stubClient struct {
	healthErr error
	roles     []authz.Role
	rolesErr  error
}

func (s *stubClient) Health(ctx context.Context) error { return s.healthErr }

func (s *stubClient) ListRoles(ctx context.Context, token string) ([]authz.Role, error) {
	if s.rolesErr != nil {
		return nil, s.rolesErr
	}
	return s.roles, nil
}

func newRouter(t *testing.T, client dashboard.Client, user *authz.User) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sm := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	if user != nil {
		sess.SetAuth(user, "tok")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := dashboard.NewHandler(logger, client, templates, csrf, guard.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestDashboardRendersCards(t *testing.T) {
	user := &authz.User{
		ID: "u1", Name: "Ada", IsActive: true,
		Role: authz.ResolvedRole(authz.Role{ID: "r1", Name: "Support", Permissions: []string{"roles.read"}, IsActive: true}),
	}
	router := newRouter(t, &stubClient{}, user)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Welcome back, Ada!")
	assert.Contains(t, body, "Total Revenue")
	assert.Contains(t, body, "Support", "role card shows the resolved role name")
	assert.Contains(t, body, "Online")
}

func TestDashboardShowsBackendDown(t *testing.T) {
	user := &authz.User{ID: "u1", Name: "Ada", IsActive: true,
		Role: authz.ResolvedRole(authz.Role{ID: "r1", Name: "Support", IsActive: true})}
	router := newRouter(t, &stubClient{healthErr: errors.New("connection refused")}, user)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Unreachable")
}

func TestDashboardAdminSeesRoleCount(t *testing.T) {
	admin := &authz.User{ID: "u1", Name: "Ada", IsActive: true,
		Role: authz.ResolvedRole(authz.Role{ID: "r1", Name: "Admin", Permissions: []string{"system.admin"}, IsActive: true})}
	client := &stubClient{roles: []authz.Role{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}}
	router := newRouter(t, client, admin)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Defined Roles")
	assert.Contains(t, res.Body.String(), ">3<")
}

func TestDashboardUnresolvedRoleDegrades(t *testing.T) {
	user := &authz.User{ID: "u1", Name: "Ada", IsActive: true, Role: authz.UnresolvedRole("r9")}
	router := newRouter(t, &stubClient{}, user)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "N/A", "unresolved role renders the degraded state")
}

func TestDashboardRedirectsUnauthenticated(t *testing.T) {
	router := newRouter(t, &stubClient{}, nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, guard.DefaultRedirect, res.Header().Get("Location"))
}

func TestDashboardRedirectsInactive(t *testing.T) {
	inactive := &authz.User{ID: "u1", Name: "Ada", IsActive: false,
		Role: authz.ResolvedRole(authz.Role{ID: "r1", Name: "Admin", Permissions: []string{"system.admin"}})}
	router := newRouter(t, &stubClient{}, inactive)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, guard.UnauthorizedPath, res.Header().Get("Location"))
}
