package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-hq/meridian-portal/internal/auth"
	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/backend"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
	_ "github.com/meridian-hq/meridian-portal/testing"
)

type stubClient struct {
	result *backend.AuthResult
	err    error
	calls  int
}

func (s *stubClient) Login(ctx context.Context, creds backend.LoginCredentials) (*backend.AuthResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newAuthHandler(t *testing.T, client auth.Client) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, client, templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubClient{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func postLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, email, password string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()

	// Prime session and CSRF token via GET.
	getReq := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := sm.Load(context.Background(), getReq)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	getCtx := shared.ContextWithSession(getReq.Context(), sess)
	getRes := httptest.NewRecorder()
	handler.ShowLoginForTest(getRes, getReq.WithContext(getCtx))
	if err := sm.Commit(getCtx, getRes, getReq, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	postData := url.Values{}
	postData.Set("email", email)
	postData.Set("password", password)
	postData.Set("csrf_token", sess.Get(shared.CSRFSessionKey))

	postReq := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(postData.Encode()))
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})

	loaded, err := sm.Load(context.Background(), postReq)
	if err != nil {
		t.Fatalf("load session for post: %v", err)
	}
	postCtx := shared.ContextWithSession(postReq.Context(), loaded)
	postReq = postReq.WithContext(postCtx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, postReq)
	if err := sm.Commit(postCtx, res, postReq, loaded); err != nil {
		t.Fatalf("commit session post: %v", err)
	}
	return res, loaded
}

func TestLoginSuccessStoresWholeSnapshot(t *testing.T) {
	result := &backend.AuthResult{
		User: authz.User{
			ID:       "u1",
			Name:     "Ada",
			Email:    "ada@example.com",
			IsActive: true,
			Role:     authz.ResolvedRole(authz.Role{ID: "r1", Name: "Admin", Permissions: []string{"system.admin"}, IsActive: true}),
		},
		AccessToken: "tok-1",
	}
	handler, sm := newAuthHandler(t, &stubClient{result: result})

	res, sess := postLogin(t, handler, sm, "ada@example.com", "correctpass")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d: %s", res.Code, res.Body.String())
	}
	if !sess.IsAuthenticated() || sess.AccessToken() != "tok-1" {
		t.Fatalf("session not populated: auth=%v token=%q", sess.IsAuthenticated(), sess.AccessToken())
	}
	if sess.User().Name != "Ada" {
		t.Fatalf("user snapshot = %+v", sess.User())
	}
}

func TestLoginBackendRejection(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubClient{err: &backend.APIError{Status: http.StatusUnauthorized, Message: "Invalid email or password"}})

	res, sess := postLogin(t, handler, sm, "user@test.local", "wrongpass1")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid email or password") {
		t.Fatalf("expected backend message in response")
	}
	if sess.IsAuthenticated() {
		t.Fatalf("session authenticated after rejection")
	}
}

func TestLoginValidationBlocksRequest(t *testing.T) {
	client := &stubClient{err: &backend.APIError{Status: http.StatusInternalServerError}}
	handler, sm := newAuthHandler(t, client)

	// Too-short password never reaches the backend.
	res, _ := postLogin(t, handler, sm, "user@test.local", "short")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if client.calls != 0 {
		t.Fatalf("validation failure still hit the backend %d times", client.calls)
	}
}
