package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/shared"
)

func testRouter(t *testing.T, sm *shared.SessionManager, handler http.HandlerFunc) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: sm,
		CSRFManager:    shared.NewCSRFManager("csrf-test-secret"),
	}) {
		r.Use(mw)
	}
	r.Get("/welcome", handler)
	r.Get("/tickets", handler)
	r.Get("/", handler)
	return r
}

func authenticatedCookie(t *testing.T, sm *shared.SessionManager) *http.Cookie {
	t.Helper()
	sess := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetUser("7", "technician", "Dana")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestAuthGateRedirectsAnonymousRequests(t *testing.T) {
	sm := shared.NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	router := testRouter(t, sm, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tickets?page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)
	require.Equal(t, "/tickets?page=2", location.Query().Get("return_to"))
}

func TestAuthGateAllowsPublicRoutes(t *testing.T) {
	sm := shared.NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	router := testRouter(t, sm, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/welcome", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGatePassesAuthenticatedRequests(t *testing.T) {
	sm := shared.NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	var seenRole string
	router := testRouter(t, sm, func(w http.ResponseWriter, r *http.Request) {
		seenRole = shared.SessionFromContext(r.Context()).Role()
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	req.AddCookie(authenticatedCookie(t, sm))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "technician", seenRole)
}

func TestSessionCommittedBeforeFirstWrite(t *testing.T) {
	sm := shared.NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	router := testRouter(t, sm, func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		sess.Set("theme", "dark")
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/welcome", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "opsdesk_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestIsPublicRoute(t *testing.T) {
	require.True(t, IsPublicRoute("/auth/login"))
	require.True(t, IsPublicRoute("/healthz"))
	require.True(t, IsPublicRoute("/static/css/app.css"))
	require.True(t, IsPublicRoute("/welcome"))
	require.False(t, IsPublicRoute("/tickets"))
	require.False(t, IsPublicRoute("/"))
}
