package shared

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func issueCookie(t *testing.T, sm *SessionManager, mutate func(*Session)) *http.Cookie {
	t.Helper()
	sess := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	mutate(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)

	cookie := issueCookie(t, sm, func(s *Session) {
		s.SetUser("42", "technician", "Dana")
		s.Set("theme", "dark")
		s.AddFlash(FlashMessage{Kind: "success", Message: "saved"})
	})
	require.Equal(t, "opsdesk_session", cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded := sm.Load(req)

	require.True(t, loaded.IsAuthenticated())
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "technician", loaded.Role())
	require.Equal(t, "Dana", loaded.Name())
	require.Equal(t, "dark", loaded.Get("theme"))
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "saved", flash.Message)
	require.Nil(t, loaded.PopFlash())
}

func TestSessionLoadMissingCookie(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	sess := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, sess.IsAuthenticated())
	require.Empty(t, sess.User())
	require.Empty(t, sess.Role())
}

func TestSessionTamperedCookieYieldsAnonymous(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	cookie := issueCookie(t, sm, func(s *Session) {
		s.SetUser("42", "administrator", "Root")
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	cookie.Value = base64.RawURLEncoding.EncodeToString(raw)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess := sm.Load(req)
	require.False(t, sess.IsAuthenticated())
	require.Empty(t, sess.Role())
}

func TestSessionWrongKeyYieldsAnonymous(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	cookie := issueCookie(t, sm, func(s *Session) {
		s.SetUser("42", "administrator", "Root")
	})

	other := NewSessionManager("opsdesk_session", "different-secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	require.False(t, other.Load(req).IsAuthenticated())
}

func TestSessionExpiredCookieYieldsAnonymous(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", -time.Minute, false)
	cookie := issueCookie(t, sm, func(s *Session) {
		s.SetUser("42", "manager", "Lee")
	})

	fresh := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	require.False(t, fresh.Load(req).IsAuthenticated())
}

func TestSessionCommitSkipsCleanSessions(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	sess := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(rec, sess))
	require.Empty(t, rec.Result().Cookies())
}

func TestSessionDestroyClearsCookie(t *testing.T) {
	sm := NewSessionManager("opsdesk_session", "test-secret", time.Hour, false)
	sess := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetUser("42", "employee", "Sam")
	sm.Destroy(sess)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
	require.False(t, sess.IsAuthenticated())
}
