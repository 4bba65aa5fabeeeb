package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-dashboard/internal/config"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
)

// keyChecker accepts only testKey.
func keyChecker(fb *fakeBackend) {
	fb.handle("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-API-Key") != testKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid API key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"total":0}`))
	})
}

func TestVerifyKey_ValidSetsCookie(t *testing.T) {
	fb := newFakeBackend(t)
	keyChecker(fb)
	s := newTestServer(t, fb)
	c := newClient(s, "")

	w := c.sendJSON(http.MethodPost, "/api/auth/verify", `{"apiKey":"`+testKey+`"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	require.Contains(t, c.cookies, middleware.TokenCookie)
	assert.Equal(t, testKey, c.cookies[middleware.TokenCookie].Value)

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.TokenCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, AuthCookieTTL, cookie.MaxAge)
	assert.False(t, cookie.Secure)

	calls := fb.callsTo(http.MethodGet, "/jobs")
	require.Len(t, calls, 1)
	assert.Equal(t, "1", calls[0].Query.Get("limit"))
}

func TestVerifyKey_Invalid(t *testing.T) {
	fb := newFakeBackend(t)
	keyChecker(fb)
	s := newTestServer(t, fb)
	c := newClient(s, "")

	w := c.sendJSON(http.MethodPost, "/api/auth/verify", `{"apiKey":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid API key", errorBody(t, w))
	assert.NotContains(t, c.cookies, middleware.TokenCookie)
}

func TestVerifyKey_Missing(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestServer(t, fb)
	c := newClient(s, "")

	for _, body := range []string{`{}`, `{"apiKey":""}`, `garbage`} {
		w := c.sendJSON(http.MethodPost, "/api/auth/verify", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "API key is required", errorBody(t, w))
	}
	assert.Empty(t, fb.callsTo(http.MethodGet, "/jobs"))
}

func TestVerifyKey_BackendDown(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestServer(t, fb)
	fb.Close()

	w := newClient(s, "").sendJSON(http.MethodPost, "/api/auth/verify", `{"apiKey":"k"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Authentication failed", errorBody(t, w))
}

func TestVerifyKey_Bypass(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestServer(t, fb, func(c *config.Config) { c.LocalDevBypass = true })
	c := newClient(s, "")

	w := c.sendJSON(http.MethodPost, "/api/auth/verify", `{}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"bypass":true}`, w.Body.String())
	assert.Equal(t, "local-dev", c.cookies[middleware.TokenCookie].Value)
	assert.Empty(t, fb.callsTo(http.MethodGet, "/jobs"))
}

func TestVerifyKey_BypassIgnoredInProduction(t *testing.T) {
	fb := newFakeBackend(t)
	keyChecker(fb)
	s := newTestServer(t, fb, func(c *config.Config) {
		c.LocalDevBypass = true
		c.Environment = config.EnvProduction
	})

	w := newClient(s, "").sendJSON(http.MethodPost, "/api/auth/verify", `{"apiKey":"`+testKey+`"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.TokenCookie {
			assert.True(t, ck.Secure)
		}
	}
}

func TestVerifySession(t *testing.T) {
	fb := newFakeBackend(t)
	keyChecker(fb)
	s := newTestServer(t, fb)

	w := newClient(s, testKey).get("/api/auth/verify")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = newClient(s, "revoked").get("/api/auth/verify")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"valid":false}`, w.Body.String())

	w = newClient(s, "").get("/api/auth/verify")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	c := newClient(s, testKey)

	w := c.sendJSON(http.MethodPost, "/api/auth/logout", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, c.cookies, middleware.TokenCookie)

	w = c.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", w.Header().Get("Location"))
}
