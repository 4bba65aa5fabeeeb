package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-dashboard/internal/config"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
)

const (
	testKey   = "test-api-key"
	testJobID = "3f2b6c1e-8a4d-4e5f-9b7a-1c2d3e4f5a6b"
)

// backendCall is one request seen by the fake backend.
type backendCall struct {
	Method string
	Path   string
	Query  url.Values
	Key    string
	Body   string
}

// fakeBackend is the job tracker API the dashboard talks to.
type fakeBackend struct {
	*httptest.Server
	mu    sync.Mutex
	mux   *http.ServeMux
	calls []backendCall
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{mux: http.NewServeMux()}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, backendCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Key:    r.Header.Get("X-API-Key"),
			Body:   string(body),
		})
		f.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// handle registers a route under the backend's /api/v1 prefix.
func (f *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		path, method = method, ""
	}
	if method != "" {
		method += " "
	}
	f.mux.HandleFunc(method+"/api/v1"+path, h)
}

// reply registers a route answering status with body.
func (f *fakeBackend) reply(pattern string, status int, body string) {
	f.handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeBackend) callsTo(method, path string) []backendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []backendCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == "/api/v1"+path {
			out = append(out, c)
		}
	}
	return out
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Port:           3000,
		BackendURL:     backendURL,
		Environment:    config.EnvDevelopment,
		BackendTimeout: 2 * time.Second,
		SessionSecret:  "test-session-secret",
		PageSize:       20,
		PagerCacheSize: 16,
	}
}

func newTestServer(t *testing.T, fb *fakeBackend, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := testConfig(fb.URL)
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

// client replays cookies between requests like a browser would.
type client struct {
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(s *Server, key string) *client {
	c := &client{h: s.Handler(), cookies: map[string]*http.Cookie{}}
	if key != "" {
		c.cookies[middleware.TokenCookie] = &http.Cookie{Name: middleware.TokenCookie, Value: key}
	}
	return c
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return w
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) sendJSON(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	msg, _ := resp["error"].(string)
	return msg
}

func jobJSON(id, title string) string {
	return fmt.Sprintf(`{"id":%q,"title":%q,"company":"Acme","status":"saved","priority":70,"notes":[],"created_at":"2026-01-02T00:00:00Z","updated_at":"2026-01-03T00:00:00Z"}`, id, title)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	w := newClient(s, "").get("/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	c := newClient(s, "")

	w := c.get("/health")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = c.do(req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestStaticAssetsArePublic(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	w := newClient(s, "").get("/static/app.css")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
}

func TestRootRedirectsToDashboard(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t))
	w := newClient(s, testKey).get("/")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestRateLimit_Returns429(t *testing.T) {
	fb := newFakeBackend(t)
	fb.reply("GET /jobs", http.StatusOK, `{"items":[],"total":0}`)
	s := newTestServer(t, fb, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute}
	})
	c := newClient(s, testKey)

	for i := 0; i < 2; i++ {
		w := c.get("/api/jobs")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := c.get("/api/jobs")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", errorBody(t, w))
	assert.Len(t, fb.callsTo(http.MethodGet, "/jobs"), 2)
}

func TestRateLimit_HealthUnlimited(t *testing.T) {
	s := newTestServer(t, newFakeBackend(t), func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute}
	})
	c := newClient(s, "")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, c.get("/health").Code)
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/dashboard/jobs/1", "/dashboard/jobs/1"},
		{"/dashboard?x=1", "/dashboard?x=1"},
		{"", "/dashboard"},
		{"https://evil.example", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeRedirect(tt.in), tt.in)
	}
}
