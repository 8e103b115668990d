package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yourusername/taskdock/internal/audit"
	"github.com/yourusername/taskdock/internal/auth"
	"github.com/yourusername/taskdock/internal/config"
	"github.com/yourusername/taskdock/internal/middleware"
	"github.com/yourusername/taskdock/internal/tasks"
	"github.com/yourusername/taskdock/internal/users"
)

func newTestRouter(t *testing.T, staticDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		BcryptCost:   4,
		StoreDriver:  config.StoreDriverMemory,
		StoreTimeout: time.Second,
		StaticDir:    staticDir,
	}
	deps := &dependencies{
		users:       users.NewMemoryStore(),
		tasks:       tasks.NewMemoryStore(),
		denylist:    auth.NewMemoryDenylist(),
		audit:       audit.Nop{},
		rateLimiter: middleware.RateLimiter(rate.Inf, 1),
	}

	router := gin.New()
	if err := setupRoutes(router, cfg, deps); err != nil {
		t.Fatalf("setupRoutes returned error: %v", err)
	}
	return router
}

func request(t *testing.T, router *gin.Engine, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, "")

	rec := request(t, router, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestTaskFlow(t *testing.T) {
	router := newTestRouter(t, "")

	rec := request(t, router, http.MethodPost, "/api/auth/signup", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123456"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d", rec.Code)
	}

	rec = request(t, router, http.MethodPost, "/api/auth/signin", gin.H{"email": "a@x.com", "password": "pw123456"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d", rec.Code)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("session cookie missing")
	}

	if rec := request(t, router, http.MethodGet, "/api/tasks", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("tasks without session: status = %d", rec.Code)
	}

	rec = request(t, router, http.MethodPost, "/api/tasks", gin.H{"title": "Buy milk", "deadline": "2024-06-01", "priority": "high"}, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = request(t, router, http.MethodGet, "/api/tasks", nil, session)
	var listed struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(listed.Tasks) != 1 || listed.Tasks[0].Title != "Buy milk" {
		t.Fatalf("unexpected tasks: %s", rec.Body.String())
	}

	if rec := request(t, router, http.MethodPost, "/api/auth/signout", nil, session); rec.Code != http.StatusOK {
		t.Fatalf("signout status = %d", rec.Code)
	}
	if rec := request(t, router, http.MethodGet, "/api/tasks", nil, session); rec.Code != http.StatusUnauthorized {
		t.Fatalf("tasks after signout: status = %d", rec.Code)
	}
}

func TestPagesAreGated(t *testing.T) {
	router := newTestRouter(t, "")

	rec := request(t, router, http.MethodGet, "/dashboard", nil, nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/signin" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	rec = request(t, router, http.MethodGet, "/signin", nil, &http.Cookie{Name: auth.SessionCookieName, Value: "x"})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	rec = request(t, router, http.MethodGet, "/api/unknown", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown api path: status = %d", rec.Code)
	}
}

func TestStaticPages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("failed to write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "robots.txt"), []byte("User-agent: *"), 0o644); err != nil {
		t.Fatalf("failed to write robots: %v", err)
	}
	router := newTestRouter(t, dir)

	rec := request(t, router, http.MethodGet, "/signin", nil, nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("app")) {
		t.Fatalf("spa fallback failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = request(t, router, http.MethodGet, "/robots.txt", nil, &http.Cookie{Name: auth.SessionCookieName, Value: "x"})
	if rec.Code != http.StatusOK || rec.Body.String() != "User-agent: *" {
		t.Fatalf("static file not served: %d %s", rec.Code, rec.Body.String())
	}
}
