package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krrishnaik/Markly/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── SecurityHeaders ──

func TestSecurityHeaders_NoStoreForAPI(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/v1/attendance/me", okHandler)
	r.GET("/health", okHandler)

	w := serve(r, httptest.NewRequest("GET", "/api/v1/attendance/me", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("/api 响应期望 no-store，实际 %q", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != apiCSP {
		t.Errorf("CSP 不正确: %q", got)
	}

	w = serve(r, httptest.NewRequest("GET", "/health", nil))
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Errorf("/health 不应设置 Cache-Control，实际 %q", got)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name   string
		in     string
		keepIn bool
	}{
		{"沿用上游 ID", "gw-7f3a.91_b", true},
		{"缺失时生成", "", false},
		{"含空格时重新生成", "a b", false},
		{"超长时重新生成", strings.Repeat("a", requestIDMaxLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/x", nil)
			if tt.in != "" {
				req.Header.Set(requestIDHeader, tt.in)
			}
			w := serve(r, req)
			got := w.Header().Get(requestIDHeader)
			if got == "" || got != w.Body.String() {
				t.Fatalf("响应头与上下文中的 ID 不一致: %q / %q", got, w.Body.String())
			}
			if (got == tt.in) != tt.keepIn {
				t.Errorf("输入 %q，实际 ID %q", tt.in, got)
			}
		})
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.PUT("/api/v1/attendance/:id/decision", okHandler)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", "/api/v1/attendance/r1/decision", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "PUT")
		return serve(r, req)
	}

	w := preflight("http://localhost:5173")
	if w.Code != http.StatusNoContent {
		t.Fatalf("允许的来源预检期望 204，实际 %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "If-Match") {
		t.Errorf("预检应允许 If-Match: %q", w.Header().Get("Access-Control-Allow-Headers"))
	}

	if w := preflight("http://evil.example"); w.Code != http.StatusForbidden {
		t.Errorf("未知来源预检期望 403，实际 %d", w.Code)
	}

	req := httptest.NewRequest("PUT", "/api/v1/attendance/r1/decision", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("实际请求期望 200，实际 %d", w.Code)
	}
	expose := w.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"ETag", "Content-Disposition"} {
		if !strings.Contains(expose, h) {
			t.Errorf("应暴露 %s，实际 %q", h, expose)
		}
	}
}

// ── BodyLimit ──

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/api/v1/lectures/import", okHandler)

	w := serve(r, httptest.NewRequest("POST", "/api/v1/lectures/import", strings.NewReader(strings.Repeat("x", 17))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("超限期望 413，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "10005") {
		t.Errorf("期望业务码 %d: %s", response.CodeBodyTooLarge, w.Body.String())
	}

	w = serve(r, httptest.NewRequest("POST", "/api/v1/lectures/import", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("未超限期望 200，实际 %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit_NoRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, "login", 1, time.Minute), okHandler)

	for i := 0; i < 3; i++ {
		if w := serve(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求期望 200，实际 %d", i+1, w.Code)
		}
	}
}

func TestRateLimitKey(t *testing.T) {
	var anon, authed string
	r := gin.New()
	r.GET("/anon", func(c *gin.Context) { anon = rateLimitKey(c, "login") })
	r.GET("/authed", func(c *gin.Context) {
		c.Set(ctxUserID, "u3")
		authed = rateLimitKey(c, "ics_import")
	})

	req := httptest.NewRequest("GET", "/anon", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	serve(r, req)
	serve(r, httptest.NewRequest("GET", "/authed", nil))

	if anon != "login:ip:10.0.0.1" {
		t.Errorf("匿名请求 key 不正确: %s", anon)
	}
	if authed != "ics_import:user:u3" {
		t.Errorf("已认证请求 key 不正确: %s", authed)
	}
}

// ── Logger ──

func TestLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/health", okHandler)
	r.GET("/api/v1/meetings/:id", func(c *gin.Context) {
		c.Set(ctxUserID, "u2")
		c.Set(ctxRole, "LEAD")
		c.Status(http.StatusNotFound)
	})

	serve(r, httptest.NewRequest("GET", "/health", nil))
	serve(r, httptest.NewRequest("GET", "/api/v1/meetings/m9", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条日志，实际 %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("/health 应记为 Debug，实际 %s", entries[0].Level)
	}

	e := entries[1]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("404 应记为 Warn，实际 %s", e.Level)
	}
	fields := e.ContextMap()
	if fields["route"] != "/api/v1/meetings/:id" || fields["path"] != "/api/v1/meetings/m9" {
		t.Errorf("route/path 字段不正确: %v", fields)
	}
	if fields["user_id"] != "u2" || fields["role"] != "LEAD" {
		t.Errorf("缺少用户字段: %v", fields)
	}
	if fields["request_id"] == "" {
		t.Error("缺少 request_id")
	}
}
