package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := ulid.ParseStrict(seen); err != nil {
		t.Errorf("generated request id %q is not a ULID: %v", seen, err)
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Error("response header should echo the request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "caller-123" {
		t.Errorf("caller supplied id should be kept, got %q", seen)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(mark("a"), mark("b"), mark("c"))(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Errorf("middleware ran in order %v", order)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unknown sort order")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/wines", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("unknown sort order")) {
		t.Error("panic value must not leak into the response")
	}
}

func TestCORS(t *testing.T) {
	h := CORS(config.SecurityConfig{AllowedOrigins: []string{"http://localhost:8084"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/wines", nil)
	req.Header.Set("Origin", "http://localhost:8084")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8084" {
		t.Error("allowed origin should be echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/wines", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin should not be allowed")
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 2})
	h := RateLimit(limiter, discardLogger())(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/wines", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %d", codes[2])
	}

	other := httptest.NewRequest(http.MethodGet, "/api/wines", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Error("limits should be per IP")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false, RateLimitRPS: 1, RateLimitBurst: 1})
	for i := 0; i < 10; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 10, RateLimitBurst: 10})
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	if limiter.size() != 2 {
		t.Fatalf("expected 2 visitors, got %d", limiter.size())
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.3")
	if limiter.size() != 1 {
		t.Errorf("idle visitors should be swept, %d remain", limiter.size())
	}
}

func TestTrustedProxy(t *testing.T) {
	h := TrustedProxy(config.SecurityConfig{TrustedProxies: []string{"127.0.0.1", "10.1.0.0/16"}})

	var forwarded string
	handler := h(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
	}))

	tests := []struct {
		remote string
		keep   bool
	}{
		{"127.0.0.1:1234", true},
		{"10.1.42.7:1234", true},
		{"192.168.1.1:1234", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if got := forwarded != ""; got != tt.keep {
			t.Errorf("%s: forwarded header kept = %v, want %v", tt.remote, got, tt.keep)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	if ip := getClientIP(req); ip != "192.0.2.1" {
		t.Errorf("getClientIP() = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := getClientIP(req); ip != "203.0.113.9" {
		t.Errorf("getClientIP() with XFF = %q", ip)
	}
}

func TestLoggerAndTracing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := Chain(RequestID(), Logger(logger), Tracing(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/ranking", nil))

	out := buf.String()
	for _, want := range []string{`"msg":"request completed"`, `"status":503`, `"msg":"span"`, `"status":"ERROR"`} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log output missing %s", want)
		}
	}
}
