package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 2, nil)
	handler := limiter.Middleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := request("10.0.0.1"); got != http.StatusOK {
		t.Fatalf("first request = %d", got)
	}
	if got := request("10.0.0.1"); got != http.StatusOK {
		t.Fatalf("burst request = %d", got)
	}
	if got := request("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Fatalf("exhausted client = %d, want 429", got)
	}
	// A different client has its own bucket.
	if got := request("10.0.0.2"); got != http.StatusOK {
		t.Fatalf("fresh client = %d", got)
	}
}

func TestRateLimiterPrunesIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, 1, nil)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	if !limiter.allow("10.0.0.1") {
		t.Fatalf("first request should pass")
	}
	current = current.Add(visitorTTL + time.Minute)
	limiter.allow("10.0.0.2")
	limiter.mu.Lock()
	_, stale := limiter.visitors["10.0.0.1"]
	limiter.mu.Unlock()
	if stale {
		t.Fatalf("idle visitor should have been pruned")
	}
}
