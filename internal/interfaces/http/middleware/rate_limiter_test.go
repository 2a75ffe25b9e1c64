package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/ratelimit"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 0, logger.New("error"))
	policy := ratelimit.Policy{Name: "api", Limit: 2, Window: time.Minute}

	handler := RateLimit(limiter, policy, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk-assessment", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := doRequest()
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "2" {
		t.Fatalf("X-RateLimit-Limit = %s, want 2", first.Header().Get("X-RateLimit-Limit"))
	}
	if first.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("X-RateLimit-Remaining = %s, want 1", first.Header().Get("X-RateLimit-Remaining"))
	}

	doRequest()
	third := doRequest()
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", third.Code)
	}
	if third.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("denied X-RateLimit-Remaining = %s, want 0", third.Header().Get("X-RateLimit-Remaining"))
	}
	if third.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing on 429")
	}
	if !strings.Contains(third.Body.String(), "rate limit exceeded") {
		t.Fatalf("429 body = %q, want rate limit error", third.Body.String())
	}
}

func TestRateLimit_SeparatesClients(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 0, logger.New("error"))
	policy := ratelimit.Policy{Name: "api", Limit: 1, Window: time.Minute}

	handler := RateLimit(limiter, policy, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk-assessment", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := doRequest("203.0.113.7"); got != http.StatusOK {
		t.Fatalf("first client status = %d, want 200", got)
	}
	if got := doRequest("203.0.113.7"); got != http.StatusTooManyRequests {
		t.Fatalf("first client second request = %d, want 429", got)
	}
	if got := doRequest("203.0.113.8"); got != http.StatusOK {
		t.Fatalf("second client status = %d, want 200", got)
	}
}
