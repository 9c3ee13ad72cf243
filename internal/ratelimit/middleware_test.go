package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_TooManyRequests(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Window: time.Minute, MaxRequests: 1})

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	})
	h := l.Middleware(nil, next)

	req1 := httptest.NewRequest(http.MethodPost, "/api/tickets", nil)
	req1.RemoteAddr = "198.51.100.5:1234"
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)

	if rec1.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d, want %d", rec1.Code, http.StatusNoContent)
	}
	if got := rec1.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want %q", got, "0")
	}
	if got := rec1.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("X-RateLimit-Limit = %q, want %q", got, "1")
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/tickets", nil)
	req2.RemoteAddr = "198.51.100.5:1234"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rec2.Code, http.StatusTooManyRequests)
	}
	if calls != 1 {
		t.Fatalf("next handler calls = %d, want 1", calls)
	}
	if got := rec2.Header().Get("Retry-After"); got == "" {
		t.Fatal("expected Retry-After header on rejection")
	}
}

func TestMiddleware_ExemptPatternBypassesLimiter(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Window: time.Minute, MaxRequests: 1})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := l.Middleware([]string{"10.0.*"}, next)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
		req.RemoteAddr = "10.0.4.2:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("exempt request %d status = %d, want %d", i+1, rec.Code, http.StatusNoContent)
		}
	}

	// Non-matching clients are still limited.
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != want {
			t.Fatalf("limited request %d status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestMiddleware_ForwardedClientsCountSeparately(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Window: time.Minute, MaxRequests: 1})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := l.Middleware(nil, next)

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
		req.Header.Set("X-Forwarded-For", ip)
		req.RemoteAddr = "127.0.0.1:80"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("request from %s status = %d, want %d", ip, rec.Code, http.StatusNoContent)
		}
	}
}
