package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Now()
	rl := newRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request over the limit should be rejected")
	}

	// A different client has its own window.
	if !rl.allow("5.6.7.8") {
		t.Error("separate client should not share the limit")
	}

	// Sliding window: once the early requests age out, capacity returns.
	now = now.Add(61 * time.Second)
	if !rl.allow("1.2.3.4") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/frames", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("1.2.3.4:1111"); rec.Code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", rec.Code)
	}
	if rec := do("1.2.3.4:2222"); rec.Code != http.StatusOK {
		t.Errorf("second request status = %d, want 200", rec.Code)
	}

	rec := do("1.2.3.4:3333")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}

	// Port changes must not reset the limit, but a different IP does.
	if rec := do("9.9.9.9:1111"); rec.Code != http.StatusOK {
		t.Errorf("different IP status = %d, want 200", rec.Code)
	}
}
