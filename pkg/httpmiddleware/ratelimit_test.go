package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fixedLimiter(cfg RateLimitConfig, now *time.Time) http.Handler {
	rl := newRateLimiter(cfg)
	rl.now = func() time.Time { return *now }
	return rl.middleware(okHandler())
}

func hit(h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_OverLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	h := fixedLimiter(RateLimitConfig{Max: 2, Window: time.Minute}, &now)

	for i := range 2 {
		w := hit(h, "10.0.0.1:9999", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := hit(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "50", w.Header().Get("Retry-After"))

	var (
		code int
		msg  string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "message":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", msg)
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h := fixedLimiter(RateLimitConfig{Max: 4, Window: time.Minute}, &now)

	for range 4 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", nil).Code)

	// Halfway through the next window half of the previous count still applies.
	now = now.Add(90 * time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", nil).Code)

	// Two idle windows reset the client entirely.
	now = now.Add(3 * time.Minute)
	assert.Equal(t, "3", hit(h, "10.0.0.1:1", nil).Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RateLimitConfig
		first  func(h http.Handler) int
		second func(h http.Handler) int
		want   int
	}{
		{
			name:   "different ips",
			cfg:    RateLimitConfig{Max: 1, Window: time.Minute},
			first:  func(h http.Handler) int { return hit(h, "10.0.0.1:1234", nil).Code },
			second: func(h http.Handler) int { return hit(h, "10.0.0.2:1234", nil).Code },
			want:   http.StatusOK,
		},
		{
			name:   "same ip different port",
			cfg:    RateLimitConfig{Max: 1, Window: time.Minute},
			first:  func(h http.Handler) int { return hit(h, "10.0.0.1:1234", nil).Code },
			second: func(h http.Handler) int { return hit(h, "10.0.0.1:5678", nil).Code },
			want:   http.StatusTooManyRequests,
		},
		{
			name: "forwarded for first hop",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func(h http.Handler) int {
				return hit(h, "192.168.1.1:1", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}).Code
			},
			second: func(h http.Handler) int {
				return hit(h, "192.168.1.2:1", map[string]string{"X-Forwarded-For": "203.0.113.50"}).Code
			},
			want: http.StatusTooManyRequests,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("Authorization")
			}},
			first: func(h http.Handler) int {
				return hit(h, "10.0.0.1:1", map[string]string{"Authorization": "a"}).Code
			},
			second: func(h http.Handler) int {
				return hit(h, "10.0.0.1:1", map[string]string{"Authorization": "b"}).Code
			},
			want: http.StatusOK,
		},
		{
			name: "skipped",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, Skip: func(r *http.Request) bool {
				return r.Header.Get("X-Probe") != ""
			}},
			first: func(h http.Handler) int { return hit(h, "10.0.0.1:1", nil).Code },
			second: func(h http.Handler) int {
				return hit(h, "10.0.0.1:1", map[string]string{"X-Probe": "1"}).Code
			},
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.cfg)(okHandler())
			require.Equal(t, http.StatusOK, tt.first(h))
			assert.Equal(t, tt.want, tt.second(h))
		})
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler())
	for range 10 {
		w := hit(h, "10.0.0.1:1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_Evict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_, _, ok := rl.allow("a", now)
	require.True(t, ok)

	rl.evict(now.Add(time.Minute))
	assert.Len(t, rl.windows, 1)
	rl.evict(now.Add(2 * time.Minute))
	assert.Empty(t, rl.windows)
}
