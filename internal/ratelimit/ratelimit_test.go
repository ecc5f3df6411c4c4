package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllow(t *testing.T) {
	l := NewMemory(2, time.Minute)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	require.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	require.True(t, ok, "keys are independent")

	ok, _ = l.Allow(ctx, "")
	require.True(t, ok)
}

func TestMemoryWindowSlides(t *testing.T) {
	l := NewMemory(1, 50*time.Millisecond)
	defer l.Stop()
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	require.False(t, ok)

	time.Sleep(80 * time.Millisecond)
	ok, _ = l.Allow(ctx, "k")
	require.True(t, ok)
}

type stubLimiter struct {
	ok  bool
	err error
	key string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.key = key
	return s.ok, s.err
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		limiter *stubLimiter
		status  int
	}{
		{"allowed", &stubLimiter{ok: true}, http.StatusOK},
		{"limited", &stubLimiter{ok: false}, http.StatusTooManyRequests},
		{"backend down fails open", &stubLimiter{ok: true, err: errors.New("dial")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			rr := httptest.NewRecorder()
			Middleware(tt.limiter, nil)(next).ServeHTTP(rr, req)
			require.Equal(t, tt.status, rr.Code)
			require.Equal(t, "/auth/login|10.0.0.1", tt.limiter.key)
		})
	}
}

func TestRedisUnreachableFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	ok, err := NewRedis(rdb, "rl", 1, time.Minute).Allow(context.Background(), "k")
	require.Error(t, err)
	require.True(t, ok)
}
