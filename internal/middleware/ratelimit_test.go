package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/printhub/printhub/internal/config"
)

// scriptedBucket satisfies redis.Scripter with canned script results,
// standing in for a Redis server. Results are handed out in order;
// the last one repeats once the queue is exhausted.
type scriptedBucket struct {
    results []interface{}
    err     error
    calls   int
}

func (s *scriptedBucket) next() *redis.Cmd {
    if s.err != nil {
        return redis.NewCmdResult(nil, s.err)
    }
    idx := s.calls
    if idx >= len(s.results) {
        idx = len(s.results) - 1
    }
    s.calls++
    return redis.NewCmdResult(s.results[idx], nil)
}

func (s *scriptedBucket) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
    return s.next()
}

func (s *scriptedBucket) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
    return s.next()
}

func (s *scriptedBucket) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
    return s.next()
}

func (s *scriptedBucket) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
    return s.next()
}

func (s *scriptedBucket) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
    return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (s *scriptedBucket) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
    return redis.NewStringResult("", nil)
}

func unlockLimitConfig(capacity int) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   1,
        RefillInterval: 20 * time.Second,
        TTL:            time.Minute,
        KeyStrategy:    "user_route",
        Prefix:         "rl:unlock",
    }
}

// runThroughBucket sends one authenticated unlock request through the
// middleware and reports whether the wrapped handler ran.
func runThroughBucket(t *testing.T, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, bool) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/boxes/1/unlock", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetPath("/v1/boxes/:id/unlock")
    c.Set("user_id", float64(7))
    called := false
    h := mw(func(c echo.Context) error {
        called = true
        return c.NoContent(http.StatusOK)
    })
    require.NoError(t, h(c))
    return rec, called
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
    cfg := unlockLimitConfig(1)
    cfg.Enabled = false
    rec, called := runThroughBucket(t, NewTokenBucket(cfg, &scriptedBucket{}))
    assert.True(t, called)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestTokenBucketNilClientPassesThrough(t *testing.T) {
    rec, called := runThroughBucket(t, NewTokenBucket(unlockLimitConfig(1), nil))
    assert.True(t, called)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketAdmitsCapacityThenBlocks(t *testing.T) {
    rdb := &scriptedBucket{results: []interface{}{
        []interface{}{int64(1), int64(1), int64(0)},
        []interface{}{int64(1), int64(0), int64(0)},
        []interface{}{int64(0), int64(0), int64(15000)},
    }}
    mw := NewTokenBucket(unlockLimitConfig(2), rdb)

    for i := 0; i < 2; i++ {
        rec, called := runThroughBucket(t, mw)
        assert.True(t, called, "request %d should be admitted", i+1)
        assert.Equal(t, http.StatusOK, rec.Code)
    }

    rec, called := runThroughBucket(t, mw)
    assert.False(t, called)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "15", rec.Header().Get("Retry-After"))
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
    assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketFailsOpenOnRedisError(t *testing.T) {
    rdb := &scriptedBucket{err: errors.New("connection refused")}
    rec, called := runThroughBucket(t, NewTokenBucket(unlockLimitConfig(1), rdb))
    assert.True(t, called)
    assert.Equal(t, http.StatusOK, rec.Code)
}
