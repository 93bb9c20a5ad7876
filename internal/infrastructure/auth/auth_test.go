package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

type loginServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newLoginServer(t *testing.T, token string, status int) *loginServer {
	t.Helper()
	ls := &loginServer{}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ls.calls.Add(1)
		assert.Equal(t, "/api/admin/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@example.com", creds.Email)

		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": token, "username": "Admin"})
	}))
	t.Cleanup(ls.Close)
	return ls
}

func newLoginSource(t *testing.T, url string, now *time.Time) *LoginSource {
	t.Helper()
	c, err := client.New(config.APIConfig{BaseURL: url})
	require.NoError(t, err)
	return NewLoginSource(c, "/api/admin/login",
		Credentials{Email: "admin@example.com", Password: "secret"},
		time.Hour,
		WithClock(func() time.Time { return *now }),
	)
}

func TestStaticAndNone(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = None{}.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestSession_Valid(t *testing.T) {
	assert.False(t, Session{}.Valid(baseTime))
	assert.True(t, Session{Token: "x"}.Valid(baseTime))
	assert.True(t, Session{Token: "x", ExpiresAt: baseTime.Add(time.Minute)}.Valid(baseTime))
	assert.False(t, Session{Token: "x", ExpiresAt: baseTime.Add(10 * time.Second)}.Valid(baseTime))
	assert.Equal(t, 90*time.Second, Session{Token: "x", ExpiresAt: baseTime.Add(2 * time.Minute)}.TTL(baseTime))
}

func TestLoginSource(t *testing.T) {
	t.Run("reads expiry from token and caches until near expiry", func(t *testing.T) {
		now := baseTime
		token := signedToken(t, baseTime.Add(10*time.Minute))
		server := newLoginServer(t, token, http.StatusOK)
		src := newLoginSource(t, server.URL, &now)

		sess, err := src.Session(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, sess.Token)
		assert.Equal(t, "Admin", sess.Username)
		assert.True(t, sess.ExpiresAt.Equal(baseTime.Add(10*time.Minute)))

		tok, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, tok)
		assert.Equal(t, int32(1), server.calls.Load())

		now = baseTime.Add(10 * time.Minute)
		_, err = src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), server.calls.Load())
	})

	t.Run("opaque token falls back to default ttl", func(t *testing.T) {
		now := baseTime
		server := newLoginServer(t, "opaque-token", http.StatusOK)
		src := newLoginSource(t, server.URL, &now)

		sess, err := src.Session(context.Background())
		require.NoError(t, err)
		assert.True(t, sess.ExpiresAt.Equal(baseTime.Add(time.Hour)))
	})

	t.Run("invalidate forces a new login", func(t *testing.T) {
		now := baseTime
		server := newLoginServer(t, "opaque-token", http.StatusOK)
		src := newLoginSource(t, server.URL, &now)

		_, err := src.Token(context.Background())
		require.NoError(t, err)
		require.NoError(t, src.Invalidate(context.Background()))
		_, err = src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), server.calls.Load())
	})

	t.Run("rejected credentials surface the server message", func(t *testing.T) {
		now := baseTime
		server := newLoginServer(t, "", http.StatusUnauthorized)
		src := newLoginSource(t, server.URL, &now)

		_, err := src.Token(context.Background())
		var herr *shared.HTTPError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, "Invalid credentials", herr.Message)
	})

	t.Run("empty token in response", func(t *testing.T) {
		now := baseTime
		server := newLoginServer(t, "", http.StatusOK)
		src := newLoginSource(t, server.URL, &now)

		_, err := src.Token(context.Background())
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("missing credentials", func(t *testing.T) {
		c, err := client.New(config.APIConfig{BaseURL: "http://unused.invalid"})
		require.NoError(t, err)
		src := NewLoginSource(c, "/api/admin/login", Credentials{}, time.Hour)

		_, err = src.Token(context.Background())
		assert.True(t, shared.IsValidation(err))
	})
}

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingSource struct {
	sess  Session
	calls int
}

func (c *countingSource) Session(context.Context) (Session, error) {
	c.calls++
	return c.sess, nil
}

func TestRedisCache(t *testing.T) {
	const key = "erp:console:session:admin@example.com"

	newCache := func(store *fakeRedis, next SessionSource) *RedisCache {
		c := NewRedisCache(store, next, "erp:console:", "admin@example.com", nil)
		c.now = func() time.Time { return baseTime }
		return c
	}

	t.Run("stores session with ttl and reuses it", func(t *testing.T) {
		store := newFakeRedis()
		next := &countingSource{sess: Session{Token: "t1", Username: "Admin", ExpiresAt: baseTime.Add(time.Hour)}}
		cache := newCache(store, next)

		tok, err := cache.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "t1", tok)
		assert.Contains(t, store.data, key)
		assert.Equal(t, time.Hour-refreshBuffer, store.ttls[key])

		// a fresh cache instance models the next console invocation
		other := newCache(store, next)
		tok, err = other.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "t1", tok)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("redis failure falls through to source", func(t *testing.T) {
		store := newFakeRedis()
		store.failGet = true
		next := &countingSource{sess: Session{Token: "t2", ExpiresAt: baseTime.Add(time.Hour)}}

		tok, err := newCache(store, next).Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "t2", tok)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("expired entry is ignored", func(t *testing.T) {
		store := newFakeRedis()
		stale, _ := json.Marshal(Session{Token: "old", ExpiresAt: baseTime.Add(-time.Minute)})
		store.data[key] = string(stale)
		next := &countingSource{sess: Session{Token: "new", ExpiresAt: baseTime.Add(time.Hour)}}

		tok, err := newCache(store, next).Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new", tok)
	})

	t.Run("invalidate removes entry", func(t *testing.T) {
		store := newFakeRedis()
		next := &countingSource{sess: Session{Token: "t3", ExpiresAt: baseTime.Add(time.Hour)}}
		cache := newCache(store, next)

		_, err := cache.Token(context.Background())
		require.NoError(t, err)
		require.NoError(t, cache.Invalidate(context.Background()))
		assert.NotContains(t, store.data, key)
	})
}
