package routecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_, hit := cache.Get(ctx, "/", "a@x.com")
	assert.False(t, hit)

	cache.Set(ctx, "/", "a@x.com", []byte(`[]`))
	body, hit := cache.Get(ctx, "/", "a@x.com")
	assert.True(t, hit)
	assert.Equal(t, []byte(`[]`), body)

	// Another principal never sees a different user's entry.
	_, hit = cache.Get(ctx, "/", "b@x.com")
	assert.False(t, hit)
}

func TestMemoryCacheInvalidateDropsAllPrincipals(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "/documents/r1", "a@x.com", []byte(`{}`))
	cache.Set(ctx, "/documents/r1", "b@x.com", []byte(`{}`))
	cache.Set(ctx, "/", "a@x.com", []byte(`[]`))

	cache.Invalidate(ctx, "/documents/r1")

	_, hit := cache.Get(ctx, "/documents/r1", "a@x.com")
	assert.False(t, hit)
	_, hit = cache.Get(ctx, "/documents/r1", "b@x.com")
	assert.False(t, hit)
	_, hit = cache.Get(ctx, "/", "a@x.com")
	assert.True(t, hit, "other paths stay cached")
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "/", "a@x.com", []byte(`[]`))
	time.Sleep(20 * time.Millisecond)
	_, hit := cache.Get(ctx, "/", "a@x.com")
	assert.False(t, hit)
}

func TestMiddlewareServesFromCache(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"calls":true}`))
	})

	key := func(r *http.Request) (string, string, bool) {
		return "/", "a@x.com", true
	}
	wrapped := Middleware(cache, key)(handler)

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Route-Cache"))
	assert.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Route-Cache"))
	assert.Equal(t, `{"calls":true}`, second.Body.String())
	assert.Equal(t, 1, calls, "cached response must not re-run the handler")

	cache.Invalidate(context.Background(), "/")
	third := httptest.NewRecorder()
	wrapped.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 2, calls, "invalidation forces a fresh render")
}

func TestMiddlewareSkipsNonGet(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	wrapped := Middleware(cache, func(r *http.Request) (string, string, bool) {
		return "/", "a@x.com", true
	})(handler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestMiddlewareDoesNotCacheErrors(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	wrapped := Middleware(cache, func(r *http.Request) (string, string, bool) {
		return "/", "a@x.com", true
	})(handler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, 2, calls)
}
