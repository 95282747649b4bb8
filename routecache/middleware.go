package routecache

import (
	"net/http"
)

type cachingWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (w *cachingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *cachingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.status == http.StatusOK {
		w.body = append(w.body, p...)
	}
	return w.ResponseWriter.Write(p)
}

// Middleware serves GET responses from the cache when present and fills the
// cache on a 200 miss. The key function maps a request onto the logical
// route path and the requesting principal; returning ok=false bypasses the
// cache for that request.
func Middleware(cache Cache, key func(r *http.Request) (path, principal string, ok bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			path, principal, ok := key(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if body, hit := cache.Get(r.Context(), path, principal); hit {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("X-Route-Cache", "hit")
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}

			cw := &cachingWriter{ResponseWriter: w}
			cw.Header().Set("X-Route-Cache", "miss")
			next.ServeHTTP(cw, r)

			if cw.status == http.StatusOK && len(cw.body) > 0 {
				cache.Set(r.Context(), path, principal, cw.body)
			}
		})
	}
}
