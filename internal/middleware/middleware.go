package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"HomeMonitorAPI/internal/config"
	"HomeMonitorAPI/internal/logger"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs method, path, status and duration for every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			log.Debug("%s %s %d %v", r.Method, r.URL.Path, rw.status, time.Since(start))
		})
	}
}

// Recovery turns panics in handlers into 500 responses instead of
// killing the process.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic in %s %s: %v", r.Method, r.URL.Path, err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS applies the configured allowed origins and methods.
func CORS(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	origins := strings.Join(cfg.CORSAllowedOrigins, ", ")
	methods := strings.Join(cfg.CORSAllowedMethods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies a fixed-window per-client-IP request cap.
func RateLimit(cfg *config.SecurityConfig, log *logger.Logger) func(http.Handler) http.Handler {
	type window struct {
		count int
		reset time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.EnableRateLimit {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			now := time.Now()

			mu.Lock()
			cw, ok := clients[ip]
			if !ok || now.After(cw.reset) {
				cw = &window{reset: now.Add(time.Minute)}
				clients[ip] = cw
			}
			cw.count++
			over := cw.count > cfg.RateLimitPerMinute
			mu.Unlock()

			if over {
				log.Warn("Rate limit exceeded for %s", ip)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
