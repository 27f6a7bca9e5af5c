package app

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/smallwat3r/pastebin/internal/metrics"
	"github.com/smallwat3r/pastebin/internal/utility"
)

// ContentLengthValidator validates Content-Length header for requests with bodies.
// It rejects requests without Content-Length or with excessive Content-Length.
func ContentLengthValidator(maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut ||
				r.Method == http.MethodPatch {
				// r.ContentLength is -1 if not specified or chunked encoding
				if r.ContentLength < 0 {
					utility.HttpError(w, http.StatusLengthRequired,
						"Content-Length header is required")
					return
				}
				if r.ContentLength > maxSize {
					utility.HttpError(w, http.StatusRequestEntityTooLarge,
						"Content-Length exceeds maximum allowed size")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersConfig holds configuration for security headers middleware.
type SecurityHeadersConfig struct {
	RequireHTTPS bool
}

// SecurityHeaders adds security-related HTTP headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip redirect for /health endpoint to allow internal health checks
			if cfg.RequireHTTPS && r.URL.Path != "/health" {
				isHTTPS := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
				if !isHTTPS {
					target := "https://" + r.Host + r.URL.RequestURI()
					http.Redirect(w, r, target, http.StatusMovedPermanently)
					return
				}
				w.Header().Set("Strict-Transport-Security",
					"max-age=31536000; includeSubDomains")
			}

			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// The page carries its delete handler inline and loads Bootstrap
			// from jsDelivr.
			csp := "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
				"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
				"img-src 'self' data:; font-src 'self'; connect-src 'self'; " +
				"frame-ancestors 'none'; base-uri 'self'; form-action 'self'"
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("Permissions-Policy",
				"geolocation=(), microphone=(), camera=(), payment=(), usb=()")
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs every request with logrus and records request metrics.
func RequestLogger(m *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			if m != nil {
				m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
				m.RequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
			}

			entry := log.WithFields(log.Fields{
				"req_id":   middleware.GetReqID(r.Context()),
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   status,
				"bytes":    ww.BytesWritten(),
				"duration": elapsed,
				"remote":   r.RemoteAddr,
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("Request failed")
			} else {
				entry.Info("Request")
			}
		})
	}
}

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	WriteLimit int           // max POST/DELETE requests per window
	ReadLimit  int           // max GET requests per window
	Window     time.Duration // time window for rate limiting
}

// DefaultRateLimitConfig returns sensible default rate limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		WriteLimit: 30,  // 30 writes per minute
		ReadLimit:  120, // 120 reads per minute
		Window:     time.Minute,
	}
}

// maxLocalLimiters bounds the in-process limiter table; it is reset when full.
const maxLocalLimiters = 10000

// RateLimiterMiddleware limits requests per client IP. With a Redis client
// the counters are shared between instances, otherwise each process keeps
// its own token buckets.
type RateLimiterMiddleware struct {
	rdb *redis.Client
	cfg RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter middleware. rdb may be nil.
func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		rdb:      rdb,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler returns the HTTP middleware handler.
func (m *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var class string
		var limit int
		switch r.Method {
		case http.MethodPost, http.MethodDelete:
			class, limit = "write", m.cfg.WriteLimit
		case http.MethodGet:
			class, limit = "read", m.cfg.ReadLimit
		default:
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", clientIP(r), class)

		var allowed bool
		if m.rdb != nil {
			allowed = m.allowShared(r, key, limit)
		} else {
			allowed = m.allowLocal(key, limit)
		}
		if !allowed {
			utility.HttpError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowShared counts requests in a fixed Redis window. Redis errors let the
// request through.
func (m *RateLimiterMiddleware) allowShared(r *http.Request, key string, limit int) bool {
	// INCR and EXPIRE in one transaction so a crash between the two cannot
	// leave a key without TTL.
	pipe := m.rdb.TxPipeline()
	incr := pipe.Incr(r.Context(), key)
	pipe.Expire(r.Context(), key, m.cfg.Window)
	if _, err := pipe.Exec(r.Context()); err != nil {
		log.WithField("err", err).Warn("Rate limit redis error")
		return true
	}
	return int(incr.Val()) <= limit
}

func (m *RateLimiterMiddleware) allowLocal(key string, limit int) bool {
	m.mu.Lock()
	l, ok := m.limiters[key]
	if !ok {
		if len(m.limiters) >= maxLocalLimiters {
			m.limiters = make(map[string]*rate.Limiter)
		}
		every := rate.Every(m.cfg.Window / time.Duration(max(limit, 1)))
		l = rate.NewLimiter(every, limit)
		m.limiters[key] = l
	}
	m.mu.Unlock()
	return l.Allow()
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
