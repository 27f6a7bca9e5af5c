package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smallwat3r/pastebin/internal/domain"
)

// RouterConfig carries the optional pieces of the middleware stack.
type RouterConfig struct {
	Security    SecurityHeadersConfig
	RateLimiter *RateLimiterMiddleware // nil disables rate limiting
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(SecurityHeaders(cfg.Security))

	r.NotFound(h.HandleNotFound)
	r.MethodNotAllowed(h.HandleMethodNotAllowed)

	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
		r.Use(ContentLengthValidator(domain.MaxRequestBodySize))

		r.Get("/", h.HandleNew)
		r.Get("/{id:[A-Za-z0-9-]+}", h.HandleView)
		r.Post("/{id:[A-Za-z0-9-]+}", h.HandleSave)
		r.Delete("/{id:[A-Za-z0-9-]+}", h.HandleDelete)
	})

	return r
}
