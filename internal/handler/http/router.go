package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Guards are the per-route middlewares handlers pick from when registering.
type Guards struct {
	RequireUser  func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
	LoadUser     func(http.Handler) http.Handler
	Limit        func(http.Handler) http.Handler
}

func NewGuards(auth *Authenticator, limiter *RateLimiter) Guards {
	return Guards{
		RequireUser:  auth.RequireUser,
		RequireAdmin: auth.RequireAdmin,
		LoadUser:     auth.LoadUser,
		Limit:        limiter.Limit,
	}
}

type RouteRegistrar interface {
	RegisterRoutes(router chi.Router, guards Guards)
}

type RouterConfig struct {
	AllowedOrigins []string
	MediaDir       string
	MediaPath      string
}

func NewRouter(cfg RouterConfig, guards Guards, handlers ...RouteRegistrar) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(SecurityHeaders)
	router.Use(CORS(cfg.AllowedOrigins))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if cfg.MediaDir != "" && strings.HasPrefix(cfg.MediaPath, "/") {
		prefix := strings.TrimRight(cfg.MediaPath, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.MediaDir)))
		router.Get(prefix+"/*", fs.ServeHTTP)
	}

	for _, h := range handlers {
		h.RegisterRoutes(router, guards)
	}

	return router
}
