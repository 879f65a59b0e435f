package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
	"golang.org/x/time/rate"
)

const (
	UserCookie  = "session"
	AdminCookie = "admin-session"
)

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// CORS allows the storefront origins to call the API with cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP.
type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	idle        time.Duration
	lastCleanup time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		idle:        10 * time.Minute,
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rl.idle {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idle {
				delete(rl.visitors, key)
			}
		}
		rl.lastCleanup = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.getLimiter(ip).Allow() {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			respondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const (
	userSessionKey ctxKey = iota
	adminSessionKey
)

// Authenticator resolves session cookies into sessions on the request context.
type Authenticator struct {
	sessions session.Service
}

func NewAuthenticator(sessions session.Service) *Authenticator {
	return &Authenticator{sessions: sessions}
}

func (a *Authenticator) lookup(r *http.Request, cookie string, role session.Role) (*session.Session, error) {
	c, err := r.Cookie(cookie)
	if err != nil {
		return nil, session.ErrNoSession
	}
	sess, err := a.sessions.Validate(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	if sess.Role != role {
		return nil, session.ErrNoSession
	}
	return sess, nil
}

func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return a.require(UserCookie, session.RoleUser, userSessionKey, next)
}

func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.require(AdminCookie, session.RoleAdmin, adminSessionKey, next)
}

func (a *Authenticator) require(cookie string, role session.Role, key ctxKey, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.lookup(r, cookie, role)
		if err != nil {
			status := mapErrorToStatusCode(err)
			if status == http.StatusInternalServerError {
				log.Error().Err(err).Msg("Failed to validate session")
				respondWithError(w, status, "Failed to validate session")
				return
			}
			respondWithError(w, status, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, sess)))
	})
}

// LoadUser attaches the user session when one is present and never rejects the request.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, err := a.lookup(r, UserCookie, session.RoleUser); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), userSessionKey, sess))
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(userSessionKey).(*session.Session)
	return sess, ok
}
