package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/account"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SessionTTLs struct {
	User  time.Duration
	Admin time.Duration
}

type AuthHandler struct {
	accounts     account.Service
	sessions     session.Service
	auth         *Authenticator
	ttl          SessionTTLs
	secureCookie bool
	validate     *validator.Validate
}

func NewAuthHandler(accounts account.Service, sessions session.Service, ttl SessionTTLs, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		sessions:     sessions,
		auth:         NewAuthenticator(sessions),
		ttl:          ttl,
		secureCookie: secureCookie,
		validate:     newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Post("/register", h.handleRegister)
	router.With(guards.Limit).Post("/login", h.handleLogin)
	router.Post("/auth/user/logout", h.handleUserLogout)
	router.Get("/auth/user", h.handleCurrentUser)
	router.With(guards.Limit).Post("/auth/admin/login", h.handleAdminLogin)
	router.Post("/auth/admin/logout", h.handleAdminLogout)
	router.Get("/auth/admin", h.handleCurrentAdmin)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.accounts.Register(r.Context(), requestPayload.Name, requestPayload.Email, requestPayload.Password)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		switch {
		case errors.Is(err, account.ErrEmailExists):
			respondWithError(w, statusCode, "User already exists with this email")
		case statusCode == http.StatusInternalServerError:
			log.Error().Err(err).Msg("Failed to register user via service")
			respondWithError(w, statusCode, "Failed to register user")
		default:
			respondWithError(w, statusCode, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    created,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	u, err := h.accounts.AuthenticateUser(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user via service")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	data := session.UserData{ID: u.ID.String(), Name: u.Name, Email: u.Email, Role: session.RoleUser}
	sess, err := h.sessions.Create(r.Context(), session.RoleUser, data, h.ttl.User)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("Failed to create user session")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setCookie(w, UserCookie, sess.Token, h.ttl.User)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    data,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request, cookie string) {
	if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
		if err := h.sessions.Destroy(r.Context(), c.Value); err != nil {
			log.Error().Err(err).Str("cookie", cookie).Msg("Failed to destroy session")
			respondWithError(w, http.StatusInternalServerError, "Logout failed")
			return
		}
	}

	h.clearCookie(w, cookie)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) handleUserLogout(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, UserCookie)
}

func (h *AuthHandler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, AdminCookie)
}

func (h *AuthHandler) currentSession(w http.ResponseWriter, r *http.Request, cookie string, role session.Role, key string) {
	sess, err := h.auth.lookup(r, cookie, role)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to validate session")
			respondWithError(w, statusCode, "Failed to validate session")
			return
		}
		message := "No active session"
		if errors.Is(err, session.ErrSessionExpired) {
			message = "Session expired"
			h.clearCookie(w, cookie)
		}
		respondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"loggedIn": false,
			"message":  message,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"loggedIn": true,
		key:        sess.UserData,
	})
}

func (h *AuthHandler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	h.currentSession(w, r, UserCookie, session.RoleUser, "user")
}

func (h *AuthHandler) handleCurrentAdmin(w http.ResponseWriter, r *http.Request) {
	h.currentSession(w, r, AdminCookie, session.RoleAdmin, "admin")
}

func (h *AuthHandler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload AdminLoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	a, err := h.accounts.AuthenticateAdmin(r.Context(), requestPayload.Username, requestPayload.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate admin via service")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	data := session.UserData{ID: a.ID.String(), Username: a.Username, Email: a.Email, Role: session.RoleAdmin}
	sess, err := h.sessions.CreateAdmin(r.Context(), data, h.ttl.Admin)
	if err != nil {
		log.Error().Err(err).Stringer("admin_id", a.ID).Msg("Failed to create admin session")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setCookie(w, AdminCookie, sess.Token, h.ttl.Admin)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Admin login successful",
		"admin":   data,
	})
}
