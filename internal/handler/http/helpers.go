package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/account"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/media"
	"github.com/vasiliy-maslov/art-gallery/internal/message"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case apperr.IsValidation(err), errors.Is(err, media.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, artwork.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, message.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, artwork.ErrUIDExists),
		errors.Is(err, account.ErrEmailExists),
		errors.Is(err, account.ErrUsernameExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal failures; domain errors are safe to show.
func clientMessage(err error, fallback string) string {
	if mapErrorToStatusCode(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}
