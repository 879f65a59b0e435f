package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/message"
)

type CreateMessageRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

type MessageHandler struct {
	service  message.Service
	validate *validator.Validate
}

func NewMessageHandler(service message.Service) *MessageHandler {
	return &MessageHandler{service: service, validate: newValidator()}
}

func (h *MessageHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.With(guards.Limit).Post("/messages", h.handleCreateMessage)
	router.With(guards.RequireAdmin).Get("/messages", h.handleListMessages)
	router.With(guards.RequireAdmin).Delete("/messages", h.handleDeleteMessage)
}

func (h *MessageHandler) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateMessageRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.Submit(r.Context(), &message.Message{
		Name:    requestPayload.Name,
		Email:   requestPayload.Email,
		Subject: requestPayload.Subject,
		Body:    requestPayload.Message,
	})
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to submit message via service")
		}
		respondWithError(w, statusCode, clientMessage(err, "Failed to send message"))
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *MessageHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list messages via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []message.Message{}
	}

	respondWithJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("id")
	if idParam == "" {
		respondWithError(w, http.StatusBadRequest, "Message ID is required")
		return
	}
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("message_id", idParam).Msg("Failed to parse id query parameter")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if errors.Is(err, message.ErrNotFound) {
			respondWithError(w, statusCode, "Message not found")
			return
		}
		log.Error().Err(err).Str("message_id", idParam).Msg("Failed to delete message via service")
		respondWithError(w, statusCode, "Failed to delete message")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Message deleted successfully",
		"deletedMessage": deleted,
	})
}
