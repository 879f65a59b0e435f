package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	galleryHttp "github.com/vasiliy-maslov/art-gallery/internal/handler/http"
	"github.com/vasiliy-maslov/art-gallery/internal/message"
)

func newMessageRouter(svc message.Service) *chi.Mux {
	router := chi.NewRouter()
	galleryHttp.NewMessageHandler(svc).RegisterRoutes(router, newGuards(newSessions()))
	return router
}

func TestMessageHandler_handleCreateMessage(t *testing.T) {
	mockService := new(MockMessageService)
	stored := &message.Message{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      "Jane",
		Email:     "jane@example.com",
		Subject:   "Commission",
		Body:      "Do you take commissions?",
		CreatedAt: time.Now().UTC(),
	}
	mockService.On("Submit", mock.Anything, mock.MatchedBy(func(m *message.Message) bool {
		return m.Body == "Do you take commissions?" && m.Subject == "Commission"
	})).Return(stored, nil).Once()

	router := newMessageRouter(mockService)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(
		`{"name":"Jane","email":"jane@example.com","subject":"Commission","message":"Do you take commissions?"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got message.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, stored.ID, got.ID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"name":"Jane","email":"not-an-email"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var validation galleryHttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&validation))
	assert.Equal(t, "must be a valid email address", validation.Details["email"])
	assert.Equal(t, "is required", validation.Details["message"])

	mockService.AssertExpectations(t)
}

func TestMessageHandler_AdminRoutes(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	missing := uuid.Must(uuid.NewV4())
	deleted := &message.Message{ID: id, Name: "Jane", Body: "hi"}

	mockService := new(MockMessageService)
	mockService.On("List", mock.Anything).Return([]message.Message{*deleted}, nil).Once()
	mockService.On("Delete", mock.Anything, id).Return(deleted, nil).Once()
	mockService.On("Delete", mock.Anything, missing).Return(nil, message.ErrNotFound).Once()

	router := newMessageRouter(mockService)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withAdmin(httptest.NewRequest(http.MethodGet, "/messages", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []message.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Len(t, list, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withAdmin(httptest.NewRequest(http.MethodDelete, "/messages", nil)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withAdmin(httptest.NewRequest(http.MethodDelete, "/messages?id="+missing.String(), nil)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Message not found"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withAdmin(httptest.NewRequest(http.MethodDelete, "/messages?id="+id.String(), nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	var response struct {
		Message        string          `json:"message"`
		DeletedMessage message.Message `json:"deletedMessage"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, "Message deleted successfully", response.Message)
	assert.Equal(t, id, response.DeletedMessage.ID)

	mockService.AssertExpectations(t)
}
