package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/media"
)

const imageField = "image"

type ArtworkRequest struct {
	UID         string `json:"uid" validate:"omitempty,max=64"`
	Src         string `json:"src"`
	Title       string `json:"title" validate:"required"`
	Artist      string `json:"artist"`
	TypeCode    string `json:"typeCode"`
	Price       string `json:"price" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=Available Sold Exhibition"`
	State       string `json:"state" validate:"omitempty,oneof='In Progress' Completed"`
	Materials   string `json:"materials"`
	Duration    string `json:"duration"`
	Type        string `json:"type"`
	Inspiration string `json:"inspiration"`
}

type ArtworkStatusRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=Available Sold Exhibition"`
	State  *string `json:"state" validate:"omitempty,oneof='In Progress' Completed"`
}

type ArtworkDetailsRequest struct {
	Src         *string `json:"src"`
	Title       *string `json:"title"`
	Price       *string `json:"price"`
	Status      *string `json:"status" validate:"omitempty,oneof=Available Sold Exhibition"`
	State       *string `json:"state" validate:"omitempty,oneof='In Progress' Completed"`
	Materials   *string `json:"materials"`
	Duration    *string `json:"duration"`
	Type        *string `json:"type"`
	Inspiration *string `json:"inspiration"`
}

type GalleryHandler struct {
	service        artwork.Service
	media          media.Store
	maxUploadBytes int64
	validate       *validator.Validate
}

func NewGalleryHandler(service artwork.Service, store media.Store, maxUploadBytes int64) *GalleryHandler {
	return &GalleryHandler{
		service:        service,
		media:          store,
		maxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
	}
}

func (h *GalleryHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.Get("/gallery", h.handleListArtworks)
	router.With(guards.RequireAdmin).Post("/gallery", h.handleCreateArtwork)
	router.With(guards.RequireAdmin).Patch("/gallery", h.handleUpdateStatus)
	router.With(guards.RequireAdmin).Put("/gallery", h.handleUpdateDetails)
	router.With(guards.RequireAdmin).Delete("/gallery", h.handleDeleteArtwork)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func artworkIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := r.URL.Query().Get("id")
	if idParam == "" {
		respondWithError(w, http.StatusBadRequest, "Artwork ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("artwork_id", idParam).Msg("Failed to parse id query parameter")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

func respondArtworkError(w http.ResponseWriter, err error, fallback string) {
	statusCode := mapErrorToStatusCode(err)
	switch {
	case errors.Is(err, artwork.ErrNotFound):
		respondWithError(w, statusCode, "Artwork not found")
	case errors.Is(err, artwork.ErrUIDExists):
		respondWithError(w, statusCode, "Artwork with this uid already exists")
	case statusCode == http.StatusInternalServerError:
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, statusCode, fallback)
	default:
		respondWithError(w, statusCode, err.Error())
	}
}

// saveUpload stores the multipart image, if any, and returns its URL.
func (h *GalleryHandler) saveUpload(r *http.Request) (string, bool, error) {
	file, _, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", false, nil
		}
		return "", false, err
	}
	defer file.Close()

	src, err := h.media.Save(file)
	if err != nil {
		return "", false, err
	}
	return src, true, nil
}

// discardUpload removes an image stored for a request that later failed.
func (h *GalleryHandler) discardUpload(src string) {
	if err := h.media.Delete(src); err != nil {
		log.Warn().Err(err).Str("src", src).Msg("Failed to remove orphaned image")
	}
}

func (h *GalleryHandler) handleListArtworks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	artworks, err := h.service.ListArtworks(r.Context(), query.Get("status"), query.Get("state"))
	if err != nil {
		respondArtworkError(w, err, "Failed to fetch artworks")
		return
	}
	if artworks == nil {
		artworks = []artwork.Artwork{}
	}

	respondWithJSON(w, http.StatusOK, artworks)
}

func (h *GalleryHandler) handleCreateArtwork(w http.ResponseWriter, r *http.Request) {
	var requestPayload ArtworkRequest
	var uploaded string

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			log.Warn().Err(err).Msg("Failed to parse multipart form")
			respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}

		requestPayload = ArtworkRequest{
			UID:         r.FormValue("uid"),
			Title:       r.FormValue("title"),
			Artist:      r.FormValue("artist"),
			TypeCode:    r.FormValue("typeCode"),
			Price:       r.FormValue("price"),
			Status:      r.FormValue("status"),
			State:       r.FormValue("state"),
			Materials:   r.FormValue("materials"),
			Duration:    r.FormValue("duration"),
			Type:        r.FormValue("type"),
			Inspiration: r.FormValue("inspiration"),
		}
		if !validateStruct(w, h.validate, &requestPayload) {
			return
		}

		src, ok, err := h.saveUpload(r)
		if err != nil {
			respondArtworkError(w, err, "Failed to store image")
			return
		}
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Image is required")
			return
		}
		uploaded = src
		requestPayload.Src = src
	} else if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.CreateArtwork(r.Context(), &artwork.Artwork{
		UID:         requestPayload.UID,
		Src:         requestPayload.Src,
		Title:       requestPayload.Title,
		Artist:      requestPayload.Artist,
		TypeCode:    requestPayload.TypeCode,
		Price:       requestPayload.Price,
		Status:      artwork.Status(requestPayload.Status),
		State:       artwork.State(requestPayload.State),
		Materials:   requestPayload.Materials,
		Duration:    requestPayload.Duration,
		Type:        requestPayload.Type,
		Inspiration: requestPayload.Inspiration,
	})
	if err != nil {
		if uploaded != "" {
			h.discardUpload(uploaded)
		}
		respondArtworkError(w, err, "Failed to create artwork")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *GalleryHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := artworkIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload ArtworkStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	var patch artwork.Patch
	if requestPayload.Status != nil {
		s := artwork.Status(*requestPayload.Status)
		patch.Status = &s
	}
	if requestPayload.State != nil {
		s := artwork.State(*requestPayload.State)
		patch.State = &s
	}

	updated, err := h.service.UpdateArtwork(r.Context(), id, patch)
	if err != nil {
		respondArtworkError(w, err, "Failed to update artwork")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func (h *GalleryHandler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := artworkIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload ArtworkDetailsRequest
	var uploaded string

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			log.Warn().Err(err).Msg("Failed to parse multipart form")
			respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}

		requestPayload = ArtworkDetailsRequest{
			Title:       formValue(r, "title"),
			Price:       formValue(r, "price"),
			Status:      formValue(r, "status"),
			State:       formValue(r, "state"),
			Materials:   formValue(r, "materials"),
			Duration:    formValue(r, "duration"),
			Type:        formValue(r, "type"),
			Inspiration: formValue(r, "inspiration"),
		}
		if !validateStruct(w, h.validate, &requestPayload) {
			return
		}

		src, ok, err := h.saveUpload(r)
		if err != nil {
			respondArtworkError(w, err, "Failed to store image")
			return
		}
		if ok {
			uploaded = src
			requestPayload.Src = &src
		}
	} else if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	var previous *artwork.Artwork
	if uploaded != "" {
		current, err := h.service.GetArtwork(r.Context(), id)
		if err != nil {
			h.discardUpload(uploaded)
			respondArtworkError(w, err, "Failed to update artwork")
			return
		}
		previous = current
	}

	patch := artwork.Patch{
		Src:         requestPayload.Src,
		Title:       requestPayload.Title,
		Price:       requestPayload.Price,
		Materials:   requestPayload.Materials,
		Duration:    requestPayload.Duration,
		Type:        requestPayload.Type,
		Inspiration: requestPayload.Inspiration,
	}
	if requestPayload.Status != nil {
		s := artwork.Status(*requestPayload.Status)
		patch.Status = &s
	}
	if requestPayload.State != nil {
		s := artwork.State(*requestPayload.State)
		patch.State = &s
	}

	updated, err := h.service.UpdateArtwork(r.Context(), id, patch)
	if err != nil {
		if uploaded != "" {
			h.discardUpload(uploaded)
		}
		respondArtworkError(w, err, "Failed to update artwork")
		return
	}

	if previous != nil && previous.Src != updated.Src {
		h.discardUpload(previous.Src)
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *GalleryHandler) handleDeleteArtwork(w http.ResponseWriter, r *http.Request) {
	id, ok := artworkIDParam(w, r)
	if !ok {
		return
	}

	current, err := h.service.GetArtwork(r.Context(), id)
	if err != nil {
		respondArtworkError(w, err, "Failed to delete artwork")
		return
	}

	if err := h.service.DeleteArtwork(r.Context(), id); err != nil {
		respondArtworkError(w, err, "Failed to delete artwork")
		return
	}

	h.discardUpload(current.Src)

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Artwork deleted successfully"})
}
