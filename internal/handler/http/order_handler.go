package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
	"github.com/vasiliy-maslov/art-gallery/internal/receipt"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number, got %s", data)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected number, got %q", s)
	}
	*f = flexFloat(n)
	return nil
}

type OrderItemRequest struct {
	UID         string     `json:"uid"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Price       flexString `json:"price"`
	Src         string     `json:"src"`
	TypeCode    string     `json:"typeCode"`
	Materials   string     `json:"materials"`
	Duration    string     `json:"duration"`
	Type        string     `json:"type"`
	Inspiration string     `json:"inspiration"`
}

type ShippingInfoRequest struct {
	order.ShippingInfo
	TransactionCode string `json:"transactionCode"`
}

type CreateOrderRequest struct {
	User            *order.Customer      `json:"user"`
	Items           json.RawMessage      `json:"items"`
	ShippingInfo    *ShippingInfoRequest `json:"shippingInfo"`
	Total           *flexFloat           `json:"total"`
	TransactionCode string               `json:"transactionCode"`
}

type UpdateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

type OrderResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	OrderID string       `json:"orderId,omitempty"`
	Order   *order.Order `json:"order,omitempty"`
}

type OrderHandler struct {
	service order.Service
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, guards Guards) {
	router.With(guards.Limit, guards.LoadUser).Post("/orders", h.handleCreateOrder)
	router.With(guards.RequireAdmin).Get("/orders", h.handleListOrders)
	router.With(guards.RequireAdmin).Patch("/orders", h.handleUpdateOrder)
	router.With(guards.RequireUser).Get("/orders/mine", h.handleListMyOrders)
	router.With(guards.RequireAdmin).Get("/orders/{orderId}", h.handleGetOrder)
	router.With(guards.RequireAdmin).Get("/orders/{orderId}/receipt", h.handleGetReceipt)
}

func respondOrderFailure(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, OrderResult{Success: false, Message: message})
}

// parseItems accepts an array, a JSON encoded array string, or a single item object.
func parseItems(raw json.RawMessage) ([]order.Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var reqs []OrderItemRequest
	switch raw[0] {
	case '"':
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		return parseItems(json.RawMessage(encoded))
	case '[':
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return nil, err
		}
	case '{':
		var single OrderItemRequest
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		reqs = []OrderItemRequest{single}
	default:
		return nil, fmt.Errorf("unsupported items format")
	}

	items := make([]order.Item, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, order.Item{
			UID:         r.UID,
			Title:       r.Title,
			Artist:      r.Artist,
			Price:       string(r.Price),
			Src:         r.Src,
			TypeCode:    r.TypeCode,
			Materials:   r.Materials,
			Duration:    r.Duration,
			Type:        r.Type,
			Inspiration: r.Inspiration,
		})
	}
	return items, nil
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode order request body")
		respondOrderFailure(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	items, err := parseItems(requestPayload.Items)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse order items")
		respondOrderFailure(w, http.StatusBadRequest, "Invalid items format")
		return
	}

	in := order.CreateInput{
		User:            requestPayload.User,
		Items:           items,
		TransactionCode: requestPayload.TransactionCode,
	}
	if requestPayload.ShippingInfo != nil {
		ship := requestPayload.ShippingInfo.ShippingInfo
		in.ShippingInfo = &ship
		if code := strings.TrimSpace(requestPayload.ShippingInfo.TransactionCode); code != "" {
			in.TransactionCode = code
		}
	}
	if requestPayload.Total != nil {
		total := float64(*requestPayload.Total)
		in.Total = &total
	}
	if sess, ok := userFromContext(r.Context()); ok && in.User != nil && in.User.ID == "" {
		in.User.ID = sess.UserID
	}

	created, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to create order via service")
		}
		respondOrderFailure(w, statusCode, clientMessage(err, "Failed to place order"))
		return
	}

	respondWithJSON(w, http.StatusCreated, OrderResult{
		Success: true,
		Message: "Order placed successfully",
		OrderID: created.OrderID,
		Order:   created,
	})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}

	page, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to list orders via service")
		}
		respondWithError(w, statusCode, clientMessage(err, "Failed to fetch orders"))
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("orderId"))
	if orderID == "" {
		respondOrderFailure(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	var requestPayload UpdateOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("Failed to decode order update")
		respondOrderFailure(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// Blank fields count as absent.
	var in order.UpdateInput
	if v := trimmed(requestPayload.Status); v != "" {
		s := order.Status(v)
		in.Status = &s
	}
	if v := trimmed(requestPayload.PaymentStatus); v != "" {
		ps := order.PaymentStatus(v)
		in.PaymentStatus = &ps
	}

	updated, err := h.service.UpdateOrder(r.Context(), orderID, in)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var message string
		switch {
		case errors.Is(err, order.ErrNotFound):
			message = "Order not found"
		case statusCode == http.StatusInternalServerError:
			log.Error().Err(err).Str("order_id", orderID).Msg("Failed to update order via service")
			message = "Failed to update order"
		default:
			message = err.Error()
		}
		respondOrderFailure(w, statusCode, message)
		return
	}

	respondWithJSON(w, http.StatusOK, OrderResult{
		Success: true,
		Message: "Order updated successfully",
		Order:   updated,
	})
}

func (h *OrderHandler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := userFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orders, err := h.service.ListUserOrders(r.Context(), sess.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("Failed to list user orders via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) fetchOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	orderID := chi.URLParam(r, "orderId")

	o, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if errors.Is(err, order.ErrNotFound) {
			respondWithError(w, statusCode, "Order not found")
			return nil, false
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to get order via service")
		respondWithError(w, statusCode, "Failed to fetch order")
		return nil, false
	}
	return o, true
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := receipt.Render(&buf, o); err != nil {
		log.Error().Err(err).Str("order_id", o.OrderID).Msg("Failed to render receipt")
		respondWithError(w, http.StatusInternalServerError, "Failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, o.OrderID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Str("order_id", o.OrderID).Msg("Failed to write receipt")
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
