package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
)

type AdminHandler struct {
	orders *services.OrderService
	token  string
	clock  clock.Clock
	log    *slog.Logger
}

func NewAdminHandler(orders *services.OrderService, token string, clk clock.Clock, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, token: token, clock: clk, log: logger}
}

// RequireToken guards operator routes with a static bearer token. Without a
// configured token the admin API is closed.
func (h *AdminHandler) RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.token == "" {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin api disabled"})
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAwaitingConfirmation(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	now := h.clock.Now()
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "order")
	if !ok {
		return
	}

	order, err := h.orders.ConfirmPayment(r.Context(), orderID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order, h.clock.Now()))
}

func (h *AdminHandler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "order")
	if !ok {
		return
	}

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.Refund(r.Context(), orderID, req.Amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order, h.clock.Now()))
}

func (h *AdminHandler) DoorSale(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "event")
	if !ok {
		return
	}

	var req services.DoorSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EventID = eventID

	order, err := h.orders.SellAtDoor(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order, h.clock.Now()))
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "order")
	if !ok {
		return
	}

	result, err := h.orders.Delete(r.Context(), orderID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
