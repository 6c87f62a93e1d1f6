package handler

import (
	"log/slog"
	"net/http"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
)

type OrderHandler struct {
	orders   *services.OrderService
	sessions *services.SessionMap
	clock    clock.Clock
	log      *slog.Logger
}

func NewOrderHandler(orders *services.OrderService, sessions *services.SessionMap, clk clock.Clock, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, sessions: sessions, clock: clk, log: logger}
}

func (h *OrderHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"session_key": services.NewSessionKey()})
}

func (h *OrderHandler) RotateSession(w http.ResponseWriter, r *http.Request) {
	key, err := h.sessions.RotateSession(r.Context(), r.PathValue("session"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_key": key})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), r.PathValue("session"))
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) AddTickets(w http.ResponseWriter, r *http.Request) {
	var req services.TicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.AddTickets(r.Context(), r.PathValue("session"), req)
	h.respond(w, http.StatusCreated, order, err)
}

func (h *OrderHandler) RemoveTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathUUID(w, r, "ticket")
	if !ok {
		return
	}

	order, err := h.orders.RemoveTicket(r.Context(), r.PathValue("session"), ticketID)
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateTicketEmails(r.Context(), r.PathValue("session"), req.Email)
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.BeginCheckout(r.Context(), r.PathValue("session"), req)
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) BeginInput(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.BeginGatewayInput(r.Context(), r.PathValue("session"))
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Finalize(r.Context(), r.PathValue("session"))
	h.respond(w, http.StatusOK, order, err)
}

func (h *OrderHandler) Availability(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "event")
	if !ok {
		return
	}

	remaining, err := h.orders.Availability(r.Context(), eventID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "remaining": remaining})
}

func (h *OrderHandler) respond(w http.ResponseWriter, status int, order *domain.Order, err error) {
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, newOrderResponse(order, h.clock.Now()))
}
