package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

type ticketResponse struct {
	ID           uuid.UUID          `json:"id"`
	EventID      uuid.UUID          `json:"event_id"`
	PriceClassID uuid.UUID          `json:"price_class_id"`
	Seat         *int               `json:"seat"`
	SoldAs       domain.SaleChannel `json:"sold_as"`
	Email        string             `json:"email,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID            `json:"id"`
	Status           domain.PaymentStatus `json:"status"`
	Variant          string               `json:"variant,omitempty"`
	Total            string               `json:"total"`
	Refunded         string               `json:"refunded,omitempty"`
	Currency         string               `json:"currency"`
	IsConfirmed      bool                 `json:"is_confirmed"`
	CreatedAt        time.Time            `json:"created_at"`
	ModifiedAt       time.Time            `json:"modified_at"`
	ExpiresAt        *time.Time           `json:"expires_at,omitempty"`
	RemainingSeconds int64                `json:"remaining_seconds"`
	Billing          *domain.BillingInfo  `json:"billing,omitempty"`
	Tickets          []ticketResponse     `json:"tickets"`
}

func newOrderResponse(o *domain.Order, now time.Time) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		Status:           o.Status,
		Variant:          o.Variant,
		Total:            o.Total.StringFixed(2),
		Currency:         o.Currency,
		IsConfirmed:      o.IsConfirmed,
		CreatedAt:        o.CreatedAt,
		ModifiedAt:       o.ModifiedAt,
		RemainingSeconds: int64(o.RemainingTime(now) / time.Second),
		Tickets:          make([]ticketResponse, 0, len(o.Tickets)),
	}
	if o.Refunded.IsPositive() {
		resp.Refunded = o.Refunded.StringFixed(2)
	}
	if !o.Status.Terminal() {
		deadline := o.Deadline()
		resp.ExpiresAt = &deadline
	}
	if o.Billing != (domain.BillingInfo{}) {
		billing := o.Billing
		resp.Billing = &billing
	}
	for _, t := range o.Tickets {
		resp.Tickets = append(resp.Tickets, ticketResponse{
			ID:           t.ID,
			EventID:      t.EventID,
			PriceClassID: t.PriceClassID,
			Seat:         t.Seat,
			SoldAs:       t.SoldAs,
			Email:        t.Email,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Available *int              `json:"available,omitempty"`
	Restart   bool              `json:"start_new_order,omitempty"`
	Retry     bool              `json:"retry,omitempty"`
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as a generic 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.CapacityError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &cerr):
		available := cerr.Available
		writeJSON(w, http.StatusConflict, errorResponse{Error: cerr.Error(), Available: &available})
	case errors.Is(err, domain.ErrGateway):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error(), Retry: true})
	case errors.Is(err, domain.ErrSessionKeyFormat):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionRetired), errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Restart: true})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrOrderExpired):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Restart: true})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrEventClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Error("request failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name + " id"})
		return uuid.Nil, false
	}
	return id, true
}
