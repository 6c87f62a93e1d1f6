package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusWaiting   PaymentStatus = "WAITING"
	StatusInput     PaymentStatus = "INPUT"
	StatusPreauth   PaymentStatus = "PREAUTH"
	StatusConfirmed PaymentStatus = "CONFIRMED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// Terminal statuses are exempt from expiry and never return to WAITING.
func (s PaymentStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusRefunded
}

const (
	DefaultOrderTimeout = 10 * time.Minute
	DefaultCurrency     = "EUR"
)

type Order struct {
	ID         uuid.UUID
	SessionKey string
	Tickets    []Ticket
	Total      decimal.Decimal
	// Refunded is the amount paid back so far; a partial refund keeps the
	// order CONFIRMED.
	Refunded      decimal.Decimal
	Currency      string
	Status        PaymentStatus
	Variant       string
	PaymentSource string
	GatewayToken  string
	Billing       BillingInfo
	CreatedAt     time.Time
	ModifiedAt    time.Time
	Timeout       time.Duration
	IsConfirmed   bool
	// Version increases on every persisted mutation; the sweeper deletes
	// only the version it observed.
	Version int64
}

func NewOrder(sessionKey string, now time.Time, timeout time.Duration, currency string) *Order {
	if timeout <= 0 {
		timeout = DefaultOrderTimeout
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Order{
		ID:         uuid.New(),
		SessionKey: sessionKey,
		Total:      decimal.Zero,
		Refunded:   decimal.Zero,
		Currency:   currency,
		Status:     StatusWaiting,
		CreatedAt:  now,
		ModifiedAt: now,
		Timeout:    timeout,
	}
}

// IsExpired is false for terminal orders; otherwise true once more than
// Timeout has passed since the last modification.
func (o *Order) IsExpired(now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	return now.Sub(o.ModifiedAt) > o.Timeout
}

func (o *Order) Deadline() time.Time {
	return o.ModifiedAt.Add(o.Timeout)
}

func (o *Order) RemainingTime(now time.Time) time.Duration {
	if o.Status.Terminal() {
		return 0
	}
	remaining := o.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Touch extends the expiry deadline. Callers persist the order afterwards.
func (o *Order) Touch(now time.Time) {
	if now.After(o.ModifiedAt) {
		o.ModifiedAt = now
	}
}

// RecomputeTotal sums the current price of every owned ticket's price class.
func (o *Order) RecomputeTotal(prices map[uuid.UUID]decimal.Decimal) error {
	total := decimal.Zero
	for _, t := range o.Tickets {
		price, ok := prices[t.PriceClassID]
		if !ok {
			return fmt.Errorf("recompute total for ticket %s: %w", t.ID, ErrPriceClassNotFound)
		}
		total = total.Add(price)
	}
	o.Total = total
	return nil
}

// Balance is the paid amount not yet refunded.
func (o *Order) Balance() decimal.Decimal {
	return o.Total.Sub(o.Refunded)
}

func (o *Order) PriceClassIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Tickets))
	ids := make([]uuid.UUID, 0, len(o.Tickets))
	for _, t := range o.Tickets {
		if _, ok := seen[t.PriceClassID]; ok {
			continue
		}
		seen[t.PriceClassID] = struct{}{}
		ids = append(ids, t.PriceClassID)
	}
	return ids
}

func (o *Order) Ticket(id uuid.UUID) (Ticket, bool) {
	for _, t := range o.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return Ticket{}, false
}

func (o *Order) TicketIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(o.Tickets))
	for i, t := range o.Tickets {
		ids[i] = t.ID
	}
	return ids
}

func (o *Order) RequireStatus(op string, allowed ...PaymentStatus) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	return &StateError{OrderID: o.ID, Status: o.Status, Op: op}
}

func (o *Order) Clone() *Order {
	c := *o
	c.Tickets = make([]Ticket, len(o.Tickets))
	copy(c.Tickets, o.Tickets)
	for i := range c.Tickets {
		if o.Tickets[i].Seat != nil {
			seat := *o.Tickets[i].Seat
			c.Tickets[i].Seat = &seat
		}
	}
	return &c
}
