package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderConfirmed struct {
	OrderID      uuid.UUID       `json:"order_id"`
	BillingEmail string          `json:"billing_email"`
	IsConfirmed  bool            `json:"is_confirmed"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	TicketIDs    []uuid.UUID     `json:"ticket_ids"`
}

// OrderNotifier hands confirmed orders to e-mail/PDF delivery. Its errors
// never affect order state.
type OrderNotifier interface {
	NotifyOrderConfirmed(ctx context.Context, event OrderConfirmed) error
}
