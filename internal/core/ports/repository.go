package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

// Store runs fn in a single transaction. fn's error rolls everything back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	EventRepository
	TicketRepository
	OrderRepository
}

type EventRepository interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	// LockEvent reads the event and holds a write lock on it until the
	// transaction ends. Seat allocation for the event is serialized on it.
	LockEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	GetPriceClass(ctx context.Context, priceClassID uuid.UUID) (*domain.PriceClass, error)
	PriceClassPrices(ctx context.Context, priceClassIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type TicketRepository interface {
	CountActiveTickets(ctx context.Context, eventID uuid.UUID) (int, error)
	MaxSeat(ctx context.Context, eventID uuid.UUID) (int, error)
	InsertTickets(ctx context.Context, tickets []domain.Ticket) error
	UpdateTickets(ctx context.Context, tickets []domain.Ticket) error
	DeleteTickets(ctx context.Context, ticketIDs []uuid.UUID) error
}

type ExpiryCandidate struct {
	OrderID uuid.UUID
	Version int64
}

type OrderFilter struct {
	Status      *domain.PaymentStatus
	IsConfirmed *bool
}

type OrderRepository interface {
	// GetOrder and GetOrderBySession lock the order row and load its tickets.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetOrderBySession(ctx context.Context, sessionKey string) (*domain.Order, error)
	// InsertOrder returns false without error when another order already
	// holds the session key.
	InsertOrder(ctx context.Context, order *domain.Order) (bool, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ListExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]ExpiryCandidate, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
}
