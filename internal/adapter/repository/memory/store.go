// Package memory is an in-process ports.Store used for local development
// and tests. Transactions are serialized by one mutex and run against a
// copy of the mutable tables that replaces the live tables on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
)

type Store struct {
	mu           sync.Mutex
	events       map[uuid.UUID]domain.Event
	priceClasses map[uuid.UUID]domain.PriceClass
	data         *tables
}

type tables struct {
	tickets  map[uuid.UUID]domain.Ticket
	orders   map[uuid.UUID]domain.Order
	sessions map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		events:       make(map[uuid.UUID]domain.Event),
		priceClasses: make(map[uuid.UUID]domain.PriceClass),
		data: &tables{
			tickets:  make(map[uuid.UUID]domain.Ticket),
			orders:   make(map[uuid.UUID]domain.Order),
			sessions: make(map[string]uuid.UUID),
		},
	}
}

// AddEvent registers reference data. Price classes are attached to the event.
func (s *Store) AddEvent(event domain.Event, priceClasses ...domain.PriceClass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pc := range priceClasses {
		s.priceClasses[pc.ID] = pc
		if !event.OffersPriceClass(pc.ID) {
			event.PriceClassIDs = append(event.PriceClassIDs, pc.ID)
		}
	}
	s.events[event.ID] = event
}

func (s *Store) SaveEvent(ctx context.Context, event domain.Event, priceClasses []domain.PriceClass) error {
	s.AddEvent(event, priceClasses...)
	return nil
}

// SetPrice changes a price class in place, as an administrator would.
func (s *Store) SetPrice(priceClassID uuid.UUID, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pc, ok := s.priceClasses[priceClassID]
	if !ok {
		return domain.ErrPriceClassNotFound
	}
	pc.Price = price
	s.priceClasses[priceClassID] = pc
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{store: s, t: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (t *tables) clone() *tables {
	c := &tables{
		tickets:  make(map[uuid.UUID]domain.Ticket, len(t.tickets)),
		orders:   make(map[uuid.UUID]domain.Order, len(t.orders)),
		sessions: make(map[string]uuid.UUID, len(t.sessions)),
	}
	for k, v := range t.tickets {
		c.tickets[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	return c
}

type tx struct {
	store *Store
	t     *tables
}

func (x *tx) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	e, ok := x.store.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	e.PriceClassIDs = append([]uuid.UUID(nil), e.PriceClassIDs...)
	return &e, nil
}

func (x *tx) LockEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	return x.GetEvent(ctx, eventID)
}

func (x *tx) GetPriceClass(ctx context.Context, priceClassID uuid.UUID) (*domain.PriceClass, error) {
	pc, ok := x.store.priceClasses[priceClassID]
	if !ok {
		return nil, domain.ErrPriceClassNotFound
	}
	return &pc, nil
}

func (x *tx) PriceClassPrices(ctx context.Context, priceClassIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	prices := make(map[uuid.UUID]decimal.Decimal, len(priceClassIDs))
	for _, id := range priceClassIDs {
		pc, ok := x.store.priceClasses[id]
		if !ok {
			return nil, fmt.Errorf("price class %s: %w", id, domain.ErrPriceClassNotFound)
		}
		prices[id] = pc.Price
	}
	return prices, nil
}

func (x *tx) CountActiveTickets(ctx context.Context, eventID uuid.UUID) (int, error) {
	n := 0
	for _, t := range x.t.tickets {
		if t.EventID == eventID && t.SoldAs != domain.SoldAsRefunded {
			n++
		}
	}
	return n, nil
}

func (x *tx) MaxSeat(ctx context.Context, eventID uuid.UUID) (int, error) {
	max := 0
	for _, t := range x.t.tickets {
		if t.EventID == eventID && t.Seat != nil && *t.Seat > max {
			max = *t.Seat
		}
	}
	return max, nil
}

func (x *tx) InsertTickets(ctx context.Context, tickets []domain.Ticket) error {
	for _, t := range tickets {
		if _, ok := x.t.tickets[t.ID]; ok {
			return fmt.Errorf("insert ticket %s: duplicate id", t.ID)
		}
		if t.Seat != nil {
			for _, other := range x.t.tickets {
				if other.EventID == t.EventID && other.Seat != nil && *other.Seat == *t.Seat {
					return fmt.Errorf("insert ticket %s: seat %d already taken", t.ID, *t.Seat)
				}
			}
		}
		if _, ok := x.t.orders[t.OrderID]; !ok {
			return fmt.Errorf("insert ticket %s: %w", t.ID, domain.ErrOrderNotFound)
		}
		x.t.tickets[t.ID] = copyTicket(t)
	}
	return nil
}

func (x *tx) UpdateTickets(ctx context.Context, tickets []domain.Ticket) error {
	for _, t := range tickets {
		if _, ok := x.t.tickets[t.ID]; !ok {
			return fmt.Errorf("update ticket %s: %w", t.ID, domain.ErrTicketNotFound)
		}
		x.t.tickets[t.ID] = copyTicket(t)
	}
	return nil
}

func (x *tx) DeleteTickets(ctx context.Context, ticketIDs []uuid.UUID) error {
	for _, id := range ticketIDs {
		delete(x.t.tickets, id)
	}
	return nil
}

func (x *tx) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, ok := x.t.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return x.withTickets(o), nil
}

func (x *tx) GetOrderBySession(ctx context.Context, sessionKey string) (*domain.Order, error) {
	id, ok := x.t.sessions[sessionKey]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return x.GetOrder(ctx, id)
}

func (x *tx) InsertOrder(ctx context.Context, order *domain.Order) (bool, error) {
	if _, taken := x.t.sessions[order.SessionKey]; taken {
		return false, nil
	}
	if _, dup := x.t.orders[order.ID]; dup {
		return false, fmt.Errorf("insert order %s: duplicate id", order.ID)
	}
	row := *order
	row.Tickets = nil
	x.t.orders[order.ID] = row
	x.t.sessions[order.SessionKey] = order.ID
	return true, nil
}

func (x *tx) UpdateOrder(ctx context.Context, order *domain.Order) error {
	old, ok := x.t.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if old.SessionKey != order.SessionKey {
		if owner, taken := x.t.sessions[order.SessionKey]; taken && owner != order.ID {
			return fmt.Errorf("update order %s: session key in use", order.ID)
		}
		delete(x.t.sessions, old.SessionKey)
		x.t.sessions[order.SessionKey] = order.ID
	}
	row := *order
	row.Tickets = nil
	x.t.orders[order.ID] = row
	return nil
}

func (x *tx) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	o, ok := x.t.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for id, t := range x.t.tickets {
		if t.OrderID == orderID {
			delete(x.t.tickets, id)
		}
	}
	delete(x.t.sessions, o.SessionKey)
	delete(x.t.orders, orderID)
	return nil
}

func (x *tx) ListExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]ports.ExpiryCandidate, error) {
	var out []ports.ExpiryCandidate
	for _, o := range x.t.orders {
		if o.IsExpired(now) {
			out = append(out, ports.ExpiryCandidate{OrderID: o.ID, Version: o.Version})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return x.t.orders[out[i].OrderID].ModifiedAt.Before(x.t.orders[out[j].OrderID].ModifiedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (x *tx) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range x.t.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.IsConfirmed != nil && o.IsConfirmed != *filter.IsConfirmed {
			continue
		}
		out = append(out, x.withTickets(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (x *tx) withTickets(o domain.Order) *domain.Order {
	order := o
	order.Tickets = nil
	for _, t := range x.t.tickets {
		if t.OrderID == o.ID {
			order.Tickets = append(order.Tickets, copyTicket(t))
		}
	}
	sort.Slice(order.Tickets, func(i, j int) bool {
		a, b := order.Tickets[i], order.Tickets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Seat != nil && b.Seat != nil && *a.Seat != *b.Seat {
			return *a.Seat < *b.Seat
		}
		return a.ID.String() < b.ID.String()
	})
	return &order
}

func copyTicket(t domain.Ticket) domain.Ticket {
	if t.Seat != nil {
		seat := *t.Seat
		t.Seat = &seat
	}
	return t
}
