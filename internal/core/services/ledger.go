package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

type ReserveRequest struct {
	EventID      uuid.UUID
	PriceClassID uuid.UUID
	Quantity     int
	OrderID      uuid.UUID
	// Door marks a box-office sale: secret price classes are allowed and
	// the presale window does not apply.
	Door bool
}

// Ledger allocates and reclaims tickets. All methods run inside the
// caller's transaction.
type Ledger struct {
	clock clock.Clock
}

func NewLedger(clk clock.Clock) *Ledger {
	return &Ledger{clock: clk}
}

func (l *Ledger) Reserve(ctx context.Context, tx ports.Tx, req ReserveRequest) ([]domain.Ticket, error) {
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}

	event, err := tx.LockEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	if req.Door {
		if !event.OpenForDoor(now) {
			return nil, domain.ErrEventClosed
		}
	} else if !event.OpenForPresale(now) {
		return nil, domain.ErrEventClosed
	}

	if !event.OffersPriceClass(req.PriceClassID) {
		return nil, domain.ErrPriceClassNotFound
	}
	priceClass, err := tx.GetPriceClass(ctx, req.PriceClassID)
	if err != nil {
		return nil, err
	}
	if priceClass.Secret && !req.Door {
		return nil, domain.ErrPriceClassNotFound
	}

	remaining, err := l.remaining(ctx, tx, event)
	if err != nil {
		return nil, err
	}
	if req.Quantity > remaining {
		return nil, &domain.CapacityError{EventID: event.ID, Requested: req.Quantity, Available: remaining}
	}

	nextSeat := 0
	if event.TracksSeats {
		if nextSeat, err = tx.MaxSeat(ctx, event.ID); err != nil {
			return nil, fmt.Errorf("read max seat: %w", err)
		}
	}

	tickets := make([]domain.Ticket, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		t := domain.Ticket{
			ID:           uuid.New(),
			EventID:      event.ID,
			PriceClassID: priceClass.ID,
			OrderID:      req.OrderID,
			SoldAs:       domain.SoldAsWaiting,
			CreatedAt:    now,
		}
		if event.TracksSeats {
			nextSeat++
			seat := nextSeat
			t.Seat = &seat
		}
		tickets = append(tickets, t)
	}

	if err := tx.InsertTickets(ctx, tickets); err != nil {
		return nil, fmt.Errorf("insert tickets: %w", err)
	}

	metrics.TicketsReserved(len(tickets))
	return tickets, nil
}

func (l *Ledger) Release(ctx context.Context, tx ports.Tx, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	if err := tx.DeleteTickets(ctx, ids); err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}

	metrics.TicketsReleased(len(tickets))
	return nil
}

// MarkSold moves tickets to channel and returns the updated copies.
func (l *Ledger) MarkSold(ctx context.Context, tx ports.Tx, tickets []domain.Ticket, channel domain.SaleChannel) ([]domain.Ticket, error) {
	sold := make([]domain.Ticket, len(tickets))
	copy(sold, tickets)

	var changed []domain.Ticket
	for i := range sold {
		if sold[i].SoldAs == channel {
			continue
		}
		sold[i].SoldAs = channel
		changed = append(changed, sold[i])
	}
	if len(changed) == 0 {
		return sold, nil
	}

	if err := tx.UpdateTickets(ctx, changed); err != nil {
		return nil, fmt.Errorf("mark tickets %s: %w", channel, err)
	}
	return sold, nil
}

// Remaining counts seats not held by any unreleased ticket, paid or not.
func (l *Ledger) Remaining(ctx context.Context, tx ports.Tx, eventID uuid.UUID) (int, error) {
	event, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return l.remaining(ctx, tx, event)
}

func (l *Ledger) remaining(ctx context.Context, tx ports.Tx, event *domain.Event) (int, error) {
	active, err := tx.CountActiveTickets(ctx, event.ID)
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}

	remaining := event.TotalSeats() - active
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
