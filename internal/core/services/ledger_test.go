package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kreolis/cinema-ticketing/internal/adapter/repository/memory"
	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
)

type ledgerFixture struct {
	store  *memory.Store
	clock  *clock.Fake
	ledger *services.Ledger
	order  uuid.UUID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{store: memory.NewStore(), clock: clock.NewFake(t0)}
	f.ledger = services.NewLedger(f.clock)

	order := domain.NewOrder(newSession(), t0, 0, "")
	f.order = order.ID
	err := f.store.WithTx(context.Background(), func(tx ports.Tx) error {
		_, err := tx.InsertOrder(context.Background(), order)
		return err
	})
	require.NoError(t, err)
	return f
}

func (f *ledgerFixture) reserve(req services.ReserveRequest) ([]domain.Ticket, error) {
	req.OrderID = f.order
	var tickets []domain.Ticket
	err := f.store.WithTx(context.Background(), func(tx ports.Tx) error {
		var err error
		tickets, err = f.ledger.Reserve(context.Background(), tx, req)
		return err
	})
	return tickets, err
}

func TestLedgerReserve_SaleWindows(t *testing.T) {
	f := newLedgerFixture(t)
	pc := domain.PriceClass{ID: uuid.New(), Name: "Regular", Price: dec("10.00")}
	event := domain.Event{
		ID:                uuid.New(),
		StartTime:         t0.Add(2 * time.Hour),
		Duration:          90 * time.Minute,
		VenueSeats:        10,
		TracksSeats:       true,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
		AllowDoorSelling:  true,
	}
	f.store.AddEvent(event, pc)

	_, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1})
	require.NoError(t, err)

	f.clock.Advance(61 * time.Minute)
	_, err = f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrEventClosed)

	tickets, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1, Door: true})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, 2, *tickets[0].Seat)

	f.clock.Advance(3 * time.Hour)
	_, err = f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1, Door: true})
	assert.ErrorIs(t, err, domain.ErrEventClosed)
}

func TestLedgerReserve_InactiveEvent(t *testing.T) {
	f := newLedgerFixture(t)
	pc := domain.PriceClass{ID: uuid.New(), Price: dec("10.00")}
	event := domain.Event{ID: uuid.New(), StartTime: t0.Add(48 * time.Hour), Duration: time.Hour, VenueSeats: 10, AllowPresale: true}
	f.store.AddEvent(event, pc)

	_, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrEventClosed)
}

func TestLedgerReserve_SecretPriceClassOnlyAtDoor(t *testing.T) {
	f := newLedgerFixture(t)
	guest := domain.PriceClass{ID: uuid.New(), Name: "Guest list", Price: dec("0.00"), Secret: true}
	event := domain.Event{
		ID:                uuid.New(),
		StartTime:         t0.Add(48 * time.Hour),
		Duration:          time.Hour,
		VenueSeats:        10,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
		AllowDoorSelling:  true,
	}
	f.store.AddEvent(event, guest)

	_, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: guest.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrPriceClassNotFound)

	tickets, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: guest.ID, Quantity: 2, Door: true})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestLedgerReserve_FreeSeatingAndCustomCapacity(t *testing.T) {
	f := newLedgerFixture(t)
	pc := domain.PriceClass{ID: uuid.New(), Price: dec("7.50")}
	custom := 3
	event := domain.Event{
		ID:                uuid.New(),
		StartTime:         t0.Add(48 * time.Hour),
		Duration:          time.Hour,
		VenueSeats:        100,
		CustomSeats:       &custom,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
	}
	f.store.AddEvent(event, pc)

	tickets, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 3})
	require.NoError(t, err)
	for _, tk := range tickets {
		assert.Nil(t, tk.Seat)
		assert.Equal(t, domain.SoldAsWaiting, tk.SoldAs)
	}

	_, err = f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 1})
	var cerr *domain.CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, cerr.Available)
	assert.Equal(t, 1, cerr.Requested)
}

func TestLedgerMarkSoldAndRelease(t *testing.T) {
	f := newLedgerFixture(t)
	pc := domain.PriceClass{ID: uuid.New(), Price: dec("10.00")}
	event := domain.Event{
		ID:                uuid.New(),
		StartTime:         t0.Add(48 * time.Hour),
		Duration:          time.Hour,
		VenueSeats:        4,
		TracksSeats:       true,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
	}
	f.store.AddEvent(event, pc)

	tickets, err := f.reserve(services.ReserveRequest{EventID: event.ID, PriceClassID: pc.ID, Quantity: 2})
	require.NoError(t, err)

	ctx := context.Background()
	err = f.store.WithTx(ctx, func(tx ports.Tx) error {
		sold, err := f.ledger.MarkSold(ctx, tx, tickets, domain.SoldAsPresaleOnline)
		require.NoError(t, err)
		for _, tk := range sold {
			assert.True(t, tk.IsSold())
		}
		assert.Equal(t, domain.SoldAsWaiting, tickets[0].SoldAs)

		remaining, err := f.ledger.Remaining(ctx, tx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)

		require.NoError(t, f.ledger.Release(ctx, tx, tickets))
		remaining, err = f.ledger.Remaining(ctx, tx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, remaining)
		return nil
	})
	require.NoError(t, err)
}
