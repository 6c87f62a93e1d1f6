package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/database"
)

// Runs against a disposable database named by TEST_DATABASE_URL.
func openStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return NewStore(db)
}

func seedEvent(t *testing.T, s *Store, seats int) (domain.Event, domain.PriceClass) {
	t.Helper()

	pc := domain.PriceClass{ID: uuid.New(), Name: "Regular " + uuid.NewString()[:8], Price: decimal.RequireFromString("11.00")}
	event := domain.Event{
		ID:          uuid.New(),
		Name:        "Matinee",
		StartTime:   time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		Duration:    90 * time.Minute,
		VenueSeats:  seats,
		TracksSeats: true,
		IsActive:    true,
	}
	require.NoError(t, s.SaveEvent(context.Background(), event, []domain.PriceClass{pc}))
	return event, pc
}

func TestStore_OrderLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	event, pc := seedEvent(t, s, 3)

	now := time.Now().UTC().Truncate(time.Second)
	order := domain.NewOrder(uuid.NewString(), now, time.Minute, "")
	seat := 1

	err := s.WithTx(ctx, func(tx ports.Tx) error {
		ok, err := tx.InsertOrder(ctx, order)
		require.True(t, ok)
		if err != nil {
			return err
		}
		return tx.InsertTickets(ctx, []domain.Ticket{{
			ID: uuid.New(), EventID: event.ID, PriceClassID: pc.ID, OrderID: order.ID,
			Seat: &seat, SoldAs: domain.SoldAsWaiting, CreatedAt: now,
		}})
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx ports.Tx) error {
		dup := domain.NewOrder(order.SessionKey, now, time.Minute, "")
		ok, err := tx.InsertOrder(ctx, dup)
		assert.False(t, ok)
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx ports.Tx) error {
		got, err := tx.GetOrderBySession(ctx, order.SessionKey)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		require.Len(t, got.Tickets, 1)
		assert.Equal(t, 1, *got.Tickets[0].Seat)

		n, err := tx.CountActiveTickets(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		top, err := tx.MaxSeat(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, top)

		prices, err := tx.PriceClassPrices(ctx, []uuid.UUID{pc.ID})
		require.NoError(t, err)
		assert.True(t, prices[pc.ID].Equal(pc.Price))
		return nil
	})
	require.NoError(t, err)

	var candidates []ports.ExpiryCandidate
	err = s.WithTx(ctx, func(tx ports.Tx) error {
		candidates, err = tx.ListExpiryCandidates(ctx, now.Add(2*time.Minute), 0)
		return err
	})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.OrderID)
	}
	assert.Contains(t, ids, order.ID)

	err = s.WithTx(ctx, func(tx ports.Tx) error {
		return tx.DeleteOrder(ctx, order.ID)
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx ports.Tx) error {
		n, err := tx.CountActiveTickets(ctx, event.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = tx.GetOrder(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SeatUniqueWithinEvent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	event, pc := seedEvent(t, s, 2)

	now := time.Now().UTC()
	order := domain.NewOrder(uuid.NewString(), now, time.Minute, "")
	seat := 1
	ticket := func() domain.Ticket {
		return domain.Ticket{
			ID: uuid.New(), EventID: event.ID, PriceClassID: pc.ID, OrderID: order.ID,
			Seat: &seat, SoldAs: domain.SoldAsWaiting, CreatedAt: now,
		}
	}

	err := s.WithTx(ctx, func(tx ports.Tx) error {
		if _, err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.InsertTickets(ctx, []domain.Ticket{ticket(), ticket()})
	})
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	err = s.WithTx(ctx, func(tx ports.Tx) error {
		_, err := tx.GetOrder(ctx, order.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
