package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

const selectEvent = `
	SELECT id, name, start_time, duration_seconds, venue_seats, custom_seats, tracks_seats,
		is_active, allow_presale, presale_ends_before_seconds, allow_door_selling
	FROM events
	WHERE id = $1
	`

func (r *repo) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	return r.getEvent(ctx, selectEvent, eventID)
}

func (r *repo) LockEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	return r.getEvent(ctx, selectEvent+" FOR UPDATE", eventID)
}

func (r *repo) getEvent(ctx context.Context, query string, eventID uuid.UUID) (*domain.Event, error) {
	var (
		event         domain.Event
		duration      int64
		presaleBefore int64
		customSeats   sql.NullInt64
	)

	err := r.tx.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Name,
		&event.StartTime,
		&duration,
		&event.VenueSeats,
		&customSeats,
		&event.TracksSeats,
		&event.IsActive,
		&event.AllowPresale,
		&presaleBefore,
		&event.AllowDoorSelling,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to read event: %w", err)
	}

	event.Duration = time.Duration(duration) * time.Second
	event.PresaleEndsBefore = time.Duration(presaleBefore) * time.Second
	if customSeats.Valid {
		seats := int(customSeats.Int64)
		event.CustomSeats = &seats
	}

	rows, err := r.tx.QueryContext(ctx, `SELECT price_class_id FROM event_price_classes WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to read event price classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		event.PriceClassIDs = append(event.PriceClassIDs, id)
	}

	return &event, rows.Err()
}

func (r *repo) GetPriceClass(ctx context.Context, priceClassID uuid.UUID) (*domain.PriceClass, error) {
	query := `
	SELECT id, name, price, secret, notification_message
	FROM price_classes
	WHERE id = $1
	`

	var pc domain.PriceClass
	err := r.tx.QueryRowContext(ctx, query, priceClassID).Scan(
		&pc.ID,
		&pc.Name,
		&pc.Price,
		&pc.Secret,
		&pc.NotificationMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPriceClassNotFound
		}
		return nil, fmt.Errorf("failed to read price class: %w", err)
	}

	return &pc, nil
}

func (r *repo) PriceClassPrices(ctx context.Context, priceClassIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	prices := make(map[uuid.UUID]decimal.Decimal, len(priceClassIDs))
	if len(priceClassIDs) == 0 {
		return prices, nil
	}

	rows, err := r.tx.QueryContext(ctx, `SELECT id, price FROM price_classes WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(priceClassIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uuid.UUID
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range priceClassIDs {
		if _, ok := prices[id]; !ok {
			return nil, fmt.Errorf("price class %s: %w", id, domain.ErrPriceClassNotFound)
		}
	}
	return prices, nil
}

// SaveEvent upserts reference data. Used by the catalog loader.
func (s *Store) SaveEvent(ctx context.Context, event domain.Event, priceClasses []domain.PriceClass) error {
	return s.withRawTx(ctx, func(tx *sql.Tx) error {
		for _, pc := range priceClasses {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO price_classes (id, name, price, secret, notification_message)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, secret = EXCLUDED.secret,
				notification_message = EXCLUDED.notification_message
			`, pc.ID, pc.Name, pc.Price, pc.Secret, pc.NotificationMessage)
			if err != nil {
				return fmt.Errorf("failed to save price class %s: %w", pc.Name, err)
			}
		}

		var customSeats sql.NullInt64
		if event.CustomSeats != nil {
			customSeats = sql.NullInt64{Int64: int64(*event.CustomSeats), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, name, start_time, duration_seconds, venue_seats, custom_seats, tracks_seats,
			is_active, allow_presale, presale_ends_before_seconds, allow_door_selling)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, start_time = EXCLUDED.start_time, duration_seconds = EXCLUDED.duration_seconds,
			venue_seats = EXCLUDED.venue_seats, custom_seats = EXCLUDED.custom_seats,
			tracks_seats = EXCLUDED.tracks_seats, is_active = EXCLUDED.is_active,
			allow_presale = EXCLUDED.allow_presale,
			presale_ends_before_seconds = EXCLUDED.presale_ends_before_seconds,
			allow_door_selling = EXCLUDED.allow_door_selling
		`,
			event.ID, event.Name, event.StartTime, int64(event.Duration/time.Second), event.VenueSeats, customSeats,
			event.TracksSeats, event.IsActive, event.AllowPresale, int64(event.PresaleEndsBefore/time.Second),
			event.AllowDoorSelling,
		)
		if err != nil {
			return fmt.Errorf("failed to save event %s: %w", event.Name, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM event_price_classes WHERE event_id = $1`, event.ID); err != nil {
			return err
		}
		ids := event.PriceClassIDs
		for _, pc := range priceClasses {
			if !event.OffersPriceClass(pc.ID) {
				ids = append(ids, pc.ID)
			}
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `INSERT INTO event_price_classes (event_id, price_class_id) VALUES ($1, $2)`, event.ID, id); err != nil {
				return fmt.Errorf("failed to attach price class %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *Store) withRawTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
