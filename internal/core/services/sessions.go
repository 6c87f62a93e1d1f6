package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/logging"
)

type OrderConfig struct {
	Timeout              time.Duration
	Currency             string
	AllowDeleteConfirmed bool
}

func (c OrderConfig) withDefaults() OrderConfig {
	if c.Timeout <= 0 {
		c.Timeout = domain.DefaultOrderTimeout
	}
	if c.Currency == "" {
		c.Currency = domain.DefaultCurrency
	}
	return c
}

// SessionMap binds session keys to at most one active order.
type SessionMap struct {
	store   ports.Store
	ledger  *Ledger
	retired ports.SessionStore
	clock   clock.Clock
	cfg     OrderConfig
	log     *slog.Logger

	// onReplaced runs after an expired order was replaced and the change
	// committed.
	onReplaced func(ctx context.Context, expired *domain.Order)
}

func NewSessionMap(store ports.Store, ledger *Ledger, retired ports.SessionStore, clk clock.Clock, cfg OrderConfig, logger *slog.Logger) *SessionMap {
	return &SessionMap{
		store:   store,
		ledger:  ledger,
		retired: retired,
		clock:   clk,
		cfg:     cfg.withDefaults(),
		log:     logger,
	}
}

func NewSessionKey() string {
	return uuid.NewString()
}

func ValidateSessionKey(key string) error {
	if len(key) < 8 || len(key) > 128 {
		return domain.ErrSessionKeyFormat
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return domain.ErrSessionKeyFormat
		}
	}
	return nil
}

// GetOrCreateOrder returns the session's live order, replacing an expired
// one. Concurrent calls for the same key observe the same order.
func (m *SessionMap) GetOrCreateOrder(ctx context.Context, sessionKey string) (*domain.Order, error) {
	if err := m.checkKey(ctx, sessionKey); err != nil {
		return nil, err
	}

	var order, replaced *domain.Order
	err := m.store.WithTx(ctx, func(tx ports.Tx) error {
		now := m.clock.Now()

		existing, err := tx.GetOrderBySession(ctx, sessionKey)
		switch {
		case err == nil:
			if existing.Status.Terminal() {
				return domain.ErrSessionRetired
			}
			if !existing.IsExpired(now) {
				order = existing
				return nil
			}
			if err := m.ledger.Release(ctx, tx, existing.Tickets); err != nil {
				return err
			}
			if err := tx.DeleteOrder(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete expired order: %w", err)
			}
			replaced = existing
			m.log.Info("replaced expired order",
				slog.String("order_id", existing.ID.String()),
				slog.String("session_key", logging.SessionTag(sessionKey)),
			)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		created := domain.NewOrder(sessionKey, now, m.cfg.Timeout, m.cfg.Currency)
		inserted, err := tx.InsertOrder(ctx, created)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if inserted {
			order = created
			return nil
		}

		winner, err := tx.GetOrderBySession(ctx, sessionKey)
		if err != nil {
			return fmt.Errorf("re-read order after conflict: %w", err)
		}
		order = winner
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replaced != nil && m.onReplaced != nil {
		m.onReplaced(ctx, replaced)
	}
	return order, nil
}

// Lookup resolves the session's order without creating one.
func (m *SessionMap) Lookup(ctx context.Context, sessionKey string) (uuid.UUID, error) {
	if err := m.checkKey(ctx, sessionKey); err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err := m.store.WithTx(ctx, func(tx ports.Tx) error {
		o, err := tx.GetOrderBySession(ctx, sessionKey)
		if err != nil {
			return err
		}
		id = o.ID
		return nil
	})
	return id, err
}

// RotateSession retires oldKey and issues a fresh key, so the next
// GetOrCreateOrder starts a new order.
func (m *SessionMap) RotateSession(ctx context.Context, oldKey string) (string, error) {
	if err := ValidateSessionKey(oldKey); err != nil {
		return "", err
	}
	if err := m.retired.Retire(ctx, oldKey); err != nil {
		return "", fmt.Errorf("retire session: %w", err)
	}

	newKey := NewSessionKey()
	m.log.Info("session rotated",
		slog.String("old_session", logging.SessionTag(oldKey)),
		slog.String("new_session", logging.SessionTag(newKey)),
	)
	return newKey, nil
}

func (m *SessionMap) checkKey(ctx context.Context, sessionKey string) error {
	if err := ValidateSessionKey(sessionKey); err != nil {
		return err
	}
	retired, err := m.retired.IsRetired(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("check retired session: %w", err)
	}
	if retired {
		return domain.ErrSessionRetired
	}
	return nil
}
