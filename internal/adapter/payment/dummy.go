package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
)

const DummyName = "dummy"

var ErrDummyDeclined = errors.New("dummy gateway declined the payment")

type DummyConfig struct {
	Name            string
	RequiresPreauth bool
	HostedInput     bool
	FailAuthorize   bool
	FailCapture     bool
}

// Dummy is a local gateway for development and tests. It records every
// call it receives.
type Dummy struct {
	cfg DummyConfig

	mu         sync.Mutex
	authorized int
	captured   int
	refunded   int
}

func NewDummy(cfg DummyConfig) *Dummy {
	if cfg.Name == "" {
		cfg.Name = DummyName
	}
	return &Dummy{cfg: cfg}
}

func (d *Dummy) Name() string { return d.cfg.Name }

func (d *Dummy) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		RequiresPreauth: d.cfg.RequiresPreauth,
		HostedInput:     d.cfg.HostedInput,
	}
}

func (d *Dummy) Authorize(ctx context.Context, order *domain.Order) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.FailAuthorize {
		return "", ErrDummyDeclined
	}
	d.authorized++
	return "dummy-auth-" + uuid.NewString(), nil
}

func (d *Dummy) Capture(ctx context.Context, order *domain.Order, token string) (domain.CaptureResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.FailCapture {
		return domain.CaptureResult{}, ErrDummyDeclined
	}
	d.captured++

	result := domain.CaptureResult{Settlement: domain.SettlementComplete}
	if token == "" {
		result.Token = "dummy-charge-" + uuid.NewString()
	}
	return result, nil
}

func (d *Dummy) Refund(ctx context.Context, order *domain.Order, token string, amount *decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refunded++
	return nil
}

// Calls returns how many authorize, capture and refund calls succeeded.
func (d *Dummy) Calls() (authorized, captured, refunded int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authorized, d.captured, d.refunded
}
