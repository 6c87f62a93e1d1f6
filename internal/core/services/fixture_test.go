package services_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Kreolis/cinema-ticketing/internal/adapter/cache"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/payment"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/repository/memory"
	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/logging"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

const preauthName = "dummy_preauth"

type recordingNotifier struct {
	mu     sync.Mutex
	events []ports.OrderConfirmed
}

func (r *recordingNotifier) NotifyOrderConfirmed(ctx context.Context, event ports.OrderConfirmed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Events() []ports.OrderConfirmed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.OrderConfirmed(nil), r.events...)
}

type fixture struct {
	store    *memory.Store
	clock    *clock.Fake
	cache    *cache.Memory
	notifier *recordingNotifier
	ledger   *services.Ledger
	sessions *services.SessionMap
	orders   *services.OrderService
	sweeper  *services.Sweeper

	event   domain.Event
	regular domain.PriceClass
	premium domain.PriceClass

	immediate *payment.Dummy
	preauth   *payment.Dummy
	offline   *payment.Offline
}

type fixtureOptions struct {
	seats    int
	cfg      services.OrderConfig
	wrap     func(*memory.Store) ports.Store
	notifier ports.OrderNotifier
	variants []ports.PaymentVariant
}

func newFixture(t *testing.T, seats int) *fixture {
	return newFixtureWith(t, fixtureOptions{seats: seats})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	f := &fixture{
		store:     memory.NewStore(),
		clock:     clock.NewFake(t0),
		cache:     cache.NewMemory(),
		notifier:  &recordingNotifier{},
		immediate: payment.NewDummy(payment.DummyConfig{}),
		preauth:   payment.NewDummy(payment.DummyConfig{Name: preauthName, RequiresPreauth: true}),
		offline:   payment.NewOffline(""),
	}

	f.regular = domain.PriceClass{ID: uuid.New(), Name: "Regular", Price: decimal.RequireFromString("15.00")}
	f.premium = domain.PriceClass{ID: uuid.New(), Name: "Premium", Price: decimal.RequireFromString("25.00")}
	f.event = domain.Event{
		ID:                uuid.New(),
		Name:              "Premiere",
		StartTime:         t0.Add(7 * 24 * time.Hour),
		Duration:          2 * time.Hour,
		VenueSeats:        opts.seats,
		TracksSeats:       true,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
		AllowDoorSelling:  true,
	}
	f.store.AddEvent(f.event, f.regular, f.premium)

	store := ports.Store(f.store)
	if opts.wrap != nil {
		store = opts.wrap(f.store)
	}
	var notifier ports.OrderNotifier = f.notifier
	if opts.notifier != nil {
		notifier = opts.notifier
	}
	variants := opts.variants
	if variants == nil {
		variants = []ports.PaymentVariant{f.immediate, f.preauth, f.offline}
	}

	logger := logging.Discard()
	f.ledger = services.NewLedger(f.clock)
	f.sessions = services.NewSessionMap(store, f.ledger, f.cache, f.clock, opts.cfg, logger)
	f.orders = services.NewOrderService(services.Deps{
		Store:    store,
		Ledger:   f.ledger,
		Sessions: f.sessions,
		Variants: payment.NewRegistry(variants...),
		Notifier: notifier,
		Cache:    f.cache,
		Clock:    f.clock,
		Logger:   logger,
	}, opts.cfg)
	f.sweeper = services.NewSweeper(store, f.ledger, f.cache, f.clock, logger, 0)

	t.Cleanup(f.orders.WaitNotifications)
	return f
}

func (f *fixture) add(t *testing.T, session string, pc domain.PriceClass, qty int) *domain.Order {
	t.Helper()
	order, err := f.orders.AddTickets(context.Background(), session, services.TicketRequest{
		EventID:      f.event.ID,
		PriceClassID: pc.ID,
		Quantity:     qty,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) remaining(t *testing.T) int {
	t.Helper()
	n, err := f.orders.Availability(context.Background(), f.event.ID)
	require.NoError(t, err)
	return n
}

func billing() domain.BillingInfo {
	return domain.BillingInfo{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Address1:    "Kinoweg 1",
		City:        "Berlin",
		Postcode:    "10115",
		CountryCode: "de",
		Email:       "ada@example.com",
	}
}

func newSession() string {
	return services.NewSessionKey()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nopLogger() *slog.Logger {
	return logging.Discard()
}

func metricValue(t *testing.T, outcome string) float64 {
	t.Helper()
	return testutil.ToFloat64(metrics.Collectors.SweptOrders.WithLabelValues(outcome))
}
