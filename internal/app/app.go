// Package app wires configuration into the stores, gateways and services
// shared by the API server and the sweeper command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/Kreolis/cinema-ticketing/internal/adapter/cache"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/handler"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/notifier"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/payment"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/repository/memory"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/repository/postgres"
	"github.com/Kreolis/cinema-ticketing/internal/config"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/catalog"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/database"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db        *sql.DB
	redis     *redis.Client
	publisher *notifier.Publisher

	store    ports.Store
	sink     catalog.Sink
	clock    clock.Clock
	Sessions *services.SessionMap
	Orders   *services.OrderService
	Sweeper  *services.Sweeper
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger, clock: clock.Real{}}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := a.initCatalog(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	if err := a.initServices(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init services: %w", err)
	}
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case "memory":
		mem := memory.NewStore()
		a.store, a.sink = mem, mem
		a.log.Warn("using in-memory storage, data is lost on exit")
		return nil
	default:
		db, err := database.NewPostgresDB(ctx, a.cfg.Postgres.Database(), a.log)
		if err != nil {
			return err
		}
		a.db = db

		if a.cfg.Postgres.Migrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
			a.log.Info("database migrations applied")
		}

		pg := postgres.NewStore(db)
		a.store, a.sink = pg, pg
		return nil
	}
}

func (a *App) initCatalog(ctx context.Context) error {
	if a.cfg.CatalogFile == "" {
		return nil
	}

	entries, err := catalog.Load(a.cfg.CatalogFile)
	if err != nil {
		return err
	}
	if err := catalog.Apply(ctx, a.sink, entries); err != nil {
		return err
	}
	a.log.Info("catalog loaded", slog.String("file", a.cfg.CatalogFile), slog.Int("events", len(entries)))
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	availability, retired, err := a.initCache(ctx)
	if err != nil {
		return err
	}

	notify, err := a.initNotifier()
	if err != nil {
		return err
	}

	variants, err := a.initPayments()
	if err != nil {
		return err
	}

	orderCfg := services.OrderConfig{
		Timeout:              a.cfg.Order.Timeout,
		Currency:             a.cfg.Order.Currency,
		AllowDeleteConfirmed: a.cfg.Order.AllowDeleteConfirmed,
	}

	ledger := services.NewLedger(a.clock)
	a.Sessions = services.NewSessionMap(a.store, ledger, retired, a.clock, orderCfg, a.log)
	a.Orders = services.NewOrderService(services.Deps{
		Store:    a.store,
		Ledger:   ledger,
		Sessions: a.Sessions,
		Variants: variants,
		Notifier: notify,
		Cache:    availability,
		Clock:    a.clock,
		Logger:   a.log,
	}, orderCfg)
	a.Sweeper = services.NewSweeper(a.store, ledger, availability, a.clock, a.log, a.cfg.Sweeper.Batch)
	return nil
}

func (a *App) initCache(ctx context.Context) (ports.AvailabilityCache, ports.SessionStore, error) {
	if a.cfg.Redis.Addr == "" {
		mem := cache.NewMemory()
		return mem, mem, nil
	}

	a.log.Info("connecting to redis", slog.String("addr", a.cfg.Redis.Addr))
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return cache.NewRedisAvailability(a.redis, a.cfg.Redis.AvailabilityTTL),
		cache.NewRedisSessions(a.redis, a.cfg.Redis.RetiredTTL),
		nil
}

func (a *App) initNotifier() (ports.OrderNotifier, error) {
	if a.cfg.RabbitMQ.URL == "" {
		return notifier.NewLog(a.log), nil
	}

	pub, err := notifier.NewPublisher(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange)
	if err != nil {
		return nil, err
	}
	a.publisher = pub
	a.log.Info("publishing order events", slog.String("exchange", a.cfg.RabbitMQ.Exchange))
	return pub, nil
}

func (a *App) initPayments() (*payment.Registry, error) {
	registry := payment.NewRegistry()

	if a.cfg.Payment.Offline {
		registry.Register(payment.NewOffline(""))
	}
	if a.cfg.Payment.Dummy {
		registry.Register(payment.NewDummy(payment.DummyConfig{RequiresPreauth: a.cfg.Payment.DummyPreauth}))
	}
	if a.cfg.Payment.OmiseSecretKey != "" {
		api, err := payment.NewOmiseClient(a.cfg.Payment.OmisePublicKey, a.cfg.Payment.OmiseSecretKey)
		if err != nil {
			return nil, err
		}
		registry.Register(payment.NewOmiseCard(api, true))
		registry.Register(payment.NewOmiseCard(api, false))
	}

	names := registry.Names()
	if len(names) == 0 {
		return nil, errors.New("no payment variant enabled")
	}
	a.log.Info("payment variants enabled", slog.Any("variants", names))
	return registry, nil
}

func (a *App) Handler() http.Handler {
	return handler.NewRouter(
		handler.NewOrderHandler(a.Orders, a.Sessions, a.clock, a.log),
		handler.NewAdminHandler(a.Orders, a.cfg.Server.AdminToken, a.clock, a.log),
		a.log,
	)
}

// Close waits for queued notifications, then releases connections.
func (a *App) Close() {
	if a.Orders != nil {
		a.Orders.WaitNotifications()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("closing rabbitmq", slog.Any("error", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("closing redis", slog.Any("error", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing database", slog.Any("error", err))
		}
	}
}
