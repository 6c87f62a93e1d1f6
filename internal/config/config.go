package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Kreolis/cinema-ticketing/internal/platform/database"
)

type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Server   Server
	Storage  Storage
	Postgres Postgres
	Redis    Redis
	RabbitMQ RabbitMQ
	Order    Order
	Sweeper  Sweeper
	Payment  Payment

	CatalogFile string `envconfig:"CATALOG_FILE"`
}

type Server struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	AdminToken      string        `envconfig:"ADMIN_TOKEN"`
}

type Storage struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
}

type Postgres struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Name            string        `envconfig:"DB_NAME" default:"cinema_ticketing"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	Migrate         bool          `envconfig:"DB_MIGRATE" default:"true"`
}

func (p Postgres) Database() database.Config {
	return database.Config{
		Host:            p.Host,
		Port:            p.Port,
		User:            p.User,
		Password:        p.Password,
		DBName:          p.Name,
		SSLMode:         p.SSLMode,
		MaxOpenConns:    p.MaxOpenConns,
		MaxIdleConns:    p.MaxIdleConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
	}
}

type Redis struct {
	Addr            string        `envconfig:"REDIS_ADDR"`
	Password        string        `envconfig:"REDIS_PASSWORD"`
	DB              int           `envconfig:"REDIS_DB" default:"0"`
	AvailabilityTTL time.Duration `envconfig:"REDIS_AVAILABILITY_TTL" default:"30s"`
	RetiredTTL      time.Duration `envconfig:"REDIS_RETIRED_SESSION_TTL" default:"336h"`
}

type RabbitMQ struct {
	URL      string `envconfig:"RABBITMQ_URL"`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"orders"`
}

type Order struct {
	Timeout              time.Duration `envconfig:"ORDER_TIMEOUT" default:"10m"`
	Currency             string        `envconfig:"ORDER_CURRENCY" default:"EUR"`
	AllowDeleteConfirmed bool          `envconfig:"ORDER_ALLOW_DELETE_CONFIRMED" default:"false"`
}

type Sweeper struct {
	Enabled  bool          `envconfig:"SWEEPER_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SWEEPER_INTERVAL" default:"10m"`
	Batch    int           `envconfig:"SWEEPER_BATCH" default:"500"`
}

type Payment struct {
	Offline        bool   `envconfig:"PAYMENT_OFFLINE_ENABLED" default:"true"`
	Dummy          bool   `envconfig:"PAYMENT_DUMMY_ENABLED" default:"false"`
	DummyPreauth   bool   `envconfig:"PAYMENT_DUMMY_PREAUTH" default:"true"`
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY"`
}

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Order.Timeout <= 0 {
		return errors.New("ORDER_TIMEOUT must be positive")
	}
	if len(c.Order.Currency) != 3 {
		return fmt.Errorf("ORDER_CURRENCY %q is not an ISO 4217 code", c.Order.Currency)
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return errors.New("SWEEPER_INTERVAL must be positive")
	}
	if (c.Payment.OmisePublicKey == "") != (c.Payment.OmiseSecretKey == "") {
		return errors.New("OMISE_PUBLIC_KEY and OMISE_SECRET_KEY must be set together")
	}
	return nil
}
