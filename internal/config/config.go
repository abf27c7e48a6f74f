// Package config loads the order desk configuration: built-in defaults, then an optional
// YAML file, then ORDERDESK_ environment variables (nested keys joined with __).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fjod/order-desk/internal/breaker"
	"github.com/fjod/order-desk/internal/cart"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/location"
	"github.com/fjod/order-desk/internal/overlay"
	"github.com/fjod/order-desk/internal/publisher"
	"github.com/fjod/order-desk/internal/ratelookup"
	"github.com/fjod/order-desk/internal/repository"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ORDERDESK_"

type Config struct {
	HTTP struct {
		Addr               string        `koanf:"addr"`
		ReadTimeout        time.Duration `koanf:"read_timeout"`
		WriteTimeout       time.Duration `koanf:"write_timeout"`
		IdleTimeout        time.Duration `koanf:"idle_timeout"`
		RequestTimeout     time.Duration `koanf:"request_timeout"`
		ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
		MaxRequestBodySize int64         `koanf:"max_request_body_size"`
	} `koanf:"http"`

	GRPC struct {
		Addr string `koanf:"addr"`
	} `koanf:"grpc"`

	Postgres repository.Credentials `koanf:"postgres"`

	Mongo cart.MongoConfig `koanf:"mongo"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	SQLite struct {
		Path       string `koanf:"path"`
		Migrations string `koanf:"migrations"`
	} `koanf:"sqlite"`

	Kafka publisher.Config `koanf:"kafka"`

	Rates    ratelookup.Config `koanf:"rates"`
	Location location.Config   `koanf:"location"`
	Invoice  invoice.Config    `koanf:"invoice"`

	Overlay struct {
		// Backend is "redis" or "memory".
		Backend string        `koanf:"backend"`
		TTL     time.Duration `koanf:"ttl"`
	} `koanf:"overlay"`

	Checkout struct {
		OriginDistrict string `koanf:"origin_district"`
	} `koanf:"checkout"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// Default returns the configuration used for local runs.
func Default() Config {
	var c Config
	c.HTTP.Addr = ":8080"
	c.HTTP.ReadTimeout = 10 * time.Second
	c.HTTP.WriteTimeout = 30 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.RequestTimeout = 20 * time.Second
	c.HTTP.ShutdownTimeout = 10 * time.Second
	c.HTTP.MaxRequestBodySize = 1 << 20

	c.GRPC.Addr = ":50060"

	c.Postgres = repository.Credentials{
		Host:              "localhost",
		Port:              5432,
		User:              "orderdesk",
		Password:          "orderdesk",
		DBName:            "orderdesk",
		SSLMode:           "disable",
		MigrationsDirPath: "internal/repository/migrations",
	}

	c.Mongo = cart.DefaultMongoConfig()

	c.Redis.Addr = "localhost:6379"

	c.SQLite.Path = "./data/catalog.db"
	c.SQLite.Migrations = "internal/catalog/migrations"

	c.Kafka = publisher.Config{
		Brokers:   []string{"localhost:9092"},
		Topic:     publisher.DefaultTopic,
		Interval:  time.Second,
		BatchSize: 100,
	}

	c.Rates = ratelookup.Config{BaseURL: "http://localhost:8091", Timeout: 5 * time.Second, Breaker: breaker.DefaultConfig()}
	c.Location = location.Config{BaseURL: "http://localhost:8092", Timeout: 3 * time.Second, Breaker: breaker.DefaultConfig()}
	c.Invoice = invoice.Config{BaseURL: "http://localhost:8093", Timeout: 10 * time.Second, Breaker: breaker.DefaultConfig()}

	c.Overlay.Backend = "redis"
	c.Overlay.TTL = overlay.DefaultTTL

	c.Log.Level = "info"
	return c
}

// Load reads path (skipped when empty) and the environment over the defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// e.g. ORDERDESK_POSTGRES__HOST, ORDERDESK_RATES__API_KEY
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return fmt.Errorf("http.addr required")
	case c.Postgres.Host == "" || c.Postgres.DBName == "":
		return fmt.Errorf("postgres.host and postgres.dbname required")
	case c.SQLite.Path == "":
		return fmt.Errorf("sqlite.path required")
	case len(c.Kafka.Brokers) == 0:
		return fmt.Errorf("kafka.brokers required")
	case c.Rates.BaseURL == "":
		return fmt.Errorf("rates.base_url required")
	case c.Checkout.OriginDistrict == "":
		return fmt.Errorf("checkout.origin_district required")
	}
	if err := c.Mongo.Validate(); err != nil {
		return err
	}
	switch c.Overlay.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr required for the redis overlay")
		}
	case "memory":
	default:
		return fmt.Errorf("overlay.backend must be redis or memory, got %q", c.Overlay.Backend)
	}
	return nil
}
