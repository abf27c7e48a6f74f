// Package repository is the Postgres store for orders, buyers, payment methods and the outbox.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrDuplicateOrderNumber  = errors.New("order number already issued")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

type Credentials struct {
	Host              string `koanf:"host"`
	Port              int    `koanf:"port"`
	User              string `koanf:"user"`
	Password          string `koanf:"password"`
	DBName            string `koanf:"dbname"`
	SSLMode           string `koanf:"sslmode"`
	MigrationsDirPath string `koanf:"migrations"`
}

func (c *Credentials) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		sslMode)
}

type Repository struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

func NewRepository(cred *Credentials, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cred.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	logger.Info("connected to postgres", zap.String("host", cred.Host), zap.String("db", cred.DBName))
	return &Repository{db: db, now: time.Now, logger: logger}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "order_desk_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Ping is used by the health check.
func (r *Repository) Ping() error {
	return r.db.Ping()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
