package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

var (
	ErrCarrierNotFound = errors.New("carrier not found")
	ErrServiceNotFound = errors.New("carrier service not found")
)

// Repository is the sqlite-backed carrier catalog and seller shipping preferences.
type Repository struct {
	db *sql.DB
	sf singleflight.Group
}

var _ shipping.Catalog = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{MigrationsTable: "catalog_schema_migrations"})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// ActiveCarriers returns globally active carriers in display order.
// Concurrent callers share one query.
func (r *Repository) ActiveCarriers(ctx context.Context) ([]domain.Carrier, error) {
	v, err, _ := r.sf.Do("active-carriers", func() (interface{}, error) {
		return r.queryCarriers(ctx, `
			SELECT code, name, active
			FROM carriers
			WHERE active = 1
			ORDER BY sort_order, code
		`)
	})
	if err != nil {
		return nil, err
	}
	carriers := v.([]domain.Carrier)
	out := make([]domain.Carrier, len(carriers))
	copy(out, carriers)
	return out, nil
}

// Carrier looks up one carrier regardless of its active flag.
func (r *Repository) Carrier(ctx context.Context, code string) (domain.Carrier, error) {
	carriers, err := r.queryCarriers(ctx, `
		SELECT code, name, active
		FROM carriers
		WHERE code = ?
	`, code)
	if err != nil {
		return domain.Carrier{}, err
	}
	if len(carriers) == 0 {
		return domain.Carrier{}, fmt.Errorf("%w: %s", ErrCarrierNotFound, code)
	}
	return carriers[0], nil
}

func (r *Repository) queryCarriers(ctx context.Context, query string, args ...any) ([]domain.Carrier, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query carriers: %w", err)
	}
	defer rows.Close()

	var carriers []domain.Carrier
	for rows.Next() {
		var c domain.Carrier
		if err := rows.Scan(&c.Code, &c.Name, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan carrier: %w", err)
		}
		carriers = append(carriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return carriers, nil
}

// CarrierServices lists every service of a carrier, active or not.
func (r *Repository) CarrierServices(ctx context.Context, carrierCode string) ([]domain.CarrierService, error) {
	query := `
		SELECT carrier_code, code, name, active
		FROM carrier_services
		WHERE carrier_code = ?
		ORDER BY code
	`

	rows, err := r.db.QueryContext(ctx, query, carrierCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query carrier services: %w", err)
	}
	defer rows.Close()

	var services []domain.CarrierService
	for rows.Next() {
		var s domain.CarrierService
		if err := rows.Scan(&s.CarrierCode, &s.Code, &s.Name, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan carrier service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return services, nil
}

func (r *Repository) CarrierPreferences(ctx context.Context, sellerID string) (map[string]shipping.Preference, error) {
	return r.queryPreferences(ctx, `
		SELECT carrier_code, enabled
		FROM seller_carrier_preferences
		WHERE seller_id = ?
	`, sellerID)
}

func (r *Repository) ServicePreferences(ctx context.Context, sellerID, carrierCode string) (map[string]shipping.Preference, error) {
	return r.queryPreferences(ctx, `
		SELECT service_code, enabled
		FROM seller_service_preferences
		WHERE seller_id = ? AND carrier_code = ?
	`, sellerID, carrierCode)
}

func (r *Repository) queryPreferences(ctx context.Context, query string, args ...any) (map[string]shipping.Preference, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]shipping.Preference)
	for rows.Next() {
		var (
			code    string
			enabled bool
		)
		if err := rows.Scan(&code, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs[code] = shipping.PreferenceOf(enabled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return prefs, nil
}

// SetCarrierPreference records an explicit enable/disable for a seller.
func (r *Repository) SetCarrierPreference(ctx context.Context, sellerID, carrierCode string, enabled bool) error {
	if _, err := r.Carrier(ctx, carrierCode); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seller_carrier_preferences (seller_id, carrier_code, enabled, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (seller_id, carrier_code)
		DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`, sellerID, carrierCode, enabled)
	if err != nil {
		return fmt.Errorf("failed to save carrier preference: %w", err)
	}
	return nil
}

// SetServicePreference records an explicit enable/disable of one carrier service.
func (r *Repository) SetServicePreference(ctx context.Context, sellerID, carrierCode, serviceCode string, enabled bool) error {
	services, err := r.CarrierServices(ctx, carrierCode)
	if err != nil {
		return err
	}
	found := false
	for _, s := range services {
		if strings.EqualFold(s.Code, serviceCode) {
			serviceCode = s.Code
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s/%s", ErrServiceNotFound, carrierCode, serviceCode)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO seller_service_preferences (seller_id, carrier_code, service_code, enabled, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (seller_id, carrier_code, service_code)
		DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`, sellerID, carrierCode, serviceCode, enabled)
	if err != nil {
		return fmt.Errorf("failed to save service preference: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
