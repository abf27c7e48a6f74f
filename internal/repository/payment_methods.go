package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/order-desk/domain"
	"github.com/google/uuid"
)

func (r *Repository) GetPaymentMethod(ctx context.Context, sellerID, id string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := r.db.QueryRowContext(ctx, `
		SELECT id, seller_id, name, is_active
		FROM payment_methods
		WHERE id = $1 AND seller_id = $2`, id, sellerID,
	).Scan(&pm.ID, &pm.SellerID, &pm.Name, &pm.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment method: %w", err)
	}
	return &pm, nil
}

// ListPaymentMethods returns the seller's active payment methods by name.
func (r *Repository) ListPaymentMethods(ctx context.Context, sellerID string) ([]domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seller_id, name, is_active
		FROM payment_methods
		WHERE seller_id = $1 AND is_active
		ORDER BY name`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query payment methods: %w", err)
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		var pm domain.PaymentMethod
		if err := rows.Scan(&pm.ID, &pm.SellerID, &pm.Name, &pm.Active); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return methods, nil
}

func (r *Repository) CreatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_methods (id, seller_id, name, is_active)
		VALUES ($1, $2, $3, $4)`, pm.ID, pm.SellerID, pm.Name, pm.Active)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}
