package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/phone"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const orderColumns = `id, seller_id, order_number, status, buyer, items, shipping, discount, payment_method_id,
	subtotal, discount_amount, shipping_fee, total_amount, partial_amount, partial_remaining, notes,
	created_at, updated_at`

// NextOrderNumber draws the next value of order_number_seq and formats it with the current year.
// Values are never reused, even when the insert that used one fails.
func (r *Repository) NextOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return FormatOrderNumber(r.now().Year(), seq), nil
}

func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%04d-%06d", year, seq)
}

type orderJSON struct {
	buyer, items, shipping, discount []byte
}

func marshalOrder(o *domain.Order) (orderJSON, error) {
	var (
		out orderJSON
		err error
	)
	if out.buyer, err = json.Marshal(o.Buyer); err != nil {
		return out, fmt.Errorf("marshal buyer: %w", err)
	}
	items := o.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	if out.items, err = json.Marshal(items); err != nil {
		return out, fmt.Errorf("marshal items: %w", err)
	}
	if out.shipping, err = json.Marshal(o.Shipping); err != nil {
		return out, fmt.Errorf("marshal shipping: %w", err)
	}
	if out.discount, err = json.Marshal(o.Discount); err != nil {
		return out, fmt.Errorf("marshal discount: %w", err)
	}
	return out, nil
}

// InsertOrder writes a new order and its outbox event in one transaction. The order must carry
// an issued OrderNumber; an empty ID is filled with a new UUID.
func (r *Repository) InsertOrder(ctx context.Context, o *domain.Order, eventType string) error {
	if o.OrderNumber == "" {
		return errors.New("insert order: order number is required")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := r.now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	js, err := marshalOrder(o)
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, seller_id, order_number, status, buyer_phone, buyer, items, shipping, discount,
				payment_method_id, subtotal, discount_amount, shipping_fee, total_amount, partial_amount,
				partial_remaining, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`,
			o.ID, o.SellerID, o.OrderNumber, o.Status, buyerPhone(o.Buyer), js.buyer, js.items, js.shipping, js.discount,
			o.PaymentMethodID, o.Subtotal, o.DiscountAmount, o.ShippingFee, o.TotalAmount, o.Partial.Amount,
			o.Partial.Remaining, o.Notes, now)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrDuplicateOrderNumber
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return r.afterWrite(ctx, tx, o, eventType)
	})
}

// UpdateOrder rewrites an order in place. OrderNumber and CreatedAt are never changed; the
// stored values are copied back into o.
func (r *Repository) UpdateOrder(ctx context.Context, o *domain.Order, eventType string) error {
	js, err := marshalOrder(o)
	if err != nil {
		return err
	}
	now := r.now().UTC()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE orders SET status = $3, buyer_phone = $4, buyer = $5, items = $6, shipping = $7, discount = $8,
				payment_method_id = $9, subtotal = $10, discount_amount = $11, shipping_fee = $12,
				total_amount = $13, partial_amount = $14, partial_remaining = $15, notes = $16, updated_at = $17
			WHERE id = $1 AND seller_id = $2
			RETURNING order_number, created_at`,
			o.ID, o.SellerID, o.Status, buyerPhone(o.Buyer), js.buyer, js.items, js.shipping, js.discount,
			o.PaymentMethodID, o.Subtotal, o.DiscountAmount, o.ShippingFee, o.TotalAmount, o.Partial.Amount,
			o.Partial.Remaining, o.Notes, now,
		).Scan(&o.OrderNumber, &o.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		o.UpdatedAt = now
		return r.afterWrite(ctx, tx, o, eventType)
	})
}

func (r *Repository) afterWrite(ctx context.Context, tx *sql.Tx, o *domain.Order, eventType string) error {
	if o.Status != domain.OrderStatusDraft {
		if err := upsertBuyer(ctx, tx, o.SellerID, o.Buyer); err != nil {
			return err
		}
	}
	if eventType == "" {
		return nil
	}
	return insertOutboxEvent(ctx, tx, o, eventType)
}

func upsertBuyer(ctx context.Context, tx *sql.Tx, sellerID string, b domain.BuyerInfo) error {
	key := buyerPhone(b)
	if key == "" {
		return nil
	}
	var location []byte
	if b.Location != nil {
		var err error
		if location, err = json.Marshal(b.Location); err != nil {
			return fmt.Errorf("marshal buyer location: %w", err)
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO buyers (seller_id, phone, name, address, city_district, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (seller_id, phone) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			city_district = EXCLUDED.city_district,
			location = COALESCE(EXCLUDED.location, buyers.location),
			updated_at = NOW()`,
		sellerID, key, b.Name, b.Address, b.CityDistrict, location)
	if err != nil {
		return fmt.Errorf("upsert buyer: %w", err)
	}
	return nil
}

func buyerPhone(b domain.BuyerInfo) string {
	if b.PhoneNormalized != "" {
		return b.PhoneNormalized
	}
	if b.Phone == "" {
		return ""
	}
	return phone.Canonical(b.Phone)
}

func (r *Repository) GetOrder(ctx context.Context, sellerID, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND seller_id = $2`, id, sellerID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

// FindDraftIDByPhone returns the most recently updated draft of seller whose stored buyer
// phone is exactly form.
func (r *Repository) FindDraftIDByPhone(ctx context.Context, sellerID, form string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM orders
		WHERE seller_id = $1 AND status = $2 AND buyer_phone = $3
		ORDER BY updated_at DESC
		LIMIT 1`, sellerID, domain.OrderStatusDraft, form).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find draft by phone: %w", err)
	}
	return id, true, nil
}

// ListOrdersByStatus lists a seller's orders in the given statuses, newest first.
func (r *Repository) ListOrdersByStatus(ctx context.Context, sellerID string, statuses []domain.OrderStatus, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE seller_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT $3`, sellerID, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("query orders by status: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o  domain.Order
		js orderJSON
	)
	err := row.Scan(
		&o.ID,
		&o.SellerID,
		&o.OrderNumber,
		&o.Status,
		&js.buyer,
		&js.items,
		&js.shipping,
		&js.discount,
		&o.PaymentMethodID,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.ShippingFee,
		&o.TotalAmount,
		&o.Partial.Amount,
		&o.Partial.Remaining,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js.buyer, &o.Buyer); err != nil {
		return nil, fmt.Errorf("unmarshal buyer: %w", err)
	}
	if err := json.Unmarshal(js.items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(js.shipping, &o.Shipping); err != nil {
		return nil, fmt.Errorf("unmarshal shipping: %w", err)
	}
	if err := json.Unmarshal(js.discount, &o.Discount); err != nil {
		return nil, fmt.Errorf("unmarshal discount: %w", err)
	}
	return &o, nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
