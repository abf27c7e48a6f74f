package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/shopspring/decimal"
)

const (
	EventDraftSaved   = "order.draft_saved"
	EventCheckedOut   = "order.checked_out"
	EventOrderUpdated = "order.updated"
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// OrderEventPayload is the JSON body of every order outbox event.
type OrderEventPayload struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SellerID    string          `json:"seller_id"`
	Status      string          `json:"status"`
	BuyerPhone  string          `json:"buyer_phone,omitempty"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, o *domain.Order, eventType string) error {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	payload, err := json.Marshal(OrderEventPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		SellerID:    o.SellerID,
		Status:      string(o.Status),
		BuyerPhone:  buyerPhone(o.Buyer),
		ItemCount:   count,
		TotalAmount: o.TotalAmount,
		OccurredAt:  o.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)`, o.ID, eventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetUnprocessedEvents returns up to limit unpublished events, oldest first.
func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			ev      OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Payload = payload
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
