package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/phone"
	"go.uber.org/zap"
)

// AddToCart handles a product added from another view. With an edit session open the line is
// merged into it; otherwise it goes to the persistent cart. It reports whether it was merged.
func (d *Desk) AddToCart(ctx context.Context, sellerID string, line domain.CartLine) (bool, error) {
	if err := validateLine(line); err != nil {
		return false, err
	}
	line.AddedAt = d.now().UTC()

	merged, err := d.sessions.MergeAddedLine(ctx, sellerID, line)
	if err != nil {
		return false, fmt.Errorf("merge into edit session: %w", err)
	}
	if !merged {
		if err := d.cart.AddItem(ctx, sellerID, line); err != nil {
			return false, fmt.Errorf("add to cart: %w", err)
		}
		return false, nil
	}

	// item count changed, so the weight and the quotes did too
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return true, err
	}
	if s.Form.Buyer.DestinationDistrictID() != "" {
		s = d.requote(ctx, s)
		if err := d.persist(ctx, s); err != nil {
			return true, fmt.Errorf("store session: %w", err)
		}
	}
	return true, nil
}

func (d *Desk) PaymentMethods(ctx context.Context, sellerID string) ([]domain.PaymentMethod, error) {
	return d.orders.ListPaymentMethods(ctx, sellerID)
}

// SuggestPhone asks the phone source for a buyer number. Without a source, or when it
// fails, there is no suggestion and the seller types the number in.
func (d *Desk) SuggestPhone(ctx context.Context, sellerID string) (string, bool) {
	if d.phones == nil {
		return "", false
	}
	candidate, err := d.phones.DetectPhone(ctx, sellerID)
	if err != nil {
		d.logger.Debug("phone source unavailable", zap.String("seller_id", sellerID), zap.Error(err))
		return "", false
	}
	candidate = strings.TrimSpace(candidate)
	if phone.Digits(candidate) == "" {
		return "", false
	}
	return candidate, true
}
