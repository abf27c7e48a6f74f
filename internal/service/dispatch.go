package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"go.uber.org/zap"
)

// Dispatch applies one field edit to the seller's session, runs the lookups the edit
// calls for, and stores the resulting snapshot.
func (d *Desk) Dispatch(ctx context.Context, sellerID string, ev Event) (domain.Session, error) {
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return domain.Session{}, err
	}
	if s.Phase != domain.PhaseReady {
		return s, fmt.Errorf("%w: cannot edit in phase %s", domain.ErrIllegalTransition, s.Phase)
	}

	quote := requiresQuote(ev)
	switch e := ev.(type) {
	case LineAdded:
		if err := validateLine(e.Line); err != nil {
			return s, err
		}
		e.Line.AddedAt = d.now().UTC()
		ev = e
	case DistrictSelected:
		loc := d.lookupDistrict(ctx, e.DistrictID)
		if loc != nil {
			s = Reduce(s, CityDistrictChanged{Text: describe(*loc)})
		}
		ev = LocationResolved{Location: loc}
		quote = true
	case CarrierSelected:
		if strings.TrimSpace(e.Code) != "" {
			if e.Code, err = d.checkCarrier(ctx, sellerID, e.Code); err != nil {
				return s, err
			}
			ev = e
		}
	case ServiceSelected:
		if strings.TrimSpace(e.Code) != "" {
			if e.Code, err = d.checkService(ctx, sellerID, s.Form.Shipping.Carrier, e.Code); err != nil {
				return s, err
			}
			ev = e
		}
	}

	if !s.Editing() {
		if err := d.writeThroughCart(ctx, sellerID, ev); err != nil {
			return s, err
		}
	}

	s = Reduce(s, ev)

	switch e := ev.(type) {
	case CityDistrictChanged:
		s = Reduce(s, LocationResolved{Location: d.resolveText(ctx, e.Text)})
		quote = true
	case PhoneChanged:
		if !s.Editing() {
			s = d.matchDraft(ctx, s)
		}
	}
	if quote {
		s = d.requote(ctx, s)
	}

	s.UpdatedAt = d.now().UTC()
	if err := d.persist(ctx, s); err != nil {
		return s, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// writeThroughCart mirrors line edits of a fresh cart into the cart store, which owns those lines.
func (d *Desk) writeThroughCart(ctx context.Context, sellerID string, ev Event) error {
	var err error
	switch e := ev.(type) {
	case LineQuantityChanged:
		err = d.cart.UpdateQuantity(ctx, sellerID, e.Key, e.Quantity)
	case LineRemoved:
		err = d.cart.RemoveItem(ctx, sellerID, e.Key)
	case LineAdded:
		err = d.cart.AddItem(ctx, sellerID, e.Line)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

func (d *Desk) matchDraft(ctx context.Context, s domain.Session) domain.Session {
	if s.Form.Buyer.Phone == "" {
		return s
	}
	id, err := d.drafts.Find(ctx, s.SellerID, s.Form.Buyer.Phone)
	if err != nil {
		d.logger.Warn("draft lookup failed", zap.String("seller_id", s.SellerID), zap.Error(err))
		return s
	}
	if id == "" {
		return s
	}
	return Reduce(s, DraftCandidateFound{DraftID: id})
}

// resolveText returns nil when no resolver is configured or nothing matched;
// the free text stays the only destination then.
func (d *Desk) resolveText(ctx context.Context, text string) *domain.Location {
	if d.locations == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	loc, err := d.locations.Resolve(ctx, text)
	if err != nil {
		d.logger.Warn("location lookup failed", zap.String("text", text), zap.Error(err))
		return nil
	}
	return loc
}

func (d *Desk) lookupDistrict(ctx context.Context, districtID string) *domain.Location {
	if d.locations == nil || strings.TrimSpace(districtID) == "" {
		return nil
	}
	loc, err := d.locations.ByDistrict(ctx, districtID)
	if err != nil {
		d.logger.Warn("district lookup failed", zap.String("district_id", districtID), zap.Error(err))
		return nil
	}
	return loc
}

func validateLine(l domain.CartLine) error {
	switch {
	case strings.TrimSpace(l.ProductID) == "":
		return domain.NewValidationError("product_id", "select a product")
	case l.Quantity < 1:
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	case l.UnitPrice.IsNegative():
		return domain.NewValidationError("unit_price", "price cannot be negative")
	}
	return nil
}
