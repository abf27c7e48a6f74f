package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/pricing"
	"github.com/fjod/order-desk/internal/repository"
	"go.uber.org/zap"
)

// Load returns the seller's session. A pending "edit this order" instruction wins and is
// consumed, then the active edit session, then the fresh cart.
func (d *Desk) Load(ctx context.Context, sellerID string) (domain.Session, error) {
	pending, err := d.sessions.TakePendingEdit(ctx, sellerID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("read pending edit: %w", err)
	}
	if pending != nil {
		s, err := d.beginEdit(ctx, sellerID, pending.OrderID, false)
		switch {
		case err == nil:
			return s, nil
		case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, domain.ErrNotEditable):
			d.logger.Warn("pending edit dropped",
				zap.String("seller_id", sellerID),
				zap.String("order_id", pending.OrderID),
				zap.Error(err))
		default:
			return domain.Session{}, err
		}
	}
	return d.current(ctx, sellerID)
}

// RequestEdit records the one-shot instruction to open orderID and loads it.
func (d *Desk) RequestEdit(ctx context.Context, sellerID, orderID string) (domain.Session, error) {
	o, err := d.orders.GetOrder(ctx, sellerID, orderID)
	if err != nil {
		return domain.Session{}, err
	}
	if !o.Status.Editable() {
		return domain.Session{}, fmt.Errorf("%w: order %s is %s", domain.ErrNotEditable, o.OrderNumber, o.Status)
	}
	if err := d.sessions.SetPendingEdit(ctx, sellerID, orderID); err != nil {
		return domain.Session{}, fmt.Errorf("store pending edit: %w", err)
	}
	return d.Load(ctx, sellerID)
}

// ResumeDraft opens a matched draft as the active edit session.
func (d *Desk) ResumeDraft(ctx context.Context, sellerID, draftID string) (domain.Session, error) {
	return d.beginEdit(ctx, sellerID, draftID, true)
}

// Cancel drops the active edit session, or the saved form of the fresh cart, and
// returns whatever the seller falls back to.
func (d *Desk) Cancel(ctx context.Context, sellerID string) (domain.Session, error) {
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return domain.Session{}, err
	}
	if s.Editing() {
		err = d.sessions.Clear(ctx, sellerID)
	} else {
		err = d.sessions.ClearCartForm(ctx, sellerID)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("clear session: %w", err)
	}
	return d.current(ctx, sellerID)
}

func (d *Desk) beginEdit(ctx context.Context, sellerID, orderID string, draftOnly bool) (domain.Session, error) {
	o, err := d.orders.GetOrder(ctx, sellerID, orderID)
	if err != nil {
		return domain.Session{}, err
	}
	if !o.Status.Editable() || (draftOnly && o.Status != domain.OrderStatusDraft) {
		return domain.Session{}, fmt.Errorf("%w: order %s is %s", domain.ErrNotEditable, o.OrderNumber, o.Status)
	}

	s := domain.Session{
		SellerID: sellerID,
		Target:   domain.TargetForOrder(o),
		Phase:    domain.PhaseLoading,
		Form:     domain.FormFromOrder(o),
	}
	if err := advance(&s, domain.PhaseReady); err != nil {
		return domain.Session{}, err
	}
	s.Totals = pricing.Compute(pricing.InputFromForm(s.Form))
	if s.Form.Buyer.DestinationDistrictID() != "" {
		s = d.requote(ctx, s)
	}
	s.UpdatedAt = d.now().UTC()

	if err := d.sessions.Begin(ctx, sellerID, s.Snapshot()); err != nil {
		return domain.Session{}, fmt.Errorf("begin edit session: %w", err)
	}
	d.logger.Info("edit session started",
		zap.String("seller_id", sellerID),
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("status", o.Status.String()))
	return s, nil
}

// current restores the active edit session, or else the fresh cart, without consuming
// a pending edit.
func (d *Desk) current(ctx context.Context, sellerID string) (domain.Session, error) {
	snap, err := d.sessions.Read(ctx, sellerID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("read edit session: %w", err)
	}
	if snap == nil {
		snap, err = d.sessions.ReadCartForm(ctx, sellerID)
		if err != nil {
			return domain.Session{}, fmt.Errorf("read cart form: %w", err)
		}
		if snap == nil {
			snap = &domain.SessionSnapshot{Kind: domain.TargetFreshCart}
		}
		lines, err := d.cart.Lines(ctx, sellerID)
		if err != nil {
			return domain.Session{}, fmt.Errorf("read cart: %w", err)
		}
		snap.Form.Lines = lines
	}
	snap.SellerID = sellerID

	s, err := domain.SessionFromSnapshot(*snap)
	if err != nil {
		return domain.Session{}, err
	}
	s.Totals = pricing.Compute(pricing.InputFromForm(s.Form))
	return s, nil
}

// persist writes the full snapshot back to where the session lives.
func (d *Desk) persist(ctx context.Context, s domain.Session) error {
	snap := s.Snapshot()
	if s.Editing() {
		return d.sessions.Write(ctx, s.SellerID, snap)
	}
	return d.sessions.WriteCartForm(ctx, s.SellerID, snap)
}

// requote refreshes the quote list. A failed lookup leaves the session without quotes.
func (d *Desk) requote(ctx context.Context, s domain.Session) domain.Session {
	res, err := d.shipping.Quote(ctx, s.SellerID,
		s.Form.Buyer.DestinationDistrictID(),
		domain.ItemCount(s.Form.Lines),
		s.Form.Shipping.Carrier)
	if err != nil {
		d.observer.QuoteFailed()
		d.logger.Warn("shipping quote unavailable", zap.String("seller_id", s.SellerID), zap.Error(err))
		return Reduce(s, QuotesReceived{Err: "shipping cost is unavailable, enter the fee manually"})
	}
	return Reduce(s, QuotesReceived{Quotes: res.Quotes, Default: res.Default})
}

func advance(s *domain.Session, to domain.Phase) error {
	if !domain.CanTransitionTo(s.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, s.Phase, to)
	}
	s.Phase = to
	return nil
}
