package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/phone"
	"github.com/fjod/order-desk/internal/pricing"
	"github.com/fjod/order-desk/internal/repository"
	"go.uber.org/zap"
)

// Result is the outcome of a draft save or a checkout. Warning is set when the order was
// written but the invoice could not be rendered; it wraps domain.ErrRenderFailure.
type Result struct {
	Session domain.Session
	Order   *domain.Order
	Invoice *invoice.Rendered
	Warning error
}

// SaveDraft writes the session as a draft. A known draft or order is updated in place and
// keeps its number; a fresh cart gets a new number and becomes the session's draft. With
// exit the edit session is closed afterwards.
func (d *Desk) SaveDraft(ctx context.Context, sellerID string, exit bool) (Result, error) {
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return Result{}, err
	}
	if err := advance(&s, domain.PhaseValidating); err != nil {
		return Result{Session: s}, err
	}
	if err := validateDraft(s.Form); err != nil {
		_ = advance(&s, domain.PhaseReady)
		d.observer.DraftSaved("invalid")
		return Result{Session: s}, err
	}
	if err := advance(&s, domain.PhaseSavingDraft); err != nil {
		return Result{Session: s}, err
	}

	o := d.buildOrder(&s)
	wasFresh := !s.Editing()
	switch t := s.Target.(type) {
	case domain.Draft:
		o.ID, o.OrderNumber, o.Status = t.ID, t.OrderNumber, domain.OrderStatusDraft
		err = d.orders.UpdateOrder(ctx, o, repository.EventDraftSaved)
	case domain.ExistingOrder:
		o.ID, o.OrderNumber, o.Status = t.ID, t.OrderNumber, t.Status
		err = d.orders.UpdateOrder(ctx, o, repository.EventOrderUpdated)
	default:
		o.Status = domain.OrderStatusDraft
		err = d.insert(ctx, o, repository.EventDraftSaved)
	}
	if err != nil {
		_ = advance(&s, domain.PhaseReady)
		d.observer.DraftSaved("write_failure")
		d.logger.Error("draft save failed", zap.String("seller_id", sellerID), zap.Error(err))
		return Result{Session: s}, fmt.Errorf("%w: %w", domain.ErrWriteFailure, err)
	}

	s.Target = domain.TargetForOrder(o)
	s.DraftCandidateID = ""
	if wasFresh {
		// the cart lines now belong to the draft
		d.clearFreshCart(ctx, sellerID)
	}

	if exit {
		if err := d.sessions.Clear(ctx, sellerID); err != nil {
			d.logger.Warn("edit session not cleared", zap.String("seller_id", sellerID), zap.Error(err))
		}
		_ = advance(&s, domain.PhaseCompleted)
	} else {
		_ = advance(&s, domain.PhaseReady)
		s.UpdatedAt = d.now().UTC()
		if err := d.sessions.Write(ctx, sellerID, s.Snapshot()); err != nil {
			d.logger.Warn("edit session not stored", zap.String("seller_id", sellerID), zap.Error(err))
		}
	}

	d.observer.DraftSaved("ok")
	d.logger.Info("draft saved",
		zap.String("seller_id", sellerID),
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Bool("exit", exit))
	return Result{Session: s, Order: o}, nil
}

// Checkout places the order. An order being edited is updated in place with its number and
// status kept; a draft is promoted to new in place; a fresh cart is inserted with a new
// number. The invoice is rendered afterwards and a render failure only sets Result.Warning.
func (d *Desk) Checkout(ctx context.Context, sellerID string) (Result, error) {
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return Result{}, err
	}
	if err := advance(&s, domain.PhaseValidating); err != nil {
		return Result{Session: s}, err
	}
	pm, err := d.validateCheckout(ctx, s)
	if err != nil {
		_ = advance(&s, domain.PhaseReady)
		if errors.Is(err, domain.ErrValidation) {
			d.observer.CheckoutFinished("invalid")
		}
		return Result{Session: s}, err
	}
	if err := advance(&s, domain.PhaseCheckingOut); err != nil {
		return Result{Session: s}, err
	}

	o := d.buildOrder(&s)
	switch t := s.Target.(type) {
	case domain.ExistingOrder:
		o.ID, o.OrderNumber, o.Status = t.ID, t.OrderNumber, t.Status
		err = d.orders.UpdateOrder(ctx, o, repository.EventOrderUpdated)
	case domain.Draft:
		o.ID, o.OrderNumber, o.Status = t.ID, t.OrderNumber, domain.OrderStatusNew
		err = d.orders.UpdateOrder(ctx, o, repository.EventCheckedOut)
	default:
		o.Status = domain.OrderStatusNew
		err = d.insert(ctx, o, repository.EventCheckedOut)
	}
	if err != nil {
		_ = advance(&s, domain.PhaseReady)
		d.observer.CheckoutFinished("write_failure")
		d.logger.Error("checkout failed", zap.String("seller_id", sellerID), zap.Error(err))
		return Result{Session: s}, fmt.Errorf("%w: %w", domain.ErrWriteFailure, err)
	}

	editing := s.Editing()
	s.Target = domain.TargetForOrder(o)
	_ = advance(&s, domain.PhaseCompleted)
	if editing {
		if err := d.sessions.Clear(ctx, sellerID); err != nil {
			d.logger.Warn("edit session not cleared", zap.String("seller_id", sellerID), zap.Error(err))
		}
	} else {
		d.clearFreshCart(ctx, sellerID)
	}

	res := Result{Session: s, Order: o}
	rendered, err := d.renderInvoice(ctx, o, pm)
	if err != nil {
		d.observer.InvoiceFailed()
		d.logger.Warn("invoice not rendered",
			zap.String("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err))
		res.Warning = fmt.Errorf("%w: %w", domain.ErrRenderFailure, err)
	} else {
		res.Invoice = &rendered
	}

	d.observer.CheckoutFinished("ok")
	d.logger.Info("checkout completed",
		zap.String("seller_id", sellerID),
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total_amount", o.TotalAmount.String()))
	return res, nil
}

func (d *Desk) insert(ctx context.Context, o *domain.Order, eventType string) error {
	number, err := d.orders.NextOrderNumber(ctx)
	if err != nil {
		return fmt.Errorf("mint order number: %w", err)
	}
	o.OrderNumber = number
	return d.orders.InsertOrder(ctx, o, eventType)
}

// buildOrder snapshots the form as it is now. Totals are recomputed, never taken from s.
func (d *Desk) buildOrder(s *domain.Session) *domain.Order {
	totals := pricing.Compute(pricing.InputFromForm(s.Form))
	s.Totals = totals

	items := make([]domain.LineItem, 0, len(s.Form.Lines))
	for _, l := range s.Form.Lines {
		if l.Quantity <= 0 {
			continue
		}
		items = append(items, domain.LineItem{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			ImageURL:    l.ImageURL,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   pricing.LineTotal(l),
			Note:        l.Note,
		})
	}

	buyer := s.Form.Buyer
	buyer.PhoneNormalized = phone.Canonical(buyer.Phone)
	now := d.now().UTC()

	return &domain.Order{
		SellerID:        s.SellerID,
		Buyer:           buyer,
		Items:           items,
		Shipping:        s.Form.Shipping,
		Discount:        s.Form.Discount,
		PaymentMethodID: s.Form.PaymentMethodID,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		ShippingFee:     totals.ShippingFee,
		TotalAmount:     totals.PayableNow,
		Partial: domain.PartialPayment{
			Amount:    totals.PartialPayment,
			Remaining: totals.PayableNow,
		},
		Notes:     s.Form.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d *Desk) clearFreshCart(ctx context.Context, sellerID string) {
	if err := d.cart.ClearCart(ctx, sellerID); err != nil {
		d.logger.Warn("cart not cleared", zap.String("seller_id", sellerID), zap.Error(err))
	}
	if err := d.sessions.ClearCartForm(ctx, sellerID); err != nil {
		d.logger.Warn("cart form not cleared", zap.String("seller_id", sellerID), zap.Error(err))
	}
}

func (d *Desk) renderInvoice(ctx context.Context, o *domain.Order, pm *domain.PaymentMethod) (invoice.Rendered, error) {
	if d.invoices == nil {
		return invoice.Rendered{}, fmt.Errorf("%w: no invoice renderer", domain.ErrCollaboratorUnavailable)
	}

	names := invoice.Names{}
	if pm != nil {
		names.PaymentMethod = pm.Name
	}
	if c, err := d.catalog.Carrier(ctx, o.Shipping.Carrier); err == nil {
		names.Carrier = c.Name
	}
	if services, err := d.catalog.CarrierServices(ctx, o.Shipping.Carrier); err == nil {
		for _, svc := range services {
			if strings.EqualFold(svc.Code, o.Shipping.Service) {
				names.Service = svc.Name
				break
			}
		}
	}

	return d.invoices.Render(ctx, invoice.Build(o, names, d.now()))
}

func validateDraft(f domain.Form) error {
	if strings.TrimSpace(f.Buyer.Phone) == "" {
		return domain.NewValidationError("phone", "enter the buyer phone")
	}
	return nil
}

// validateCheckout checks required fields in the order the form shows them and returns
// the selected payment method.
func (d *Desk) validateCheckout(ctx context.Context, s domain.Session) (*domain.PaymentMethod, error) {
	f := s.Form
	required := []struct {
		field, value, message string
	}{
		{"payment_method", f.PaymentMethodID, "select payment method"},
		{"carrier", f.Shipping.Carrier, "select courier"},
		{"service", f.Shipping.Service, "select courier service"},
		{"phone", f.Buyer.Phone, "enter the buyer phone"},
		{"name", f.Buyer.Name, "enter the buyer name"},
		{"address", f.Buyer.Address, "enter the buyer address"},
		{"city_district", f.Buyer.CityDistrict, "enter the city/district"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, domain.NewValidationError(r.field, r.message)
		}
	}
	if domain.ItemCount(f.Lines) == 0 {
		return nil, domain.NewValidationError("items", "add at least one product")
	}
	// the seller may have switched the courier off since selecting it
	if _, err := d.checkCarrier(ctx, s.SellerID, f.Shipping.Carrier); err != nil {
		return nil, err
	}
	if _, err := d.checkService(ctx, s.SellerID, f.Shipping.Carrier, f.Shipping.Service); err != nil {
		return nil, err
	}

	pm, err := d.orders.GetPaymentMethod(ctx, s.SellerID, f.PaymentMethodID)
	if errors.Is(err, repository.ErrPaymentMethodNotFound) || (err == nil && !pm.Active) {
		return nil, domain.NewValidationError("payment_method", "payment method is not available")
	}
	if err != nil {
		return nil, fmt.Errorf("load payment method: %w", err)
	}
	return pm, nil
}
