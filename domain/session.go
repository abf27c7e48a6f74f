package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TargetKind string

const (
	TargetFreshCart     TargetKind = "fresh_cart"
	TargetDraft         TargetKind = "draft"
	TargetExistingOrder TargetKind = "existing_order"
)

// Target says what a checkout session will write to: a brand-new order, a known draft,
// or an already placed order being edited in place.
type Target interface {
	Kind() TargetKind
	isTarget()
}

type FreshCart struct{}

type Draft struct {
	ID          string
	OrderNumber string
}

type ExistingOrder struct {
	ID          string
	OrderNumber string
	Status      OrderStatus
}

func (FreshCart) Kind() TargetKind     { return TargetFreshCart }
func (Draft) Kind() TargetKind         { return TargetDraft }
func (ExistingOrder) Kind() TargetKind { return TargetExistingOrder }

func (FreshCart) isTarget()     {}
func (Draft) isTarget()         {}
func (ExistingOrder) isTarget() {}

// TargetForOrder picks the target variant matching a loaded order.
func TargetForOrder(o *Order) Target {
	if o.Status == OrderStatusDraft {
		return Draft{ID: o.ID, OrderNumber: o.OrderNumber}
	}
	return ExistingOrder{ID: o.ID, OrderNumber: o.OrderNumber, Status: o.Status}
}

// Form is the user-entered part of a checkout session.
type Form struct {
	Buyer           BuyerInfo         `json:"buyer"`
	Shipping        ShippingSelection `json:"shipping"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	Discount        DiscountSpec      `json:"discount"`
	PartialPayment  decimal.Decimal   `json:"partial_payment"`
	Notes           string            `json:"notes,omitempty"`
	Lines           []CartLine        `json:"lines"`
}

// FormFromOrder rebuilds the form of a persisted order so it can be edited.
func FormFromOrder(o *Order) Form {
	return Form{
		Buyer:           o.Buyer,
		Shipping:        o.Shipping,
		PaymentMethodID: o.PaymentMethodID,
		Discount:        o.Discount,
		PartialPayment:  o.Partial.Amount,
		Notes:           o.Notes,
		Lines:           o.Lines(),
	}
}

// Session is one seller's in-progress checkout. Totals are derived and never persisted.
type Session struct {
	SellerID         string    `json:"seller_id"`
	Target           Target    `json:"-"`
	Phase            Phase     `json:"phase"`
	Form             Form      `json:"form"`
	Totals           Totals    `json:"totals"`
	Quotes           []Quote   `json:"quotes"`
	QuoteError       string    `json:"quote_error,omitempty"`
	DraftCandidateID string    `json:"draft_candidate_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Editing reports whether the session edits a persisted order (draft or placed).
func (s Session) Editing() bool {
	return s.Target != nil && s.Target.Kind() != TargetFreshCart
}

// TargetOrderID returns the id of the order the session writes to, or "" for a fresh cart.
func (s Session) TargetOrderID() string {
	switch t := s.Target.(type) {
	case Draft:
		return t.ID
	case ExistingOrder:
		return t.ID
	}
	return ""
}

// SessionSnapshot is the persisted shape of a Session, stored in the overlay.
type SessionSnapshot struct {
	Kind             TargetKind  `json:"kind"`
	OrderID          string      `json:"order_id,omitempty"`
	OrderNumber      string      `json:"order_number,omitempty"`
	OrderStatus      OrderStatus `json:"order_status,omitempty"`
	SellerID         string      `json:"seller_id"`
	Form             Form        `json:"form"`
	Quotes           []Quote     `json:"quotes,omitempty"`
	QuoteError       string      `json:"quote_error,omitempty"`
	DraftCandidateID string      `json:"draft_candidate_id,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (s Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		Kind:             TargetFreshCart,
		SellerID:         s.SellerID,
		Form:             s.Form,
		Quotes:           s.Quotes,
		QuoteError:       s.QuoteError,
		DraftCandidateID: s.DraftCandidateID,
		UpdatedAt:        s.UpdatedAt,
	}
	snap.Form.Lines = CloneLines(s.Form.Lines)
	switch t := s.Target.(type) {
	case Draft:
		snap.Kind = TargetDraft
		snap.OrderID = t.ID
		snap.OrderNumber = t.OrderNumber
	case ExistingOrder:
		snap.Kind = TargetExistingOrder
		snap.OrderID = t.ID
		snap.OrderNumber = t.OrderNumber
		snap.OrderStatus = t.Status
	}
	return snap
}

// SessionFromSnapshot restores a Ready session. Totals must be recomputed by the caller.
func SessionFromSnapshot(snap SessionSnapshot) (Session, error) {
	var target Target
	switch snap.Kind {
	case TargetFreshCart, "":
		target = FreshCart{}
	case TargetDraft:
		target = Draft{ID: snap.OrderID, OrderNumber: snap.OrderNumber}
	case TargetExistingOrder:
		target = ExistingOrder{ID: snap.OrderID, OrderNumber: snap.OrderNumber, Status: snap.OrderStatus}
	default:
		return Session{}, fmt.Errorf("unknown snapshot kind %q", snap.Kind)
	}
	return Session{
		SellerID:         snap.SellerID,
		Target:           target,
		Phase:            PhaseReady,
		Form:             snap.Form,
		Quotes:           snap.Quotes,
		QuoteError:       snap.QuoteError,
		DraftCandidateID: snap.DraftCandidateID,
		UpdatedAt:        snap.UpdatedAt,
	}, nil
}
