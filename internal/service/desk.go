// Package service runs the checkout desk: it loads a seller's session, applies edits through
// Reduce, and turns the session into a saved draft or a placed order.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/overlay"
	"github.com/fjod/order-desk/internal/shipping"
	"go.uber.org/zap"
)

type OrderStore interface {
	NextOrderNumber(ctx context.Context) (string, error)
	InsertOrder(ctx context.Context, o *domain.Order, eventType string) error
	UpdateOrder(ctx context.Context, o *domain.Order, eventType string) error
	GetOrder(ctx context.Context, sellerID, id string) (*domain.Order, error)
	GetPaymentMethod(ctx context.Context, sellerID, id string) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, sellerID string) ([]domain.PaymentMethod, error)
}

type CartStore interface {
	Lines(ctx context.Context, sellerID string) ([]domain.CartLine, error)
	AddItem(ctx context.Context, sellerID string, line domain.CartLine) error
	UpdateQuantity(ctx context.Context, sellerID string, key domain.LineKey, quantity int) error
	RemoveItem(ctx context.Context, sellerID string, key domain.LineKey) error
	ClearCart(ctx context.Context, sellerID string) error
}

// SessionStore is the per-seller overlay of in-progress checkout state.
type SessionStore interface {
	Begin(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error
	Read(ctx context.Context, sellerID string) (*domain.SessionSnapshot, error)
	Write(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error
	MergeAddedLine(ctx context.Context, sellerID string, line domain.CartLine) (bool, error)
	Clear(ctx context.Context, sellerID string) error
	ReadCartForm(ctx context.Context, sellerID string) (*domain.SessionSnapshot, error)
	WriteCartForm(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error
	ClearCartForm(ctx context.Context, sellerID string) error
	SetPendingEdit(ctx context.Context, sellerID, orderID string) error
	TakePendingEdit(ctx context.Context, sellerID string) (*overlay.PendingEdit, error)
}

// ShippingResolver is the seller's enabled carrier set and the rate lookup over it.
type ShippingResolver interface {
	EnabledCarriers(ctx context.Context, sellerID string) ([]domain.Carrier, error)
	EnabledServices(ctx context.Context, sellerID, carrierCode string) ([]domain.CarrierService, error)
	Quote(ctx context.Context, sellerID, destination string, itemCount int, selectedCarrier string) (shipping.QuoteResult, error)
}

// Catalog is the carrier catalog together with the seller preference writes.
type Catalog interface {
	shipping.Catalog
	Carrier(ctx context.Context, code string) (domain.Carrier, error)
	SetCarrierPreference(ctx context.Context, sellerID, carrierCode string, enabled bool) error
	SetServicePreference(ctx context.Context, sellerID, carrierCode, serviceCode string, enabled bool) error
}

type DraftFinder interface {
	Find(ctx context.Context, sellerID, rawPhone string) (string, error)
}

type LocationResolver interface {
	Resolve(ctx context.Context, text string) (*domain.Location, error)
	ByDistrict(ctx context.Context, districtID string) (*domain.Location, error)
}

type InvoiceRenderer interface {
	Render(ctx context.Context, snap domain.InvoiceSnapshot) (invoice.Rendered, error)
}

// PhoneSource suggests the buyer phone from wherever the seller is chatting with the buyer.
type PhoneSource interface {
	DetectPhone(ctx context.Context, sellerID string) (string, error)
}

// Observer receives outcome counts.
type Observer interface {
	CheckoutFinished(result string)
	DraftSaved(result string)
	QuoteFailed()
	InvoiceFailed()
}

// Deps wires the desk. Locations, Invoices, Phones and Observer are optional.
type Deps struct {
	Orders    OrderStore
	Cart      CartStore
	Sessions  SessionStore
	Shipping  ShippingResolver
	Catalog   Catalog
	Drafts    DraftFinder
	Locations LocationResolver
	Invoices  InvoiceRenderer
	Phones    PhoneSource
	Observer  Observer
	Logger    *zap.Logger
	Now       func() time.Time
}

type Desk struct {
	orders    OrderStore
	cart      CartStore
	sessions  SessionStore
	shipping  ShippingResolver
	catalog   Catalog
	drafts    DraftFinder
	locations LocationResolver
	invoices  InvoiceRenderer
	phones    PhoneSource
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
}

func NewDesk(deps Deps) (*Desk, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("checkout desk: order store is required")
	case deps.Cart == nil:
		return nil, errors.New("checkout desk: cart store is required")
	case deps.Sessions == nil:
		return nil, errors.New("checkout desk: session store is required")
	case deps.Shipping == nil:
		return nil, errors.New("checkout desk: shipping resolver is required")
	case deps.Catalog == nil:
		return nil, errors.New("checkout desk: carrier catalog is required")
	case deps.Drafts == nil:
		return nil, errors.New("checkout desk: draft finder is required")
	}

	d := &Desk{
		orders:    deps.Orders,
		cart:      deps.Cart,
		sessions:  deps.Sessions,
		shipping:  deps.Shipping,
		catalog:   deps.Catalog,
		drafts:    deps.Drafts,
		locations: deps.Locations,
		invoices:  deps.Invoices,
		phones:    deps.Phones,
		observer:  deps.Observer,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if d.observer == nil {
		d.observer = nopObserver{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

type nopObserver struct{}

func (nopObserver) CheckoutFinished(string) {}
func (nopObserver) DraftSaved(string)       {}
func (nopObserver) QuoteFailed()            {}
func (nopObserver) InvoiceFailed()          {}
