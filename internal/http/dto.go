package http

import (
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/pricing"
	"github.com/fjod/order-desk/internal/service"
	"github.com/shopspring/decimal"
)

// Event types accepted by POST /checkout/events.
const (
	EventPhoneChanged          = "phone_changed"
	EventBuyerNameChanged      = "buyer_name_changed"
	EventAddressChanged        = "address_changed"
	EventCityDistrictChanged   = "city_district_changed"
	EventDistrictSelected      = "district_selected"
	EventCarrierSelected       = "carrier_selected"
	EventServiceSelected       = "service_selected"
	EventManualFeeChanged      = "manual_fee_changed"
	EventDiscountChanged       = "discount_changed"
	EventPartialPaymentChanged = "partial_payment_changed"
	EventPaymentMethodSelected = "payment_method_selected"
	EventNotesChanged          = "notes_changed"
	EventLineQuantityChanged   = "line_quantity_changed"
	EventLineRemoved           = "line_removed"
	EventLineAdded             = "line_added"
)

type EventRequest struct {
	Type         string           `json:"type" validate:"required,oneof=phone_changed buyer_name_changed address_changed city_district_changed district_selected carrier_selected service_selected manual_fee_changed discount_changed partial_payment_changed payment_method_selected notes_changed line_quantity_changed line_removed line_added"`
	Value        string           `json:"value"`
	Amount       *decimal.Decimal `json:"amount"`
	DiscountKind string           `json:"discount_kind" validate:"omitempty,oneof=percentage nominal"`
	ProductID    string           `json:"product_id"`
	VariantID    string           `json:"variant_id"`
	Quantity     int              `json:"quantity" validate:"gte=0,lte=999"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	ProductName  string           `json:"product_name"`
	ImageURL     string           `json:"image_url" validate:"omitempty,url"`
	Note         string           `json:"note" validate:"max=500"`
}

// toEvent maps the wire request onto a desk event. Fields required by a specific
// event type are checked here since the validator only sees one flat struct.
func (r EventRequest) toEvent() (service.Event, error) {
	amount := func() (decimal.Decimal, error) {
		if r.Amount == nil {
			return decimal.Zero, domain.NewValidationError("amount", "amount is required")
		}
		return *r.Amount, nil
	}

	switch r.Type {
	case EventPhoneChanged:
		return service.PhoneChanged{Phone: r.Value}, nil
	case EventBuyerNameChanged:
		return service.BuyerNameChanged{Name: r.Value}, nil
	case EventAddressChanged:
		return service.AddressChanged{Address: r.Value}, nil
	case EventCityDistrictChanged:
		return service.CityDistrictChanged{Text: r.Value}, nil
	case EventDistrictSelected:
		if r.Value == "" {
			return nil, domain.NewValidationError("value", "district id is required")
		}
		return service.DistrictSelected{DistrictID: r.Value}, nil
	case EventCarrierSelected:
		return service.CarrierSelected{Code: r.Value}, nil
	case EventServiceSelected:
		return service.ServiceSelected{Code: r.Value}, nil
	case EventManualFeeChanged:
		a, err := amount()
		if err != nil {
			return nil, err
		}
		return service.ManualFeeChanged{Amount: a}, nil
	case EventDiscountChanged:
		a, err := amount()
		if err != nil {
			return nil, err
		}
		kind := domain.DiscountKind(r.DiscountKind)
		if !kind.Valid() {
			return nil, domain.NewValidationError("discount_kind", "discount kind must be percentage or nominal")
		}
		return service.DiscountChanged{Discount: domain.DiscountSpec{Kind: kind, Value: a}}, nil
	case EventPartialPaymentChanged:
		a, err := amount()
		if err != nil {
			return nil, err
		}
		return service.PartialPaymentChanged{Amount: a}, nil
	case EventPaymentMethodSelected:
		return service.PaymentMethodSelected{ID: r.Value}, nil
	case EventNotesChanged:
		return service.NotesChanged{Notes: r.Value}, nil
	case EventLineQuantityChanged:
		if r.ProductID == "" {
			return nil, domain.NewValidationError("product_id", "product id is required")
		}
		return service.LineQuantityChanged{Key: r.lineKey(), Quantity: r.Quantity}, nil
	case EventLineRemoved:
		if r.ProductID == "" {
			return nil, domain.NewValidationError("product_id", "product id is required")
		}
		return service.LineRemoved{Key: r.lineKey()}, nil
	case EventLineAdded:
		line := domain.CartLine{
			ProductID:   r.ProductID,
			VariantID:   r.VariantID,
			Quantity:    r.Quantity,
			ProductName: r.ProductName,
			ImageURL:    r.ImageURL,
			Note:        r.Note,
		}
		if r.UnitPrice != nil {
			line.UnitPrice = *r.UnitPrice
		}
		return service.LineAdded{Line: line}, nil
	}
	return nil, domain.NewValidationError("type", "unknown event type")
}

func (r EventRequest) lineKey() domain.LineKey {
	return domain.LineKey{ProductID: r.ProductID, VariantID: r.VariantID}
}

type AddItemRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	VariantID   string          `json:"variant_id"`
	Quantity    int             `json:"quantity" validate:"required,min=1,max=999"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ProductName string          `json:"product_name" validate:"max=255"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Note        string          `json:"note" validate:"max=500"`
}

func (r AddItemRequest) toLine() domain.CartLine {
	return domain.CartLine{
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		ProductName: r.ProductName,
		ImageURL:    r.ImageURL,
		Note:        r.Note,
	}
}

type SaveDraftRequest struct {
	Exit bool `json:"exit"`
}

type EditRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type ResumeDraftRequest struct {
	DraftID string `json:"draft_id" validate:"required"`
}

type PreferenceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type TargetResponse struct {
	Kind        domain.TargetKind  `json:"kind"`
	OrderID     string             `json:"order_id,omitempty"`
	OrderNumber string             `json:"order_number,omitempty"`
	Status      domain.OrderStatus `json:"status,omitempty"`
}

// DisplayTotals are the totals floored to whole currency units for rendering.
type DisplayTotals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingFee    int64 `json:"shipping_fee"`
	Total          int64 `json:"total"`
	PartialPayment int64 `json:"partial_payment"`
	PayableNow     int64 `json:"payable_now"`
}

type SessionResponse struct {
	Target           TargetResponse `json:"target"`
	Phase            domain.Phase   `json:"phase"`
	Form             domain.Form    `json:"form"`
	Totals           domain.Totals  `json:"totals"`
	Display          DisplayTotals  `json:"display"`
	Quotes           []domain.Quote `json:"quotes"`
	QuoteError       string         `json:"quote_error,omitempty"`
	DraftCandidateID string         `json:"draft_candidate_id,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func toSessionResponse(s domain.Session) SessionResponse {
	snap := s.Snapshot()
	quotes := s.Quotes
	if quotes == nil {
		quotes = []domain.Quote{}
	}
	return SessionResponse{
		Target: TargetResponse{
			Kind:        snap.Kind,
			OrderID:     snap.OrderID,
			OrderNumber: snap.OrderNumber,
			Status:      snap.OrderStatus,
		},
		Phase:  s.Phase,
		Form:   s.Form,
		Totals: s.Totals,
		Display: DisplayTotals{
			Subtotal:       pricing.DisplayAmount(s.Totals.Subtotal),
			DiscountAmount: pricing.DisplayAmount(s.Totals.DiscountAmount),
			ShippingFee:    pricing.DisplayAmount(s.Totals.ShippingFee),
			Total:          pricing.DisplayAmount(s.Totals.Total),
			PartialPayment: pricing.DisplayAmount(s.Totals.PartialPayment),
			PayableNow:     pricing.DisplayAmount(s.Totals.PayableNow),
		},
		Quotes:           quotes,
		QuoteError:       s.QuoteError,
		DraftCandidateID: s.DraftCandidateID,
		UpdatedAt:        s.UpdatedAt,
	}
}

type ResultResponse struct {
	Session SessionResponse   `json:"session"`
	Order   *domain.Order     `json:"order,omitempty"`
	Invoice *invoice.Rendered `json:"invoice,omitempty"`
	Warning string            `json:"warning,omitempty"`
}

func toResultResponse(r service.Result) ResultResponse {
	resp := ResultResponse{
		Session: toSessionResponse(r.Session),
		Order:   r.Order,
		Invoice: r.Invoice,
	}
	if r.Warning != nil {
		resp.Warning = r.Warning.Error()
	}
	return resp
}

type AddItemResponse struct {
	Merged  bool            `json:"merged"`
	Session SessionResponse `json:"session"`
}

type PhoneSuggestionResponse struct {
	Phone string `json:"phone"`
	Found bool   `json:"found"`
}
