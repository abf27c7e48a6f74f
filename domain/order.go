package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Editable reports whether an order in this status may still be changed from the checkout desk.
func (s OrderStatus) Editable() bool {
	return s == OrderStatusDraft || s == OrderStatusNew
}

func (s OrderStatus) String() string {
	return string(s)
}

// LineItem is the denormalized copy of a CartLine taken when an order is written.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Note        string          `json:"note,omitempty"`
}

type PartialPayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Order is a persisted order or draft. OrderNumber is assigned once on insert and never changes.
// TotalAmount holds the payable-now value, i.e. it already nets out any partial payment.
type Order struct {
	ID              string            `json:"id"`
	SellerID        string            `json:"seller_id"`
	OrderNumber     string            `json:"order_number"`
	Status          OrderStatus       `json:"status"`
	Buyer           BuyerInfo         `json:"buyer"`
	Items           []LineItem        `json:"items"`
	Shipping        ShippingSelection `json:"shipping"`
	Discount        DiscountSpec      `json:"discount"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	DiscountAmount  decimal.Decimal   `json:"discount_amount"`
	ShippingFee     decimal.Decimal   `json:"shipping_fee"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Partial         PartialPayment    `json:"partial_payment"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Lines converts the order's line items back into cart lines, used when an order is loaded for editing.
func (o *Order) Lines() []CartLine {
	lines := make([]CartLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, CartLine{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Note:        it.Note,
			ProductName: it.ProductName,
			ImageURL:    it.ImageURL,
		})
	}
	return lines
}

// Totals are the derived monetary fields of a checkout form.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total"`
	PartialPayment decimal.Decimal `json:"partial_payment"`
	PayableNow     decimal.Decimal `json:"payable_now"`
}

// PaymentMethod is a seller-configured way of getting paid (bank transfer, COD, e-wallet).
type PaymentMethod struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
	Name     string `json:"name"`
	Active   bool   `json:"is_active"`
}
