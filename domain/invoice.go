package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is a line of the invoice with its resolved display price.
type InvoiceLine struct {
	Name      string          `json:"name"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Note      string          `json:"note,omitempty"`
}

// InvoiceSnapshot is the immutable invoice content captured at checkout time.
type InvoiceSnapshot struct {
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	SellerID       string          `json:"seller_id"`
	IssuedAt       time.Time       `json:"issued_at"`
	Buyer          BuyerInfo       `json:"buyer"`
	Lines          []InvoiceLine   `json:"lines"`
	CarrierName    string          `json:"carrier_name"`
	ServiceName    string          `json:"service_name"`
	QuotedCost     decimal.Decimal `json:"quoted_cost"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total"`
	PartialPayment decimal.Decimal `json:"partial_payment"`
	PayableNow     decimal.Decimal `json:"payable_now"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
}
