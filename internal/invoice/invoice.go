// Package invoice assembles the invoice snapshot of a checked-out order and hands it
// to the rendering service.
package invoice

import (
	"strings"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/location"
	"github.com/shopspring/decimal"
)

// Names carries the display names resolved outside the order row.
type Names struct {
	Carrier       string
	Service       string
	PaymentMethod string
}

// Build captures order as an immutable invoice. Missing display names fall back to codes,
// and a buyer without a structured location gets one parsed from the free text.
func Build(o *domain.Order, names Names, issuedAt time.Time) domain.InvoiceSnapshot {
	lines := make([]domain.InvoiceLine, 0, len(o.Items))
	for _, it := range o.Items {
		name := it.ProductName
		if name == "" {
			name = it.ProductID
		}
		lines = append(lines, domain.InvoiceLine{
			Name:      name,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
			Note:      it.Note,
		})
	}

	buyer := o.Buyer
	if buyer.Location == nil && strings.TrimSpace(buyer.CityDistrict) != "" {
		parsed := location.ParseCityDistrict(buyer.CityDistrict)
		buyer.Location = &parsed
	}

	return domain.InvoiceSnapshot{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		SellerID:       o.SellerID,
		IssuedAt:       issuedAt.UTC(),
		Buyer:          buyer,
		Lines:          lines,
		CarrierName:    fallback(names.Carrier, o.Shipping.Carrier),
		ServiceName:    fallback(names.Service, o.Shipping.Service),
		QuotedCost:     o.Shipping.QuotedCost,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		ShippingFee:    o.ShippingFee,
		Total:          grossTotal(o),
		PartialPayment: o.Partial.Amount,
		PayableNow:     o.TotalAmount,
		PaymentMethod:  fallback(names.PaymentMethod, o.PaymentMethodID),
		Notes:          o.Notes,
	}
}

// grossTotal is the total before the partial payment; the order row stores only what is still owed.
func grossTotal(o *domain.Order) decimal.Decimal {
	total := o.Subtotal.Sub(o.DiscountAmount).Add(o.ShippingFee)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func fallback(name, code string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return code
}
