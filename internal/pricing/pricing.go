// Package pricing derives the monetary fields of a checkout form. Everything here
// is pure and exact; rounding happens only when amounts are displayed.
package pricing

import (
	"github.com/fjod/order-desk/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input is everything the totals depend on.
type Input struct {
	Lines          []domain.CartLine
	Discount       domain.DiscountSpec
	ManualFee      decimal.Decimal
	PartialPayment decimal.Decimal
}

// InputFromForm collects the calculator inputs of a checkout form.
func InputFromForm(f domain.Form) Input {
	return Input{
		Lines:          f.Lines,
		Discount:       f.Discount,
		ManualFee:      f.Shipping.ManualFee,
		PartialPayment: f.PartialPayment,
	}
}

// Compute returns subtotal, discount, shipping fee, total and payable-now.
// Negative entered values are treated as zero.
func Compute(in Input) domain.Totals {
	subtotal := Subtotal(in.Lines)
	discount := DiscountAmount(subtotal, in.Discount)
	fee := nonNegative(in.ManualFee)
	total := nonNegative(subtotal.Sub(discount).Add(fee))
	partial := nonNegative(in.PartialPayment)

	return domain.Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingFee:    fee,
		Total:          total,
		PartialPayment: partial,
		PayableNow:     nonNegative(total.Sub(partial)),
	}
}

// Subtotal is the exact sum of unit price times quantity over lines with a positive quantity.
func Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

func LineTotal(l domain.CartLine) decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return nonNegative(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DiscountAmount applies discount to subtotal. The result is always within [0, subtotal].
func DiscountAmount(subtotal decimal.Decimal, discount domain.DiscountSpec) decimal.Decimal {
	value := nonNegative(discount.Value)
	var amount decimal.Decimal
	switch discount.Kind {
	case domain.DiscountPercentage:
		amount = subtotal.Mul(decimal.Min(value, hundred)).Div(hundred)
	case domain.DiscountNominal:
		amount = decimal.Min(value, subtotal)
	default:
		return decimal.Zero
	}
	return clamp(amount, decimal.Zero, nonNegative(subtotal))
}

// DisplayAmount floors d to whole currency units.
func DisplayAmount(d decimal.Decimal) int64 {
	return d.Floor().IntPart()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
