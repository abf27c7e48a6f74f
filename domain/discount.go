package domain

import "github.com/shopspring/decimal"

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountNominal    DiscountKind = "nominal"
)

// DiscountSpec is the seller-entered discount. Value is clamped by the pricing package,
// never here, so the entered value survives round trips through the form.
type DiscountSpec struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

func (k DiscountKind) Valid() bool {
	return k == DiscountPercentage || k == DiscountNominal
}
