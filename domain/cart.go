package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product (optionally one variant of it) in the active cart.
// ProductName and ImageURL are display fields denormalized into snapshots.
type CartLine struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Note        string          `json:"note,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	AddedAt     time.Time       `json:"added_at,omitempty"`
}

// LineKey identifies a cart line. Two lines with the same key are the same line.
type LineKey struct {
	ProductID string
	VariantID string
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// ItemCount sums quantities of all lines, ignoring non-positive ones.
func ItemCount(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		if l.Quantity > 0 {
			total += l.Quantity
		}
	}
	return total
}

// CloneLines returns a copy that shares no backing array with lines.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
