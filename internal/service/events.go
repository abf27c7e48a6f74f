package service

import (
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/overlay"
	"github.com/fjod/order-desk/internal/phone"
	"github.com/fjod/order-desk/internal/pricing"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/shopspring/decimal"
)

// Event is one settled change to a checkout session.
type Event interface {
	isEvent()
}

type PhoneChanged struct{ Phone string }
type BuyerNameChanged struct{ Name string }
type AddressChanged struct{ Address string }

// CityDistrictChanged replaces the free-text destination and drops any structured location.
type CityDistrictChanged struct{ Text string }

// DistrictSelected picks a structured destination by id; the desk resolves it before reducing.
type DistrictSelected struct{ DistrictID string }

type LocationResolved struct{ Location *domain.Location }

type CarrierSelected struct{ Code string }
type ServiceSelected struct{ Code string }

// QuotesReceived carries a finished rate lookup. Err is set when the lookup failed.
type QuotesReceived struct {
	Quotes  []domain.Quote
	Default *domain.Quote
	Err     string
}

type ManualFeeChanged struct{ Amount decimal.Decimal }
type DiscountChanged struct{ Discount domain.DiscountSpec }
type PartialPaymentChanged struct{ Amount decimal.Decimal }
type PaymentMethodSelected struct{ ID string }
type NotesChanged struct{ Notes string }

// LineQuantityChanged sets a line's quantity; zero or less removes the line.
type LineQuantityChanged struct {
	Key      domain.LineKey
	Quantity int
}

type LineRemoved struct{ Key domain.LineKey }
type LineAdded struct{ Line domain.CartLine }

type DraftCandidateFound struct{ DraftID string }

func (PhoneChanged) isEvent()          {}
func (BuyerNameChanged) isEvent()      {}
func (AddressChanged) isEvent()        {}
func (CityDistrictChanged) isEvent()   {}
func (DistrictSelected) isEvent()      {}
func (LocationResolved) isEvent()      {}
func (CarrierSelected) isEvent()       {}
func (ServiceSelected) isEvent()       {}
func (QuotesReceived) isEvent()        {}
func (ManualFeeChanged) isEvent()      {}
func (DiscountChanged) isEvent()       {}
func (PartialPaymentChanged) isEvent() {}
func (PaymentMethodSelected) isEvent() {}
func (NotesChanged) isEvent()          {}
func (LineQuantityChanged) isEvent()   {}
func (LineRemoved) isEvent()           {}
func (LineAdded) isEvent()             {}
func (DraftCandidateFound) isEvent()   {}

// Reduce applies ev to s and recomputes the totals. It performs no I/O and never
// mutates the lines of s.
func Reduce(s domain.Session, ev Event) domain.Session {
	f := &s.Form
	switch e := ev.(type) {
	case PhoneChanged:
		f.Buyer.Phone = strings.TrimSpace(e.Phone)
		f.Buyer.PhoneNormalized = phone.Canonical(e.Phone)
		s.DraftCandidateID = ""
	case BuyerNameChanged:
		f.Buyer.Name = strings.TrimSpace(e.Name)
	case AddressChanged:
		f.Buyer.Address = strings.TrimSpace(e.Address)
	case CityDistrictChanged:
		f.Buyer.CityDistrict = strings.TrimSpace(e.Text)
		f.Buyer.Location = nil
	case DistrictSelected:
		// resolved by the desk into LocationResolved
	case LocationResolved:
		if e.Location == nil {
			f.Buyer.Location = nil
			break
		}
		loc := *e.Location
		f.Buyer.Location = &loc
		if f.Buyer.CityDistrict == "" {
			f.Buyer.CityDistrict = describe(loc)
		}
	case CarrierSelected:
		f.Shipping = f.Shipping.SelectCarrier(strings.TrimSpace(e.Code))
	case ServiceSelected:
		code := strings.TrimSpace(e.Code)
		if code == "" {
			f.Shipping.Service = ""
			f.Shipping = f.Shipping.ApplyQuote(nil)
			break
		}
		if noRoute(s) {
			break
		}
		if next, ok := f.Shipping.SelectService(code); ok {
			f.Shipping = next.ApplyQuote(shipping.MatchQuote(s.Quotes, next.Carrier, code))
		}
	case QuotesReceived:
		s.Quotes = e.Quotes
		s.QuoteError = e.Err
		switch {
		case noRoute(s):
			f.Shipping.Service = ""
			f.Shipping = f.Shipping.ApplyQuote(nil)
		case len(e.Quotes) == 0:
			f.Shipping = f.Shipping.ApplyQuote(nil)
		case f.Shipping.Service != "":
			f.Shipping = f.Shipping.ApplyQuote(shipping.MatchQuote(e.Quotes, f.Shipping.Carrier, f.Shipping.Service))
		default:
			f.Shipping = f.Shipping.ApplyQuote(e.Default)
		}
	case ManualFeeChanged:
		f.Shipping.ManualFee = nonNegative(e.Amount)
	case DiscountChanged:
		f.Discount = domain.DiscountSpec{Kind: e.Discount.Kind, Value: nonNegative(e.Discount.Value)}
	case PartialPaymentChanged:
		f.PartialPayment = nonNegative(e.Amount)
	case PaymentMethodSelected:
		f.PaymentMethodID = strings.TrimSpace(e.ID)
	case NotesChanged:
		f.Notes = e.Notes
	case LineQuantityChanged:
		f.Lines = setQuantity(f.Lines, e.Key, e.Quantity)
	case LineRemoved:
		f.Lines = setQuantity(f.Lines, e.Key, 0)
	case LineAdded:
		f.Lines = overlay.MergeLine(f.Lines, e.Line)
	case DraftCandidateFound:
		s.DraftCandidateID = e.DraftID
	}
	s.Totals = pricing.Compute(pricing.InputFromForm(s.Form))
	return s
}

// requiresQuote reports whether ev changes anything the rate lookup depends on.
// noRoute reports a known destination the rate lookup answered with no quotes at all.
// No service can be chosen then. A failed lookup is not a missing route: the seller may
// keep the service and enter the fee by hand.
func noRoute(s domain.Session) bool {
	return s.Form.Buyer.DestinationDistrictID() != "" && len(s.Quotes) == 0 && s.QuoteError == ""
}

func requiresQuote(ev Event) bool {
	switch ev.(type) {
	case LocationResolved, CarrierSelected, LineQuantityChanged, LineRemoved, LineAdded:
		return true
	}
	return false
}

func setQuantity(lines []domain.CartLine, key domain.LineKey, qty int) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Key() == key {
			if qty <= 0 {
				continue
			}
			l.Quantity = qty
		}
		out = append(out, l)
	}
	return out
}

func describe(loc domain.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.DistrictName, loc.CityName, loc.ProvinceName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
