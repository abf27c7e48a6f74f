package domain

import "github.com/shopspring/decimal"

// Carrier is a courier company known to the shipping catalog.
type Carrier struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
}

// CarrierService is one service level offered by a carrier (e.g. "REG", "YES").
type CarrierService struct {
	CarrierCode string `json:"carrier_code"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Active      bool   `json:"is_active"`
}

// Quote is a carrier/service/cost triple returned by the rate-lookup collaborator.
type Quote struct {
	CarrierCode string          `json:"carrier_code"`
	ServiceName string          `json:"service_name"`
	Cost        decimal.Decimal `json:"cost"`
}

// ShippingSelection is the two-phase carrier then service choice.
// Service may only be set while Carrier is set; use SelectCarrier to change the carrier.
type ShippingSelection struct {
	Carrier       string          `json:"carrier,omitempty"`
	Service       string          `json:"service,omitempty"`
	SelectedQuote *Quote          `json:"selected_quote,omitempty"`
	QuotedCost    decimal.Decimal `json:"quoted_cost"`
	ManualFee     decimal.Decimal `json:"manual_fee"`
}

// SelectCarrier sets the carrier and always clears the service and the selected quote.
func (s ShippingSelection) SelectCarrier(code string) ShippingSelection {
	s.Carrier = code
	s.Service = ""
	s.SelectedQuote = nil
	s.QuotedCost = decimal.Zero
	return s
}

// SelectService sets the service. It is a no-op returning false when no carrier is chosen.
func (s ShippingSelection) SelectService(code string) (ShippingSelection, bool) {
	if s.Carrier == "" {
		return s, false
	}
	s.Service = code
	return s, true
}

// ApplyQuote records q as the selected quote; a nil q clears it.
func (s ShippingSelection) ApplyQuote(q *Quote) ShippingSelection {
	if q == nil {
		s.SelectedQuote = nil
		s.QuotedCost = decimal.Zero
		return s
	}
	cp := *q
	s.SelectedQuote = &cp
	s.QuotedCost = q.Cost
	return s
}
