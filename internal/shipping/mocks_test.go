package shipping

import (
	"context"

	"github.com/fjod/order-desk/domain"
)

type mockCatalog struct {
	carriers     []domain.Carrier
	services     map[string][]domain.CarrierService
	carrierPrefs map[string]Preference
	servicePrefs map[string]Preference
	err          error
}

func (m *mockCatalog) ActiveCarriers(context.Context) ([]domain.Carrier, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.carriers, nil
}

func (m *mockCatalog) CarrierServices(_ context.Context, code string) ([]domain.CarrierService, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.services[code], nil
}

func (m *mockCatalog) CarrierPreferences(context.Context, string) (map[string]Preference, error) {
	return m.carrierPrefs, m.err
}

func (m *mockCatalog) ServicePreferences(context.Context, string, string) (map[string]Preference, error) {
	return m.servicePrefs, m.err
}

type mockQuoter struct {
	quotes   []domain.Quote
	err      error
	requests []QuoteRequest
}

func (m *mockQuoter) Quote(_ context.Context, req QuoteRequest) ([]domain.Quote, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.quotes, nil
}
