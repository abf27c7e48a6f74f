package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/shipping"
)

// CarrierOption is an active carrier with the seller's effective preference.
type CarrierOption struct {
	domain.Carrier
	Enabled bool `json:"enabled"`
}

type ServiceOption struct {
	domain.CarrierService
	Enabled bool `json:"enabled"`
}

func (d *Desk) Carriers(ctx context.Context, sellerID string) ([]CarrierOption, error) {
	carriers, err := d.catalog.ActiveCarriers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shipping.ErrCatalogUnavailable, err)
	}
	enabled, err := d.shipping.EnabledCarriers(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	out := make([]CarrierOption, 0, len(carriers))
	for _, c := range carriers {
		if !c.Active {
			continue
		}
		out = append(out, CarrierOption{Carrier: c, Enabled: hasCarrier(enabled, c.Code)})
	}
	return out, nil
}

func (d *Desk) Services(ctx context.Context, sellerID, carrierCode string) ([]ServiceOption, error) {
	if _, err := d.catalog.Carrier(ctx, carrierCode); err != nil {
		return nil, err
	}
	services, err := d.catalog.CarrierServices(ctx, carrierCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shipping.ErrCatalogUnavailable, err)
	}
	enabled, err := d.shipping.EnabledServices(ctx, sellerID, carrierCode)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceOption, 0, len(services))
	for _, s := range services {
		if !s.Active {
			continue
		}
		out = append(out, ServiceOption{CarrierService: s, Enabled: hasService(enabled, s.Code)})
	}
	return out, nil
}

// checkCarrier rejects a carrier outside the seller's enabled set and returns the catalog's code.
func (d *Desk) checkCarrier(ctx context.Context, sellerID, code string) (string, error) {
	enabled, err := d.shipping.EnabledCarriers(ctx, sellerID)
	if err != nil {
		return "", err
	}
	for _, c := range enabled {
		if strings.EqualFold(c.Code, strings.TrimSpace(code)) {
			return c.Code, nil
		}
	}
	return "", domain.NewValidationError("carrier", fmt.Sprintf("courier %q is not available", code))
}

// checkService rejects a service outside the enabled services of carrierCode.
func (d *Desk) checkService(ctx context.Context, sellerID, carrierCode, code string) (string, error) {
	enabled, err := d.shipping.EnabledServices(ctx, sellerID, carrierCode)
	if err != nil {
		return "", err
	}
	for _, s := range enabled {
		if strings.EqualFold(s.Code, strings.TrimSpace(code)) {
			return s.Code, nil
		}
	}
	return "", domain.NewValidationError("service", fmt.Sprintf("courier service %q is not available", code))
}

func hasCarrier(carriers []domain.Carrier, code string) bool {
	for _, c := range carriers {
		if c.Code == code {
			return true
		}
	}
	return false
}

func hasService(services []domain.CarrierService, code string) bool {
	for _, s := range services {
		if s.Code == code {
			return true
		}
	}
	return false
}

// SetCarrierPreference stores the seller's toggle. Disabling the selected carrier clears the
// carrier and service; the session is re-quoted either way.
func (d *Desk) SetCarrierPreference(ctx context.Context, sellerID, carrierCode string, enabled bool) (domain.Session, error) {
	if err := d.catalog.SetCarrierPreference(ctx, sellerID, carrierCode, enabled); err != nil {
		return domain.Session{}, err
	}
	return d.afterPreferenceChange(ctx, sellerID, func(s domain.Session) domain.Session {
		if !enabled && strings.EqualFold(s.Form.Shipping.Carrier, carrierCode) {
			return Reduce(s, CarrierSelected{})
		}
		return s
	})
}

// SetServicePreference stores the seller's toggle. Disabling the selected service clears it.
func (d *Desk) SetServicePreference(ctx context.Context, sellerID, carrierCode, serviceCode string, enabled bool) (domain.Session, error) {
	if err := d.catalog.SetServicePreference(ctx, sellerID, carrierCode, serviceCode, enabled); err != nil {
		return domain.Session{}, err
	}
	return d.afterPreferenceChange(ctx, sellerID, func(s domain.Session) domain.Session {
		sel := s.Form.Shipping
		if !enabled && strings.EqualFold(sel.Carrier, carrierCode) && strings.EqualFold(sel.Service, serviceCode) {
			return Reduce(s, ServiceSelected{})
		}
		return s
	})
}

func (d *Desk) afterPreferenceChange(ctx context.Context, sellerID string, apply func(domain.Session) domain.Session) (domain.Session, error) {
	s, err := d.current(ctx, sellerID)
	if err != nil {
		return domain.Session{}, err
	}
	s = apply(s)
	if s.Form.Buyer.DestinationDistrictID() != "" {
		s = d.requote(ctx, s)
	}
	s.UpdatedAt = d.now().UTC()
	if err := d.persist(ctx, s); err != nil {
		return s, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}
