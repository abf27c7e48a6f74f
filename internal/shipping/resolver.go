package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/domain"
	"go.uber.org/zap"
)

const (
	minShipmentGrams = 1000
	gramsPerItem     = 500
)

var (
	// ErrQuoteUnavailable means the rate lookup failed; callers continue without quotes.
	ErrQuoteUnavailable = errors.New("shipping: rate quote unavailable")
	// ErrCatalogUnavailable means carriers or preferences could not be read.
	ErrCatalogUnavailable = errors.New("shipping: catalog unavailable")
)

// Catalog is the carrier/service/preference data the resolver reads.
type Catalog interface {
	ActiveCarriers(ctx context.Context) ([]domain.Carrier, error)
	CarrierServices(ctx context.Context, carrierCode string) ([]domain.CarrierService, error)
	CarrierPreferences(ctx context.Context, sellerID string) (map[string]Preference, error)
	ServicePreferences(ctx context.Context, sellerID, carrierCode string) (map[string]Preference, error)
}

// QuoteRequest is one call to the rate-lookup collaborator.
type QuoteRequest struct {
	Origin       string
	Destination  string
	WeightGrams  int
	CarrierCodes []string
}

// RateQuoter returns quotes for a route. An unroutable destination is an empty list, not an error.
type RateQuoter interface {
	Quote(ctx context.Context, req QuoteRequest) ([]domain.Quote, error)
}

// QuoteResult holds the quotes and the default pick (nil when there are none).
type QuoteResult struct {
	Quotes  []domain.Quote
	Default *domain.Quote
}

type ResolverDeps struct {
	Catalog        Catalog
	Quoter         RateQuoter
	OriginDistrict string
	Logger         *zap.Logger
}

// Resolver computes enabled carriers and services for a seller and fetches rate quotes.
type Resolver struct {
	catalog Catalog
	quoter  RateQuoter
	origin  string
	logger  *zap.Logger
}

func NewResolver(deps ResolverDeps) (*Resolver, error) {
	if deps.Catalog == nil {
		return nil, errors.New("shipping resolver: catalog is required")
	}
	if deps.Quoter == nil {
		return nil, errors.New("shipping resolver: rate quoter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog: deps.Catalog,
		quoter:  deps.Quoter,
		origin:  strings.TrimSpace(deps.OriginDistrict),
		logger:  logger,
	}, nil
}

// EnabledCarriers intersects the globally active carriers with the seller's preferences.
func (r *Resolver) EnabledCarriers(ctx context.Context, sellerID string) ([]domain.Carrier, error) {
	carriers, err := r.catalog.ActiveCarriers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: active carriers: %v", ErrCatalogUnavailable, err)
	}
	prefs, err := r.catalog.CarrierPreferences(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("%w: carrier preferences: %v", ErrCatalogUnavailable, err)
	}

	enabled := make([]domain.Carrier, 0, len(carriers))
	for _, c := range carriers {
		if c.Active && Effective(Lookup(prefs, c.Code)) {
			enabled = append(enabled, c)
		}
	}
	return enabled, nil
}

// EnabledServices returns the active services of carrierCode the seller has not switched off.
func (r *Resolver) EnabledServices(ctx context.Context, sellerID, carrierCode string) ([]domain.CarrierService, error) {
	if carrierCode == "" {
		return nil, nil
	}
	services, err := r.catalog.CarrierServices(ctx, carrierCode)
	if err != nil {
		return nil, fmt.Errorf("%w: services of %s: %v", ErrCatalogUnavailable, carrierCode, err)
	}
	prefs, err := r.catalog.ServicePreferences(ctx, sellerID, carrierCode)
	if err != nil {
		return nil, fmt.Errorf("%w: service preferences: %v", ErrCatalogUnavailable, err)
	}

	enabled := make([]domain.CarrierService, 0, len(services))
	for _, s := range services {
		if s.Active && Effective(Lookup(prefs, s.Code)) {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

// Quote asks the rate-lookup collaborator for quotes to destination, restricted to
// selectedCarrier when one is given. With no destination or no enabled carrier there is
// nothing to quote and the result is empty. On failure the result
// is empty and the error wraps ErrQuoteUnavailable.
func (r *Resolver) Quote(ctx context.Context, sellerID, destination string, itemCount int, selectedCarrier string) (QuoteResult, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return QuoteResult{}, nil
	}

	carriers, err := r.EnabledCarriers(ctx, sellerID)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	var codes []string
	for _, c := range carriers {
		// a selected carrier the seller has since switched off gets no quotes
		if selectedCarrier == "" || strings.EqualFold(c.Code, selectedCarrier) {
			codes = append(codes, c.Code)
		}
	}
	if len(codes) == 0 {
		return QuoteResult{}, nil
	}

	quotes, err := r.quoter.Quote(ctx, QuoteRequest{
		Origin:       r.origin,
		Destination:  destination,
		WeightGrams:  ShipmentWeight(itemCount),
		CarrierCodes: codes,
	})
	if err != nil {
		r.logger.Warn("rate lookup failed",
			zap.String("seller_id", sellerID),
			zap.String("destination", destination),
			zap.Strings("carriers", codes),
			zap.Error(err))
		return QuoteResult{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if len(quotes) == 0 {
		return QuoteResult{}, nil
	}
	return QuoteResult{Quotes: quotes, Default: Cheapest(quotes)}, nil
}

// ShipmentWeight is 500g per item with a 1kg floor.
func ShipmentWeight(itemCount int) int {
	return max(minShipmentGrams, gramsPerItem*itemCount)
}

// Cheapest returns the lowest-cost quote; on ties the earliest one wins.
func Cheapest(quotes []domain.Quote) *domain.Quote {
	if len(quotes) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(quotes); i++ {
		if quotes[i].Cost.LessThan(quotes[best].Cost) {
			best = i
		}
	}
	q := quotes[best]
	return &q
}

// MatchQuote finds the quote for a carrier/service pair, comparing service names case-insensitively.
func MatchQuote(quotes []domain.Quote, carrierCode, service string) *domain.Quote {
	for _, q := range quotes {
		if q.CarrierCode == carrierCode && strings.EqualFold(q.ServiceName, service) {
			cp := q
			return &cp
		}
	}
	return nil
}
