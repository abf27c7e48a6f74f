package catalog_test

import (
	"context"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/shipping"
)

type noQuotes struct{}

func (noQuotes) Quote(context.Context, shipping.QuoteRequest) ([]domain.Quote, error) {
	return nil, nil
}
