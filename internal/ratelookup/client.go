// Package ratelookup is the HTTP client for the external shipping-rate service.
package ratelookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/breaker"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("rate lookup: unexpected status")

type Config struct {
	BaseURL string         `koanf:"base_url"`
	APIKey  string         `koanf:"api_key"`
	Timeout time.Duration  `koanf:"timeout"`
	Breaker breaker.Config `koanf:"breaker"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]domain.Quote]
	logger  *zap.Logger
}

var _ shipping.RateQuoter = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("rate lookup: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:     breaker.New[[]domain.Quote]("rate-lookup", cfg.Breaker, logger),
		logger: logger,
	}, nil
}

type quoteRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Weight      int    `json:"weight"`
	Couriers    string `json:"courier"`
}

type quoteResponse struct {
	Results []struct {
		Code  string `json:"code"`
		Costs []struct {
			Service string          `json:"service"`
			Cost    decimal.Decimal `json:"cost"`
		} `json:"costs"`
	} `json:"results"`
}

// Quote posts the route to the rate service. A 404 or an empty body is "no route" and
// yields an empty list.
func (c *Client) Quote(ctx context.Context, req shipping.QuoteRequest) ([]domain.Quote, error) {
	return c.cb.Execute(func() ([]domain.Quote, error) {
		return c.quote(ctx, req)
	})
}

func (c *Client) quote(ctx context.Context, req shipping.QuoteRequest) ([]domain.Quote, error) {
	body, err := json.Marshal(quoteRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Weight:      req.WeightGrams,
		Couriers:    strings.Join(req.CarrierCodes, ":"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/cost", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}

	var quotes []domain.Quote
	for _, r := range decoded.Results {
		code := strings.ToLower(r.Code)
		for _, cost := range r.Costs {
			quotes = append(quotes, domain.Quote{
				CarrierCode: code,
				ServiceName: cost.Service,
				Cost:        cost.Cost,
			})
		}
	}
	c.logger.Debug("rate lookup",
		zap.String("destination", req.Destination),
		zap.Int("weight", req.WeightGrams),
		zap.Int("quotes", len(quotes)))
	return quotes, nil
}
