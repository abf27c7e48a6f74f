// Package location resolves free-text city/district descriptions into structured locations.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/breaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("location: unexpected status")

type Config struct {
	BaseURL string         `koanf:"base_url"`
	Timeout time.Duration  `koanf:"timeout"`
	Breaker breaker.Config `koanf:"breaker"`
}

// Client talks to the location service. A miss is (nil, nil).
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*domain.Location]
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("location: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:     breaker.New[*domain.Location]("location", cfg.Breaker, logger),
		logger: logger,
	}, nil
}

type locationDTO struct {
	ProvinceID   string `json:"province_id"`
	ProvinceName string `json:"province_name"`
	CityID       string `json:"city_id"`
	CityName     string `json:"city_name"`
	DistrictID   string `json:"district_id"`
	DistrictName string `json:"district_name"`
}

func (d locationDTO) toDomain() *domain.Location {
	return &domain.Location{
		ProvinceID:   d.ProvinceID,
		ProvinceName: d.ProvinceName,
		CityID:       d.CityID,
		CityName:     d.CityName,
		DistrictID:   d.DistrictID,
		DistrictName: d.DistrictName,
	}
}

// Resolve searches by free text and returns the best match.
func (c *Client) Resolve(ctx context.Context, text string) (*domain.Location, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return c.cb.Execute(func() (*domain.Location, error) {
		return c.get(ctx, "/v1/districts/search?q="+url.QueryEscape(text), true)
	})
}

// ByDistrict looks up a district id.
func (c *Client) ByDistrict(ctx context.Context, districtID string) (*domain.Location, error) {
	districtID = strings.TrimSpace(districtID)
	if districtID == "" {
		return nil, nil
	}
	return c.cb.Execute(func() (*domain.Location, error) {
		return c.get(ctx, "/v1/districts/"+url.PathEscape(districtID), false)
	})
}

func (c *Client) get(ctx context.Context, path string, list bool) (*domain.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build location request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if !list {
		var one locationDTO
		if err := json.NewDecoder(resp.Body).Decode(&one); err != nil {
			return nil, fmt.Errorf("failed to decode location: %w", err)
		}
		return one.toDomain(), nil
	}

	var many struct {
		Data []locationDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&many); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	if len(many.Data) == 0 {
		return nil, nil
	}
	return many.Data[0].toDomain(), nil
}
