package invoice

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
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("invoice renderer: unexpected status")

type Config struct {
	BaseURL string         `koanf:"base_url"`
	Timeout time.Duration  `koanf:"timeout"`
	Breaker breaker.Config `koanf:"breaker"`
}

// Rendered points at the rendered invoice image.
type Rendered struct {
	Reference   string `json:"reference"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Renderer struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[Rendered]
	logger  *zap.Logger
}

func NewRenderer(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("invoice renderer: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:     breaker.New[Rendered]("invoice-renderer", cfg.Breaker, logger),
		logger: logger,
	}, nil
}

// Render posts the snapshot and returns where the image can be fetched.
func (r *Renderer) Render(ctx context.Context, snap domain.InvoiceSnapshot) (Rendered, error) {
	return r.cb.Execute(func() (Rendered, error) {
		body, err := json.Marshal(snap)
		if err != nil {
			return Rendered{}, fmt.Errorf("failed to encode invoice: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/invoices", bytes.NewReader(body))
		if err != nil {
			return Rendered{}, fmt.Errorf("failed to build render request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			return Rendered{}, fmt.Errorf("render request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			_, _ = io.Copy(io.Discard, resp.Body)
			return Rendered{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}

		var out Rendered
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return Rendered{}, fmt.Errorf("failed to decode render response: %w", err)
		}
		r.logger.Debug("invoice rendered", zap.String("order_number", snap.OrderNumber), zap.String("reference", out.Reference))
		return out, nil
	})
}
