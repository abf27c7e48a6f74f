package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/order-desk/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodySize    int64
	// Ready backs GET /ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, desk Desk, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	h := NewHandler(desk, cfg.MaxBodySize)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(Metrics(m))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				respondError(r.Context(), w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(SellerMiddleware)

		r.Get("/checkout", h.GetSession)
		r.Delete("/checkout", h.Cancel)
		r.Post("/checkout/events", h.ApplyEvent)
		r.Post("/checkout/draft", h.SaveDraft)
		r.Post("/checkout/edit", h.EditOrder)
		r.Post("/checkout/resume", h.ResumeDraft)
		r.Post("/checkout/complete", h.Checkout)
		r.Get("/checkout/phone-suggestion", h.SuggestPhone)

		r.Post("/cart/items", h.AddItem)

		r.Get("/shipping/carriers", h.ListCarriers)
		r.Get("/shipping/carriers/{code}/services", h.ListServices)
		r.Put("/shipping/preferences/carriers/{code}", h.SetCarrierPreference)
		r.Put("/shipping/preferences/carriers/{code}/services/{service}", h.SetServicePreference)

		r.Get("/payment-methods", h.ListPaymentMethods)
	})

	return otelhttp.NewHandler(r, "order-desk-http")
}
