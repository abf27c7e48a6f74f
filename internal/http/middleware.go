package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/order-desk/internal/logger"
	"github.com/fjod/order-desk/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const sellerHeader = "X-Seller-ID"

type sellerKey struct{}

// SellerMiddleware takes the seller identity from the X-Seller-ID header.
// Authentication happens in front of this service.
func SellerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sellerID := strings.TrimSpace(r.Header.Get(sellerHeader))
		if sellerID == "" {
			respondError(r.Context(), w, http.StatusUnauthorized, "missing_seller", "X-Seller-ID header is required")
			return
		}
		ctx := context.WithValue(r.Context(), sellerKey{}, sellerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sellerFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sellerKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestLogger puts a request-scoped zap logger into the context and logs each request.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			l.Info("request handled",
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}
