package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/cart"
	"github.com/fjod/order-desk/internal/catalog"
	"github.com/fjod/order-desk/internal/logger"
	"github.com/fjod/order-desk/internal/repository"
	"github.com/fjod/order-desk/internal/shipping"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(ctx).Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, ErrorResponse{Error: message, Code: code})
}

// handleError maps desk errors onto HTTP statuses.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: verr.Message,
			Code:  "validation_failed",
			Field: verr.Field,
		})
		return
	}

	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrWriteFailure):
		status, code = http.StatusBadGateway, "write_failed"
	case errors.Is(err, domain.ErrIllegalTransition):
		status, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, domain.ErrNotEditable):
		status, code = http.StatusConflict, "not_editable"
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrCarrierNotFound),
		errors.Is(err, catalog.ErrServiceNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, shipping.ErrCatalogUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		logger.FromContext(ctx).Error("request failed", zap.Error(err))
		respondError(ctx, w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondError(ctx, w, status, code, err.Error())
}
