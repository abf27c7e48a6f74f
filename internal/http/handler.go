package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Desk is the checkout surface the handlers drive. *service.Desk implements it.
type Desk interface {
	Load(ctx context.Context, sellerID string) (domain.Session, error)
	Dispatch(ctx context.Context, sellerID string, ev service.Event) (domain.Session, error)
	SaveDraft(ctx context.Context, sellerID string, exit bool) (service.Result, error)
	Checkout(ctx context.Context, sellerID string) (service.Result, error)
	Cancel(ctx context.Context, sellerID string) (domain.Session, error)
	RequestEdit(ctx context.Context, sellerID, orderID string) (domain.Session, error)
	ResumeDraft(ctx context.Context, sellerID, draftID string) (domain.Session, error)
	AddToCart(ctx context.Context, sellerID string, line domain.CartLine) (bool, error)
	Carriers(ctx context.Context, sellerID string) ([]service.CarrierOption, error)
	Services(ctx context.Context, sellerID, carrierCode string) ([]service.ServiceOption, error)
	SetCarrierPreference(ctx context.Context, sellerID, carrierCode string, enabled bool) (domain.Session, error)
	SetServicePreference(ctx context.Context, sellerID, carrierCode, serviceCode string, enabled bool) (domain.Session, error)
	PaymentMethods(ctx context.Context, sellerID string) ([]domain.PaymentMethod, error)
	SuggestPhone(ctx context.Context, sellerID string) (string, bool)
}

type Handler struct {
	desk        Desk
	validate    *validator.Validate
	maxBodySize int64
}

func NewHandler(desk Desk, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		desk:        desk,
		validate:    v,
		maxBodySize: maxBodySize,
	}
}

// decode reads a JSON body into dst and validates it. It writes the error response itself
// and reports false when the request should stop.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(r.Context(), w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "invalid request", Code: "invalid_request"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			resp.Field = verrs[0].Field()
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			resp.Details = strings.Join(parts, "; ")
		}
		respondJSON(r.Context(), w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, s domain.Session, err error) {
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toSessionResponse(s))
}

// GetSession handles GET /checkout
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.desk.Load(r.Context(), sellerFromContext(r.Context()))
	h.respondSession(w, r, s, err)
}

// ApplyEvent handles POST /checkout/events
func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	s, err := h.desk.Dispatch(r.Context(), sellerFromContext(r.Context()), ev)
	h.respondSession(w, r, s, err)
}

// SaveDraft handles POST /checkout/draft
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req SaveDraftRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	res, err := h.desk.SaveDraft(r.Context(), sellerFromContext(r.Context()), req.Exit)
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toResultResponse(res))
}

// Checkout handles POST /checkout/complete
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.desk.Checkout(r.Context(), sellerFromContext(r.Context()))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, toResultResponse(res))
}

// Cancel handles DELETE /checkout
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, err := h.desk.Cancel(r.Context(), sellerFromContext(r.Context()))
	h.respondSession(w, r, s, err)
}

// EditOrder handles POST /checkout/edit
func (h *Handler) EditOrder(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.desk.RequestEdit(r.Context(), sellerFromContext(r.Context()), req.OrderID)
	h.respondSession(w, r, s, err)
}

// ResumeDraft handles POST /checkout/resume
func (h *Handler) ResumeDraft(w http.ResponseWriter, r *http.Request) {
	var req ResumeDraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.desk.ResumeDraft(r.Context(), sellerFromContext(r.Context()), req.DraftID)
	h.respondSession(w, r, s, err)
}

// AddItem handles POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	sellerID := sellerFromContext(r.Context())
	merged, err := h.desk.AddToCart(r.Context(), sellerID, req.toLine())
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	s, err := h.desk.Load(r.Context(), sellerID)
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, AddItemResponse{Merged: merged, Session: toSessionResponse(s)})
}

// ListCarriers handles GET /shipping/carriers
func (h *Handler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.desk.Carriers(r.Context(), sellerFromContext(r.Context()))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, carriers)
}

// ListServices handles GET /shipping/carriers/{code}/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.desk.Services(r.Context(), sellerFromContext(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, services)
}

// SetCarrierPreference handles PUT /shipping/preferences/carriers/{code}
func (h *Handler) SetCarrierPreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.desk.SetCarrierPreference(r.Context(), sellerFromContext(r.Context()),
		chi.URLParam(r, "code"), *req.Enabled)
	h.respondSession(w, r, s, err)
}

// SetServicePreference handles PUT /shipping/preferences/carriers/{code}/services/{service}
func (h *Handler) SetServicePreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.desk.SetServicePreference(r.Context(), sellerFromContext(r.Context()),
		chi.URLParam(r, "code"), chi.URLParam(r, "service"), *req.Enabled)
	h.respondSession(w, r, s, err)
}

// ListPaymentMethods handles GET /payment-methods
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.desk.PaymentMethods(r.Context(), sellerFromContext(r.Context()))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	respondJSON(r.Context(), w, http.StatusOK, methods)
}

// SuggestPhone handles GET /checkout/phone-suggestion
func (h *Handler) SuggestPhone(w http.ResponseWriter, r *http.Request) {
	phone, ok := h.desk.SuggestPhone(r.Context(), sellerFromContext(r.Context()))
	respondJSON(r.Context(), w, http.StatusOK, PhoneSuggestionResponse{Phone: phone, Found: ok})
}
