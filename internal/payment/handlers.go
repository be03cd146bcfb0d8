// internal/payment/handlers.go
package payment

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"swcbackend/internal/config"
	"swcbackend/internal/logger"
	"swcbackend/internal/middleware"
	"swcbackend/internal/paypal"
)

// Handlers exposes the backend order contract over HTTP.
type Handlers struct {
	svc  *Service
	http *resty.Client // merchant-validation round trips
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc:  svc,
		http: resty.New().SetTimeout(15 * time.Second),
	}
}

// CreateOrderHandler handles POST /api/create-order.
func (h *Handlers) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in CreateOrderInput
	if err := middleware.ParseJSONRequest(r, &in); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request",
			"Invalid JSON request", err.Error())
		return
	}

	if in.ReturnURL == "" {
		in.ReturnURL = config.ReturnURL
	}
	if in.CancelURL == "" {
		in.CancelURL = config.CancelURL
	}

	result, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		status, code := providerErrorStatus(err)
		middleware.WriteAPIError(w, r, status, code, "Failed to create order", err.Error())
		return
	}

	middleware.WriteAPISuccess(w, r, result)
}

// GetOrderHandler handles POST /api/get-order.
func (h *Handlers) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in struct {
		OrderID string `json:"orderId"`
	}
	if err := middleware.ParseJSONRequest(r, &in); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request",
			"Invalid JSON request", err.Error())
		return
	}
	if in.OrderID == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_order_id",
			"Order ID is required", "")
		return
	}

	state, err := h.svc.GetOrder(r.Context(), in.OrderID)
	if err != nil {
		status, code := providerErrorStatus(err)
		middleware.WriteAPIError(w, r, status, code, "Failed to get order", err.Error())
		return
	}

	middleware.WriteAPISuccess(w, r, state)
}

// CaptureOrderHandler handles POST /api/capture-order.
func (h *Handlers) CaptureOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in struct {
		OrderID string `json:"orderId"`
	}
	if err := middleware.ParseJSONRequest(r, &in); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request",
			"Invalid JSON request", err.Error())
		return
	}
	if in.OrderID == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_order_id",
			"Order ID is required", "")
		return
	}

	result, err := h.svc.CaptureOrder(r.Context(), in.OrderID)
	if err != nil {
		status, code := providerErrorStatus(err)
		middleware.WriteAPIError(w, r, status, code, "Payment capture failed", err.Error())
		return
	}

	middleware.WriteAPISuccess(w, r, result)
}

// ValidateMerchantHandler handles POST /api/validate-merchant. Apple Pay
// requires the merchant session to be fetched server-side before the payment
// sheet releases payment data.
func (h *Handlers) ValidateMerchantHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in struct {
		ValidationURL string `json:"validation_url"`
		DisplayName   string `json:"display_name,omitempty"`
	}
	if err := middleware.ParseJSONRequest(r, &in); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request",
			"Invalid JSON request", err.Error())
		return
	}

	if config.ApplePayMerchant == "" {
		middleware.WriteAPIError(w, r, http.StatusNotImplemented, "applepay_not_configured",
			"Apple Pay is not configured", "")
		return
	}
	if !strings.HasPrefix(in.ValidationURL, "https://") {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_validation_url",
			"Validation URL must be https", "")
		return
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = "Sedona Wellness Shop"
	}

	resp, err := h.http.R().
		SetContext(r.Context()).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"merchantIdentifier": config.ApplePayMerchant,
			"displayName":        displayName,
			"initiative":         "web",
			"initiativeContext":  r.Host,
		}).
		Post(in.ValidationURL)
	if err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadGateway, "merchant_validation_failed",
			"Merchant validation failed", err.Error())
		return
	}
	if resp.StatusCode() != http.StatusOK {
		logger.LogError("Merchant validation returned HTTP %d: %s", resp.StatusCode(), resp.String())
		middleware.WriteAPIError(w, r, http.StatusBadGateway, "merchant_validation_failed",
			"Merchant validation failed", resp.String())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp.Body())
}

// providerErrorStatus maps a service error to an HTTP status and error code.
// Request validation failures are the client's fault; provider API errors
// keep their client/server distinction; anything else is an upstream failure.
func providerErrorStatus(err error) (int, string) {
	type unwrapper interface{ Unwrap() error }

	for e := err; e != nil; {
		if _, ok := e.(*ValidationError); ok {
			return http.StatusBadRequest, "invalid_order"
		}
		if apiErr, ok := e.(*paypal.APIError); ok {
			if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
				return http.StatusUnprocessableEntity, "paypal_rejected"
			}
			return http.StatusBadGateway, "paypal_error"
		}
		u, ok := e.(unwrapper)
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return http.StatusBadGateway, "order_backend_error"
}
