// internal/payment/payment.go
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swcbackend/internal/catalog"
	"swcbackend/internal/config"
	"swcbackend/internal/data"
	"swcbackend/internal/logger"
	"swcbackend/internal/paypal"
)

// Service owns the backend half of the order lifecycle: it proxies the
// payment provider, verifies amounts server-side, and keeps the local order
// store in sync.
type Service struct {
	client   *paypal.Client
	catalog  *catalog.Service
	recovery *RecoveryService

	maxRetries    int
	retryInterval time.Duration
}

// NewService wires the PayPal client and catalog into a service.
func NewService(client *paypal.Client, cat *catalog.Service) *Service {
	s := &Service{
		client:        client,
		catalog:       cat,
		maxRetries:    3,
		retryInterval: time.Second,
	}
	s.recovery = NewRecoveryService(s)
	return s
}

// Recovery exposes the recovery service for background sweeps.
func (s *Service) Recovery() *RecoveryService {
	return s.recovery
}

// ItemInput is one line item in a create request.
type ItemInput struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_amount"`
}

// CreateOrderInput is the backend `create` contract: amount, currency, line
// items and the approval-flow callback locations.
type CreateOrderInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Items     []ItemInput     `json:"items"`
	ReturnURL string          `json:"return_url,omitempty"`
	CancelURL string          `json:"cancel_url,omitempty"`
}

// CreateOrderResult carries the provider-assigned order identifier.
type CreateOrderResult struct {
	OrderID string             `json:"orderId"`
	Status  paypal.OrderStatus `json:"status"`
}

// OrderState is the backend `get` contract.
type OrderState struct {
	OrderID string             `json:"orderId"`
	Status  paypal.OrderStatus `json:"status"`
}

// CaptureResult is the backend `capture` contract. Success is true only when
// the provider reports the capture COMPLETED.
type CaptureResult struct {
	Success bool               `json:"success"`
	OrderID string             `json:"orderId"`
	Status  paypal.OrderStatus `json:"status"`
	Raw     string             `json:"-"`
}

// ValidationError marks a create request the backend refuses outright, as
// opposed to a provider or transport failure.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// verifyAmounts recomputes the item total and rejects requests whose numbers
// don't add up. Shipping is the difference between the order amount and the
// item total; it can be zero but never negative. Known catalog items must
// carry their catalog price (tamper protection).
func (s *Service) verifyAmounts(in CreateOrderInput) (itemTotal, shipping decimal.Decimal, err error) {
	if len(in.Items) == 0 {
		return decimal.Zero, decimal.Zero, validationErrorf("order has no line items")
	}
	if !in.Amount.IsPositive() {
		return decimal.Zero, decimal.Zero, validationErrorf("invalid order amount %s", in.Amount.StringFixed(2))
	}

	itemTotal = decimal.Zero
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return decimal.Zero, decimal.Zero, validationErrorf("item %q has non-positive quantity %d", item.Name, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return decimal.Zero, decimal.Zero, validationErrorf("item %q has negative unit price", item.Name)
		}
		if s.catalog != nil && item.ID != "" {
			if err := s.catalog.VerifyPrice(item.ID, item.UnitPrice); err != nil {
				return decimal.Zero, decimal.Zero, &ValidationError{msg: err.Error()}
			}
		}
		itemTotal = itemTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	shipping = in.Amount.Sub(itemTotal)
	if shipping.IsNegative() {
		return decimal.Zero, decimal.Zero, validationErrorf("amount %s is less than item total %s",
			in.Amount.StringFixed(2), itemTotal.StringFixed(2))
	}
	return itemTotal, shipping, nil
}

// CreateOrder builds a provider order request, creates the order and records
// it locally. The returned identifier is opaque to callers.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	itemTotal, shipping, err := s.verifyAmounts(in)
	if err != nil {
		return nil, err
	}

	currency := in.Currency
	if currency == "" {
		currency = config.Currency
	}

	items := make([]paypal.Item, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, paypal.Item{
			Name:     item.Name,
			Category: "PHYSICAL_GOODS",
			Quantity: fmt.Sprintf("%d", item.Quantity),
			UnitAmount: paypal.Money{
				CurrencyCode: currency,
				Value:        item.UnitPrice.StringFixed(2),
			},
		})
	}

	appCtx := &paypal.ApplicationContext{
		LandingPage: "BILLING",
		UserAction:  "PAY_NOW",
		ReturnURL:   in.ReturnURL,
		CancelURL:   in.CancelURL,
	}

	req := paypal.CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount: paypal.PurchaseAmount{
				CurrencyCode: currency,
				Value:        in.Amount.StringFixed(2),
				Breakdown: &paypal.AmountBreakdown{
					ItemTotal: paypal.Money{CurrencyCode: currency, Value: itemTotal.StringFixed(2)},
					Shipping:  paypal.Money{CurrencyCode: currency, Value: shipping.StringFixed(2)},
				},
			},
			Items: items,
		}},
		ApplicationContext: appCtx,
	}

	logger.LogInfo("Creating order: amount=%s %s, items=%d, shipping=%s",
		in.Amount.StringFixed(2), currency, len(in.Items), shipping.StringFixed(2))

	order, _, err := s.createOrderWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("no order ID in PayPal create response")
	}

	rec := data.OrderRecord{
		OrderID:   order.ID,
		Status:    string(order.Status),
		Amount:    in.Amount.StringFixed(2),
		Currency:  currency,
		CreatedAt: time.Now(),
	}
	if err := data.InsertOrder(ctx, rec); err != nil {
		// The provider order exists; a store failure must not strand it.
		logger.LogError("Failed to record order %s locally: %v", order.ID, err)
	}

	return &CreateOrderResult{OrderID: order.ID, Status: order.Status}, nil
}

// GetOrder reports the provider's current view of the order.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*OrderState, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order ID")
	}

	order, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Keep the local row in step with what the provider reports.
	if err := data.UpdateOrderStatus(ctx, order.ID, string(order.Status)); err != nil {
		logger.LogWarn("Failed to sync status for order %s: %v", order.ID, err)
	}

	return &OrderState{OrderID: order.ID, Status: order.Status}, nil
}

// CaptureOrder finalizes the payment. Already-captured orders short-circuit
// to success so a retried capture can never double-charge.
func (s *Service) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if orderID == "" {
		return nil, fmt.Errorf("missing order ID")
	}

	// Idempotency check against the local store.
	if rec, err := data.GetOrderByID(ctx, orderID); err == nil && rec.Status == string(paypal.StatusCompleted) {
		logger.LogInfo("Order %s already captured, returning stored result", orderID)
		return &CaptureResult{
			Success: true,
			OrderID: orderID,
			Status:  paypal.StatusCompleted,
			Raw:     rec.CaptureJSON,
		}, nil
	}

	// Recovery pass: the provider may have completed the capture even though
	// the client never heard about it.
	if recovered, err := s.recovery.RecoverOrder(ctx, orderID); err != nil {
		logger.LogWarn("Recovery before capture failed for %s: %v", orderID, err)
	} else if recovered != nil && recovered.Success {
		return recovered, nil
	}

	order, raw, err := s.captureOrderWithRetry(ctx, orderID)
	if err != nil {
		return nil, err
	}

	capturedID := order.ID
	if capturedID == "" {
		capturedID = orderID
	}

	result := &CaptureResult{
		Success: order.Status == paypal.StatusCompleted,
		OrderID: capturedID,
		Status:  order.Status,
		Raw:     string(raw),
	}

	if result.Success {
		if err := data.UpdateOrderCapture(ctx, capturedID, string(raw), time.Now()); err != nil {
			logger.LogError("Failed to record capture for %s: %v", capturedID, err)
		}
		logger.LogInfo("Order %s captured successfully", capturedID)
	} else {
		logger.LogWarn("Capture for %s completed with status %s", capturedID, order.Status)
	}

	return result, nil
}

// retry helpers

func (s *Service) createOrderWithRetry(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, []byte, error) {
	var lastErr error
	var lastRaw []byte

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		order, raw, err := s.client.CreateOrder(ctx, req)
		if err == nil {
			return order, raw, nil
		}

		lastErr = err
		lastRaw = raw
		logger.LogWarn("PayPal order creation attempt %d failed: %v", attempt, err)

		// Client errors won't heal on retry.
		if apiErr, ok := err.(*paypal.APIError); ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			break
		}

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(s.retryInterval * time.Duration(attempt)):
			}
		}
	}

	return nil, lastRaw, fmt.Errorf("failed to create PayPal order after retries: %w", lastErr)
}

func (s *Service) captureOrderWithRetry(ctx context.Context, orderID string) (*paypal.Order, []byte, error) {
	var lastErr error
	var lastRaw []byte

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		order, raw, err := s.client.CaptureOrder(ctx, orderID)
		if err == nil {
			return order, raw, nil
		}

		lastErr = err
		lastRaw = raw
		logger.LogWarn("PayPal capture attempt %d failed for %s: %v", attempt, orderID, err)

		if apiErr, ok := err.(*paypal.APIError); ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			break
		}

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(s.retryInterval * time.Duration(attempt)):
			}
		}
	}

	return nil, lastRaw, fmt.Errorf("failed to capture PayPal order after retries: %w", lastErr)
}
