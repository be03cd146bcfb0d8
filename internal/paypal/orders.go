// internal/paypal/orders.go
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"swcbackend/internal/logger"
)

// OrderStatus is the lifecycle status PayPal reports for a checkout order.
//
// See https://developer.paypal.com/docs/api/orders/v2/
type OrderStatus string

const (
	// StatusCreated indicates the order was created and is awaiting
	// customer approval.
	StatusCreated OrderStatus = "CREATED"

	// StatusSaved indicates the order was saved and persisted.
	StatusSaved OrderStatus = "SAVED"

	// StatusApproved indicates the customer approved the payment through
	// the PayPal wallet or another form of guest or unbranded payment.
	StatusApproved OrderStatus = "APPROVED"

	// StatusPayerActionRequired indicates the order requires an action from
	// the payer (e.g. 3DS authentication).
	StatusPayerActionRequired OrderStatus = "PAYER_ACTION_REQUIRED"

	// StatusVoided indicates all purchase units in the order are voided.
	StatusVoided OrderStatus = "VOIDED"

	// StatusCompleted indicates the authorized payment was captured.
	StatusCompleted OrderStatus = "COMPLETED"

	// StatusDeclined and StatusExpired are not order statuses PayPal
	// documents for GET, but surface through webhooks and recovery sweeps.
	StatusDeclined OrderStatus = "DECLINED"
	StatusExpired  OrderStatus = "EXPIRED"
)

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusVoided, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// Money is a currency_code/value pair in PayPal's string form.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Item is one purchase-unit line item.
type Item struct {
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	Quantity   string `json:"quantity"`
	UnitAmount Money  `json:"unit_amount"`
}

// AmountBreakdown splits the purchase amount into item total and shipping.
type AmountBreakdown struct {
	ItemTotal Money `json:"item_total"`
	Shipping  Money `json:"shipping"`
}

// PurchaseAmount is the full order amount with its breakdown.
type PurchaseAmount struct {
	CurrencyCode string           `json:"currency_code"`
	Value        string           `json:"value"`
	Breakdown    *AmountBreakdown `json:"breakdown,omitempty"`
}

// PurchaseUnit is one unit of the order; this shop always sends exactly one.
type PurchaseUnit struct {
	Amount      PurchaseAmount `json:"amount"`
	Description string         `json:"description,omitempty"`
	InvoiceID   string         `json:"invoice_id,omitempty"`
	Items       []Item         `json:"items,omitempty"`
}

// ApplicationContext carries the approval-flow locations.
type ApplicationContext struct {
	LandingPage string `json:"landing_page,omitempty"`
	UserAction  string `json:"user_action,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

// CreateOrderRequest is the body for POST /v2/checkout/orders.
type CreateOrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// Order is the slice of the order resource this backend cares about.
type Order struct {
	ID            string      `json:"id"`
	Status        OrderStatus `json:"status"`
	PurchaseUnits []struct {
		InvoiceID string `json:"invoice_id"`
		Payments  *struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount Money  `json:"amount"`
			} `json:"captures"`
		} `json:"payments,omitempty"`
	} `json:"purchase_units,omitempty"`
}

// CreateOrder creates a new order with intent CAPTURE.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, []byte, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger.LogInfo("Creating PayPal order")
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.apiBase() + "/v2/checkout/orders")
	if err != nil {
		return nil, nil, fmt.Errorf("executing PayPal order creation request: %w", err)
	}

	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		logger.LogError("PayPal create order error (HTTP %d): %s", resp.StatusCode(), resp.String())
		return nil, resp.Body(), apiErrorFromBody(resp.StatusCode(), resp.Body())
	}

	var order Order
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, resp.Body(), fmt.Errorf("decoding PayPal order creation response: %w", err)
	}

	logger.LogInfo("Successfully created PayPal order %s (%s)", order.ID, order.Status)
	return &order, resp.Body(), nil
}

// GetOrder fetches current order state.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(fmt.Sprintf("%s/v2/checkout/orders/%s", c.apiBase(), orderID))
	if err != nil {
		return nil, fmt.Errorf("executing PayPal order details request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		logger.LogError("PayPal get order error for %s (HTTP %d): %s", orderID, resp.StatusCode(), resp.String())
		return nil, apiErrorFromBody(resp.StatusCode(), resp.Body())
	}

	var order Order
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, fmt.Errorf("decoding PayPal order details for %s: %w", orderID, err)
	}
	return &order, nil
}

// CaptureOrder finalizes a previously approved order, moving funds.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, []byte, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger.LogInfo("Capturing PayPal order %s", orderID)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(json.RawMessage("{}")).
		Post(fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.apiBase(), orderID))
	if err != nil {
		return nil, nil, fmt.Errorf("executing PayPal capture request: %w", err)
	}

	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		logger.LogError("PayPal capture error for %s (HTTP %d): %s", orderID, resp.StatusCode(), resp.String())
		return nil, resp.Body(), apiErrorFromBody(resp.StatusCode(), resp.Body())
	}

	var order Order
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, resp.Body(), fmt.Errorf("decoding PayPal capture response for %s: %w", orderID, err)
	}

	logger.LogInfo("Captured PayPal order %s (%s)", order.ID, order.Status)
	return &order, resp.Body(), nil
}
