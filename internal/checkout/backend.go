// internal/checkout/backend.go
package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"swcbackend/internal/cart"
	"swcbackend/internal/paypal"
)

// OrderRequest is what the coordinator sends the backend on create. It is
// rebuilt from the cart on every attempt and never persisted by the core.
type OrderRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Items     []cart.LineItem
	ReturnURL string
	CancelURL string
}

// OrderSummary is the backend's answer to a status query.
type OrderSummary struct {
	OrderID string
	Status  paypal.OrderStatus
}

// CaptureOutcome is the backend's answer to a capture. OrderID may be empty
// when the provider response omits one; callers fall back to the create id.
type CaptureOutcome struct {
	Success bool
	OrderID string
	Status  paypal.OrderStatus
	Raw     string
}

// Backend is the order-processing collaborator: a stateful service owning
// the provider order identities. The coordinator only ever holds opaque
// order ids it got from here.
type Backend interface {
	CreateOrder(ctx context.Context, req OrderRequest) (orderID string, err error)
	GetOrder(ctx context.Context, orderID string) (OrderSummary, error)
	CaptureOrder(ctx context.Context, orderID string) (CaptureOutcome, error)
}

// AttemptSink receives the coordinator's attempt log. Optional; hosts that
// want durable reconciliation across restarts persist it.
type AttemptSink interface {
	Append(ctx context.Context, attemptID, orderID string, method Method) error
	Update(ctx context.Context, attemptID string, state State) error
}
