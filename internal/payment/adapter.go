// internal/payment/adapter.go
package payment

import (
	"context"

	"swcbackend/internal/checkout"
)

// backendAdapter narrows the service to the coordinator's backend contract.
type backendAdapter struct {
	svc *Service
}

// CheckoutBackend exposes the service as a checkout.Backend.
func (s *Service) CheckoutBackend() checkout.Backend {
	return &backendAdapter{svc: s}
}

func (a *backendAdapter) CreateOrder(ctx context.Context, req checkout.OrderRequest) (string, error) {
	items := make([]ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ItemInput{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result, err := a.svc.CreateOrder(ctx, CreateOrderInput{
		Amount:    req.Amount,
		Currency:  req.Currency,
		Items:     items,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		return "", err
	}
	return result.OrderID, nil
}

func (a *backendAdapter) GetOrder(ctx context.Context, orderID string) (checkout.OrderSummary, error) {
	state, err := a.svc.GetOrder(ctx, orderID)
	if err != nil {
		return checkout.OrderSummary{}, err
	}
	return checkout.OrderSummary{OrderID: state.OrderID, Status: state.Status}, nil
}

func (a *backendAdapter) CaptureOrder(ctx context.Context, orderID string) (checkout.CaptureOutcome, error) {
	result, err := a.svc.CaptureOrder(ctx, orderID)
	if err != nil {
		return checkout.CaptureOutcome{}, err
	}
	return checkout.CaptureOutcome{
		Success: result.Success,
		OrderID: result.OrderID,
		Status:  result.Status,
		Raw:     result.Raw,
	}, nil
}
