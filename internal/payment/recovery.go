// internal/payment/recovery.go
package payment

import (
	"context"
	"time"

	"swcbackend/internal/data"
	"swcbackend/internal/logger"
	"swcbackend/internal/paypal"
)

// RecoveryService resolves orders whose client-side flow died before the
// backend learned the outcome. It queries the provider's authoritative state
// and either finishes the capture or records the terminal failure.
type RecoveryService struct {
	svc *Service
}

func NewRecoveryService(svc *Service) *RecoveryService {
	return &RecoveryService{svc: svc}
}

// RecoverOrder checks provider state for orderID and acts on it. A non-nil
// result with Success=true means money moved (now or earlier); nil result
// means there was nothing to recover.
func (r *RecoveryService) RecoverOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	logger.LogInfo("Attempting order recovery for %s", orderID)

	order, err := r.svc.client.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	logger.LogInfo("Order %s current provider status: %s", orderID, order.Status)

	switch order.Status {
	case paypal.StatusCompleted:
		return r.syncCompletedOrder(ctx, order)

	case paypal.StatusApproved:
		// Funds are capturable; finish the job.
		captured, raw, err := r.svc.captureOrderWithRetry(ctx, orderID)
		if err != nil {
			return nil, err
		}
		result := &CaptureResult{
			Success: captured.Status == paypal.StatusCompleted,
			OrderID: captured.ID,
			Status:  captured.Status,
			Raw:     string(raw),
		}
		if result.OrderID == "" {
			result.OrderID = orderID
		}
		if result.Success {
			if err := data.UpdateOrderCapture(ctx, result.OrderID, result.Raw, time.Now()); err != nil {
				logger.LogError("Failed to record recovered capture for %s: %v", result.OrderID, err)
			}
			logger.LogInfo("Recovered approved order %s via capture", result.OrderID)
		}
		return result, nil

	case paypal.StatusCreated, paypal.StatusSaved, paypal.StatusPayerActionRequired:
		logger.LogInfo("Order %s is still pending customer approval", orderID)
		return nil, nil

	case paypal.StatusVoided, paypal.StatusDeclined, paypal.StatusExpired:
		if err := data.UpdateOrderStatus(ctx, orderID, string(order.Status)); err != nil {
			logger.LogWarn("Failed to mark order %s %s: %v", orderID, order.Status, err)
		}
		return &CaptureResult{Success: false, OrderID: orderID, Status: order.Status}, nil

	default:
		logger.LogWarn("Unknown provider status for order %s: %s", orderID, order.Status)
		return nil, nil
	}
}

func (r *RecoveryService) syncCompletedOrder(ctx context.Context, order *paypal.Order) (*CaptureResult, error) {
	logger.LogInfo("Syncing already completed order %s", order.ID)

	rec, err := data.GetOrderByID(ctx, order.ID)
	if err == nil && rec.Status == string(paypal.StatusCompleted) {
		return &CaptureResult{Success: true, OrderID: order.ID, Status: paypal.StatusCompleted, Raw: rec.CaptureJSON}, nil
	}

	if err := data.UpdateOrderCapture(ctx, order.ID, "", time.Now()); err != nil {
		logger.LogWarn("Failed to sync completed order %s: %v", order.ID, err)
	}
	return &CaptureResult{Success: true, OrderID: order.ID, Status: paypal.StatusCompleted}, nil
}
