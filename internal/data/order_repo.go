// internal/data/order_repo.go
package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"swcbackend/internal/logger"
)

// OrderRecord mirrors one PayPal order the backend created. The authoritative
// lifecycle state lives at PayPal; this row is the local view used for
// idempotency checks, webhooks and the expiry sweep.
type OrderRecord struct {
	OrderID     string
	Status      string
	Amount      string // decimal string, minor-unit precision preserved
	Currency    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	CapturedAt  *time.Time
	CaptureJSON string
}

// InsertOrder records a freshly created order.
func InsertOrder(ctx context.Context, rec OrderRecord) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = conn.ExecContext(ctx, `
        INSERT INTO orders (order_id, status, amount, currency, description, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.OrderID, rec.Status, rec.Amount, rec.Currency, rec.Description,
		rec.CreatedAt.UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("inserting order %s: %w", rec.OrderID, err)
	}
	return nil
}

// GetOrderByID loads one order row.
func GetOrderByID(ctx context.Context, orderID string) (*OrderRecord, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := conn.QueryRowContext(ctx, `
        SELECT order_id, status, amount, currency, description, created_at, updated_at, captured_at, capture_json
        FROM orders WHERE order_id = ?`, orderID)

	var rec OrderRecord
	var createdAt string
	var updatedAt, capturedAt, captureJSON sql.NullString
	var description sql.NullString
	if err := row.Scan(&rec.OrderID, &rec.Status, &rec.Amount, &rec.Currency, &description,
		&createdAt, &updatedAt, &capturedAt, &captureJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("order %s not found", orderID)
		}
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}

	rec.Description = description.String
	rec.CaptureJSON = captureJSON.String
	if t, err := time.Parse(TimeFormat, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if updatedAt.Valid {
		if t, err := time.Parse(TimeFormat, updatedAt.String); err == nil {
			rec.UpdatedAt = &t
		}
	}
	if capturedAt.Valid {
		if t, err := time.Parse(TimeFormat, capturedAt.String); err == nil {
			rec.CapturedAt = &t
		}
	}
	return &rec, nil
}

// UpdateOrderStatus moves an order to a new lifecycle status.
func UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC().Format(TimeFormat)
	res, err := conn.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		status, now, orderID)
	if err != nil {
		return fmt.Errorf("updating order %s status: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.LogWarn("Status update for unknown order %s (status=%s)", orderID, status)
	}
	return nil
}

// UpdateOrderCapture records a completed capture with its raw response body.
func UpdateOrderCapture(ctx context.Context, orderID, captureJSON string, capturedAt time.Time) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ts := capturedAt.UTC().Format(TimeFormat)
	_, err = conn.ExecContext(ctx, `
        UPDATE orders SET status = 'COMPLETED', capture_json = ?, captured_at = ?, updated_at = ?
        WHERE order_id = ?`,
		captureJSON, ts, ts, orderID)
	if err != nil {
		return fmt.Errorf("updating order %s capture: %w", orderID, err)
	}
	return nil
}

// ExpireStaleOrders marks CREATED orders older than maxAge as EXPIRED and
// returns how many rows changed.
func ExpireStaleOrders(ctx context.Context, maxAge time.Duration) (int64, error) {
	conn, err := GetDB()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cutoff := time.Now().Add(-maxAge).UTC().Format(TimeFormat)
	res, err := conn.ExecContext(ctx, `
        UPDATE orders SET status = 'EXPIRED', updated_at = ?
        WHERE status = 'CREATED' AND created_at < ?`,
		time.Now().UTC().Format(TimeFormat), cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiring stale orders: %w", err)
	}
	return res.RowsAffected()
}
