// internal/data/attempt_repo.go
package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptRecord is one entry in the append-only checkout-attempt log. The log
// replaces a single mutable "last order id" slot: a new create supersedes the
// prior attempt instead of silently overwriting it, so reconciliation always
// knows which order it is resolving.
type AttemptRecord struct {
	AttemptID  string
	OrderID    string
	Method     string
	State      string
	CreatedAt  time.Time
	Superseded bool
}

// AppendAttempt writes a new attempt and marks all earlier open attempts
// superseded in the same transaction.
func AppendAttempt(ctx context.Context, rec AttemptRecord) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning attempt transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE checkout_attempts SET superseded = 1 WHERE superseded = 0`); err != nil {
		return fmt.Errorf("superseding prior attempts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO checkout_attempts (attempt_id, order_id, method, state, created_at, superseded)
        VALUES (?, ?, ?, ?, ?, 0)`,
		rec.AttemptID, rec.OrderID, rec.Method, rec.State,
		rec.CreatedAt.UTC().Format(TimeFormat)); err != nil {
		return fmt.Errorf("inserting attempt %s: %w", rec.AttemptID, err)
	}

	return tx.Commit()
}

// UpdateAttemptState advances an attempt's state.
func UpdateAttemptState(ctx context.Context, attemptID, state string) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = conn.ExecContext(ctx,
		`UPDATE checkout_attempts SET state = ? WHERE attempt_id = ?`, state, attemptID)
	if err != nil {
		return fmt.Errorf("updating attempt %s state: %w", attemptID, err)
	}
	return nil
}

// CurrentAttempt returns the newest non-superseded attempt, or nil when the
// log is empty.
func CurrentAttempt(ctx context.Context) (*AttemptRecord, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := conn.QueryRowContext(ctx, `
        SELECT attempt_id, order_id, method, state, created_at, superseded
        FROM checkout_attempts WHERE superseded = 0
        ORDER BY created_at DESC LIMIT 1`)

	var rec AttemptRecord
	var createdAt string
	if err := row.Scan(&rec.AttemptID, &rec.OrderID, &rec.Method, &rec.State,
		&createdAt, &rec.Superseded); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading current attempt: %w", err)
	}
	if t, err := time.Parse(TimeFormat, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
