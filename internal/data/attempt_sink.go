// internal/data/attempt_sink.go
package data

import (
	"context"
	"time"

	"swcbackend/internal/checkout"
)

// SQLAttemptSink persists the coordinator's attempt log to the database.
type SQLAttemptSink struct{}

// NewAttemptSink returns a sink over the shared connection.
func NewAttemptSink() *SQLAttemptSink {
	return &SQLAttemptSink{}
}

func (s *SQLAttemptSink) Append(ctx context.Context, attemptID, orderID string, method checkout.Method) error {
	return AppendAttempt(ctx, AttemptRecord{
		AttemptID: attemptID,
		OrderID:   orderID,
		Method:    string(method),
		State:     string(checkout.StateAwaitingAuthorization),
		CreatedAt: time.Now(),
	})
}

func (s *SQLAttemptSink) Update(ctx context.Context, attemptID string, state checkout.State) error {
	return UpdateAttemptState(ctx, attemptID, string(state))
}
