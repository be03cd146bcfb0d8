// internal/checkout/coordinator.go
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swcbackend/internal/cart"
	"swcbackend/internal/logger"
	"swcbackend/internal/paypal"
)

// State is the per-attempt lifecycle of the coordinator.
type State string

const (
	StateIdle                  State = "IDLE"
	StateCreating              State = "CREATING"
	StateAwaitingAuthorization State = "AWAITING_AUTHORIZATION"
	StateCapturing             State = "CAPTURING"
	StateReconciling           State = "RECONCILING"
	StateSucceeded             State = "SUCCEEDED"
	StateFailed                State = "FAILED"
)

// Attempt is one checkout attempt. Attempts are append-only; a new create
// supersedes the previous attempt rather than mutating it.
type Attempt struct {
	ID         string
	OrderID    string
	Method     Method
	CreatedAt  time.Time
	State      State
	Superseded bool
}

// Result is a terminal success: the captured order id plus any contact
// record collected from the platform payment sheet.
type Result struct {
	OrderID string
	Contact *Contact
}

// Reporter surfaces the single terminal outcome of an attempt to the
// embedding page: success with the captured id, or one user-safe message.
type Reporter interface {
	Success(Result)
	Failure(userMessage string)
}

// OrderCreationError means the backend did not hand back an order id.
type OrderCreationError struct {
	Raw string
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order creation failed: %s", e.Raw)
}

// CaptureError means the backend reported a non-success capture.
type CaptureError struct {
	OrderID string
	Raw     string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed for order %s: %s", e.OrderID, e.Raw)
}

// Config carries the shop parameters every order request needs.
type Config struct {
	Currency  string
	ReturnURL string
	CancelURL string
}

// Coordinator drives a single payment attempt through create, authorize and
// capture, normalizing the three authorization UIs into one outcome
// contract. It assumes one in-flight attempt per instance; callbacks arrive
// from a single event source.
type Coordinator struct {
	backend  Backend
	reporter Reporter
	cfg      Config
	sink     AttemptSink // optional

	mu       sync.Mutex
	state    State
	attempts []Attempt // append-only; last non-superseded entry is current

	pendingContact *Contact // collected by the wallet sheet before capture
	lastDiagnostic string   // raw, debug display only
}

// NewCoordinator builds a coordinator in the idle state.
func NewCoordinator(backend Backend, reporter Reporter, cfg Config) *Coordinator {
	return &Coordinator{
		backend:  backend,
		reporter: reporter,
		cfg:      cfg,
		state:    StateIdle,
	}
}

// WithAttemptSink attaches a durable attempt log.
func (c *Coordinator) WithAttemptSink(sink AttemptSink) *Coordinator {
	c.sink = sink
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Diagnostic returns the raw diagnostic of the last failure. Debug display
// only; never show this to the customer.
func (c *Coordinator) Diagnostic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDiagnostic
}

// Attempts returns a copy of the attempt log.
func (c *Coordinator) Attempts() []Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Attempt, len(c.attempts))
	copy(out, c.attempts)
	return out
}

func (c *Coordinator) currentLocked() *Attempt {
	for i := len(c.attempts) - 1; i >= 0; i-- {
		if !c.attempts[i].Superseded {
			return &c.attempts[i]
		}
	}
	return nil
}

// CreateOrder builds an order request from the cart snapshot and asks the
// backend to create it. The new attempt is recorded before the id is
// returned to the authorization UI: the UI may call back asynchronously and
// reconciliation needs the id even if this call's result is lost downstream.
func (c *Coordinator) CreateOrder(ctx context.Context, snapshot cart.Snapshot, shipping decimal.Decimal, method Method) (string, error) {
	c.mu.Lock()
	c.state = StateCreating
	c.pendingContact = nil
	c.mu.Unlock()

	if err := snapshot.Validate(); err != nil {
		return "", c.failCreate(err.Error())
	}

	req := OrderRequest{
		Amount:    snapshot.Total(shipping),
		Currency:  c.cfg.Currency,
		Items:     snapshot.Items,
		ReturnURL: c.cfg.ReturnURL,
		CancelURL: c.cfg.CancelURL,
	}

	orderID, err := c.backend.CreateOrder(ctx, req)
	if err != nil {
		return "", c.failCreate(Normalize(err))
	}
	if orderID == "" {
		return "", c.failCreate("no order ID returned")
	}

	attempt := Attempt{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Method:    method,
		CreatedAt: time.Now(),
		State:     StateAwaitingAuthorization,
	}

	c.mu.Lock()
	for i := range c.attempts {
		c.attempts[i].Superseded = true
	}
	c.attempts = append(c.attempts, attempt)
	c.state = StateAwaitingAuthorization
	c.mu.Unlock()

	if c.sink != nil {
		if err := c.sink.Append(ctx, attempt.ID, orderID, method); err != nil {
			logger.LogWarn("Failed to persist attempt %s: %v", attempt.ID, err)
		}
	}

	logger.LogInfo("Created order %s (attempt %s, method %s)", orderID, attempt.ID, method)
	return orderID, nil
}

// failCreate records the diagnostic, reports the sanitized message and
// returns an OrderCreationError. The error is returned as well as reported
// because the button flow's createOrder contract requires a failure to abort
// the UI's internal flow.
func (c *Coordinator) failCreate(raw string) error {
	c.mu.Lock()
	c.state = StateFailed
	c.lastDiagnostic = raw
	c.mu.Unlock()

	logger.LogError("Order creation failed: %s", raw)
	c.reporter.Failure(UserMessage(raw))
	return &OrderCreationError{Raw: raw}
}

// HandleApprove is the authorization UI's approve callback: the customer
// finished the native UI and the order can be captured. The wallet approve
// path may carry a different order id than create observed; last writer
// wins, consistent with the single-in-flight-attempt assumption.
func (c *Coordinator) HandleApprove(ctx context.Context, orderID string) {
	c.mu.Lock()
	attempt := c.currentLocked()
	if attempt == nil {
		c.mu.Unlock()
		logger.LogError("Approve callback with no attempt in flight (order %s)", orderID)
		c.reporter.Failure(MsgGenericFailure)
		return
	}
	if orderID != "" && orderID != attempt.OrderID {
		logger.LogWarn("Approve order id %s differs from attempt order id %s, replacing", orderID, attempt.OrderID)
		attempt.OrderID = orderID
	}
	target := attempt.OrderID
	c.mu.Unlock()

	if _, err := c.CaptureOrder(ctx, target); err != nil {
		raw := Normalize(err)
		c.setFailure(raw)
		c.reporter.Failure(UserMessage(raw))
	}
}

// CaptureOrder asks the backend to capture and reports success. A capture is
// only ever issued for the order id of the current attempt, which implies a
// prior successful create.
func (c *Coordinator) CaptureOrder(ctx context.Context, orderID string) (string, error) {
	c.mu.Lock()
	attempt := c.currentLocked()
	if attempt == nil || attempt.OrderID != orderID {
		c.mu.Unlock()
		return "", fmt.Errorf("capture requested for unknown order %s", orderID)
	}
	attempt.State = StateCapturing
	c.state = StateCapturing
	contact := c.pendingContact
	c.mu.Unlock()

	c.updateSink(ctx, attempt.ID, StateCapturing)

	outcome, err := c.backend.CaptureOrder(ctx, orderID)
	if err != nil {
		return "", &CaptureError{OrderID: orderID, Raw: Normalize(err)}
	}
	if !outcome.Success {
		return "", &CaptureError{OrderID: orderID, Raw: outcome.Raw}
	}

	capturedID := outcome.OrderID
	if capturedID == "" {
		capturedID = orderID
	}

	c.mu.Lock()
	attempt.State = StateSucceeded
	c.state = StateSucceeded
	c.pendingContact = nil
	c.mu.Unlock()

	c.updateSink(ctx, attempt.ID, StateSucceeded)

	logger.LogInfo("Order %s captured (attempt %s)", capturedID, attempt.ID)
	c.reporter.Success(Result{OrderID: capturedID, Contact: contact})
	return capturedID, nil
}

// HandleError is the authorization UI's error callback. UI error callbacks
// can fire after the backend has already accepted the payment (network race,
// UI-layer timeout), so when an order id is known the coordinator asks the
// backend for the truth before reporting anything.
func (c *Coordinator) HandleError(ctx context.Context, raw interface{}) {
	rawMsg := Normalize(raw)

	c.mu.Lock()
	c.lastDiagnostic = rawMsg
	attempt := c.currentLocked()
	c.mu.Unlock()

	logger.LogError("Authorization UI error: %s", rawMsg)

	// No order was ever created: nothing to reconcile against.
	if attempt == nil || attempt.OrderID == "" {
		c.setFailure(rawMsg)
		c.reporter.Failure(UserMessage(rawMsg))
		return
	}

	c.mu.Lock()
	c.state = StateReconciling
	attempt.State = StateReconciling
	c.mu.Unlock()
	c.updateSink(ctx, attempt.ID, StateReconciling)

	outcome := c.Reconcile(ctx, attempt.OrderID)
	switch {
	case outcome.OK:
		// Reconciliation captured the order; success was already reported.
	case outcome.Message != "":
		c.setFailure(rawMsg)
		c.reporter.Failure(outcome.Message)
	default:
		// Inconclusive: the original error stands.
		c.setFailure(rawMsg)
		c.reporter.Failure(UserMessage(rawMsg))
	}
}

// ReconcileOutcome reports how a reconciliation resolved. OK means the
// attempt ended in success; a non-empty Message is a definitive decline;
// neither means inconclusive and the original error should propagate.
type ReconcileOutcome struct {
	OK      bool
	Message string
}

// Reconcile queries the backend's authoritative order state to resolve an
// ambiguous client-side outcome.
func (c *Coordinator) Reconcile(ctx context.Context, orderID string) ReconcileOutcome {
	logger.LogInfo("Reconciling order %s", orderID)

	summary, err := c.backend.GetOrder(ctx, orderID)
	if err != nil {
		logger.LogWarn("Reconciliation status query failed for %s: %v", orderID, err)
		return ReconcileOutcome{}
	}

	switch summary.Status {
	case paypal.StatusApproved, paypal.StatusCompleted:
		// The UI error was spurious; the money is captured or capturable.
		if _, err := c.CaptureOrder(ctx, orderID); err != nil {
			logger.LogWarn("Reconciliation capture failed for %s: %v", orderID, err)
			return ReconcileOutcome{}
		}
		logger.LogInfo("Reconciliation resolved order %s as success", orderID)
		return ReconcileOutcome{OK: true}

	case paypal.StatusDeclined, paypal.StatusVoided:
		logger.LogInfo("Reconciliation resolved order %s as declined (%s)", orderID, summary.Status)
		return ReconcileOutcome{Message: MsgPaymentDeclined}

	default:
		logger.LogInfo("Reconciliation inconclusive for order %s (status %s)", orderID, summary.Status)
		return ReconcileOutcome{}
	}
}

// HandleCancel is the authorization UI's cancel callback. A user cancel is
// not an error: log it and leave the order to expire or be recovered later.
func (c *Coordinator) HandleCancel() {
	logger.LogInfo("Payment cancelled by user")
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *Coordinator) setFailure(raw string) {
	c.mu.Lock()
	c.state = StateFailed
	c.lastDiagnostic = raw
	if attempt := c.currentLocked(); attempt != nil {
		attempt.State = StateFailed
	}
	c.mu.Unlock()
}

func (c *Coordinator) updateSink(ctx context.Context, attemptID string, state State) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Update(ctx, attemptID, state); err != nil {
		logger.LogWarn("Failed to persist attempt %s state %s: %v", attemptID, state, err)
	}
}
