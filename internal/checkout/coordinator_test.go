package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"swcbackend/internal/cart"
	"swcbackend/internal/paypal"
)

type fakeBackend struct {
	createID  string
	createErr error

	getSummary OrderSummary
	getErr     error

	captureOutcome CaptureOutcome
	captureErr     error

	createCalls  int
	getCalls     int
	captureCalls int
	capturedID   string
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	f.createCalls++
	return f.createID, f.createErr
}

func (f *fakeBackend) GetOrder(ctx context.Context, orderID string) (OrderSummary, error) {
	f.getCalls++
	return f.getSummary, f.getErr
}

func (f *fakeBackend) CaptureOrder(ctx context.Context, orderID string) (CaptureOutcome, error) {
	f.captureCalls++
	f.capturedID = orderID
	return f.captureOutcome, f.captureErr
}

type recordReporter struct {
	successes []Result
	failures  []string
}

func (r *recordReporter) Success(res Result) { r.successes = append(r.successes, res) }
func (r *recordReporter) Failure(msg string) { r.failures = append(r.failures, msg) }

func testSnapshot() cart.Snapshot {
	return cart.Snap([]cart.LineItem{
		{ID: "calm", Name: "Calm", Quantity: 1, UnitPrice: decimal.NewFromFloat(115.00)},
	})
}

func testConfig() Config {
	return Config{
		Currency:  "GBP",
		ReturnURL: "https://shop.example/order-confirmation",
		CancelURL: "https://shop.example/checkout",
	}
}

func TestCreateApproveCaptureSucceeds(t *testing.T) {
	backend := &fakeBackend{
		createID:       "ORDER-1",
		captureOutcome: CaptureOutcome{Success: true, OrderID: "ORDER-1", Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	orderID, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if orderID != "ORDER-1" {
		t.Fatalf("order id = %s, want ORDER-1", orderID)
	}
	if coord.State() != StateAwaitingAuthorization {
		t.Fatalf("state = %s, want %s", coord.State(), StateAwaitingAuthorization)
	}

	coord.HandleApprove(ctx, "ORDER-1")

	if len(reporter.successes) != 1 {
		t.Fatalf("successes = %d, want 1 (failures: %v)", len(reporter.successes), reporter.failures)
	}
	if reporter.successes[0].OrderID != "ORDER-1" {
		t.Fatalf("success order id = %s", reporter.successes[0].OrderID)
	}
	if coord.State() != StateSucceeded {
		t.Fatalf("state = %s, want %s", coord.State(), StateSucceeded)
	}
}

func TestCaptureFallsBackToRequestOrderID(t *testing.T) {
	backend := &fakeBackend{
		createID: "ORDER-2",
		// Some capture responses omit the id.
		captureOutcome: CaptureOutcome{Success: true, Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	captured, err := coord.CaptureOrder(ctx, "ORDER-2")
	if err != nil {
		t.Fatalf("CaptureOrder failed: %v", err)
	}
	if captured != "ORDER-2" {
		t.Fatalf("captured id = %s, want the request id", captured)
	}
}

func TestApproveWithoutAttemptFails(t *testing.T) {
	backend := &fakeBackend{}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())

	coord.HandleApprove(context.Background(), "GHOST-ORDER")

	if backend.captureCalls != 0 {
		t.Fatal("capture issued with no attempt in flight")
	}
	if len(reporter.failures) != 1 || reporter.failures[0] != MsgGenericFailure {
		t.Fatalf("failures = %v, want one generic failure", reporter.failures)
	}
}

func TestApproveOrderIDLastWriterWins(t *testing.T) {
	backend := &fakeBackend{
		createID:       "ORDER-OLD",
		captureOutcome: CaptureOutcome{Success: true, OrderID: "ORDER-NEW", Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodApplePay); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleApprove(ctx, "ORDER-NEW")

	if backend.capturedID != "ORDER-NEW" {
		t.Fatalf("captured id = %s, want the approve callback's id", backend.capturedID)
	}
	if len(reporter.successes) != 1 {
		t.Fatalf("successes = %d, want 1", len(reporter.successes))
	}
}

func TestCreateFailureReportsAndReturnsError(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("connection refused")}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())

	_, err := coord.CreateOrder(context.Background(), testSnapshot(), decimal.Zero, MethodPayPal)
	if err == nil {
		t.Fatal("expected an error")
	}
	var createErr *OrderCreationError
	if !errors.As(err, &createErr) {
		t.Fatalf("error type = %T, want *OrderCreationError", err)
	}
	if len(reporter.failures) != 1 {
		t.Fatalf("failures = %v, want exactly one", reporter.failures)
	}
	if coord.State() != StateFailed {
		t.Fatalf("state = %s, want %s", coord.State(), StateFailed)
	}
	if coord.Diagnostic() != "connection refused" {
		t.Fatalf("diagnostic = %q", coord.Diagnostic())
	}
}

func TestEmptyCartNeverReachesBackend(t *testing.T) {
	backend := &fakeBackend{createID: "ORDER-X"}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())

	_, err := coord.CreateOrder(context.Background(), cart.Snap(nil), decimal.Zero, MethodPayPal)
	if err == nil {
		t.Fatal("expected an error for an empty cart")
	}
	if backend.createCalls != 0 {
		t.Fatal("backend create called for an empty cart")
	}
}

func TestHandleErrorReconcilesApprovedOrder(t *testing.T) {
	backend := &fakeBackend{
		createID:       "ORDER-3",
		getSummary:     OrderSummary{OrderID: "ORDER-3", Status: paypal.StatusApproved},
		captureOutcome: CaptureOutcome{Success: true, OrderID: "ORDER-3", Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleError(ctx, errors.New("popup closed unexpectedly"))

	if backend.getCalls != 1 {
		t.Fatalf("status queries = %d, want 1", backend.getCalls)
	}
	if backend.captureCalls != 1 {
		t.Fatalf("captures = %d, want 1", backend.captureCalls)
	}
	if len(reporter.successes) != 1 {
		t.Fatalf("successes = %d, want 1 (failures: %v)", len(reporter.successes), reporter.failures)
	}
	if len(reporter.failures) != 0 {
		t.Fatalf("failures reported alongside reconciled success: %v", reporter.failures)
	}
}

func TestHandleErrorReconcilesCompletedOrderWithoutRecapture(t *testing.T) {
	backend := &fakeBackend{
		createID:       "ORDER-4",
		getSummary:     OrderSummary{OrderID: "ORDER-4", Status: paypal.StatusCompleted},
		captureOutcome: CaptureOutcome{Success: true, OrderID: "ORDER-4", Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleError(ctx, "timeout waiting for approval")

	// The backend treats capture of a completed order as idempotent, so the
	// coordinator routes completed orders through the same capture path.
	if len(reporter.successes) != 1 {
		t.Fatalf("successes = %d, want 1", len(reporter.successes))
	}
}

func TestHandleErrorReportsDeclineForVoidedOrder(t *testing.T) {
	backend := &fakeBackend{
		createID:   "ORDER-5",
		getSummary: OrderSummary{OrderID: "ORDER-5", Status: paypal.StatusVoided},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleError(ctx, "processing error")

	if backend.captureCalls != 0 {
		t.Fatal("voided order was sent to capture")
	}
	if len(reporter.failures) != 1 || reporter.failures[0] != MsgPaymentDeclined {
		t.Fatalf("failures = %v, want [%q]", reporter.failures, MsgPaymentDeclined)
	}
}

func TestHandleErrorInconclusiveKeepsOriginal(t *testing.T) {
	backend := &fakeBackend{
		createID: "ORDER-6",
		getErr:   errors.New("status endpoint unavailable"),
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleError(ctx, "Original UI error")

	if len(reporter.failures) != 1 || reporter.failures[0] != "Original UI error" {
		t.Fatalf("failures = %v, want the original error", reporter.failures)
	}
}

func TestHandleErrorWithoutOrderSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())

	coord.HandleError(context.Background(), map[string]string{"name": "INSTRUMENT_DECLINED"})

	if backend.getCalls != 0 {
		t.Fatal("reconciliation ran with no order in flight")
	}
	if len(reporter.failures) != 1 || reporter.failures[0] != MsgBankDeclined {
		t.Fatalf("failures = %v, want [%q]", reporter.failures, MsgBankDeclined)
	}
}

func TestCancelLeavesAttemptIntact(t *testing.T) {
	backend := &fakeBackend{createID: "ORDER-7"}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodPayPal); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	coord.HandleCancel()

	if coord.State() != StateIdle {
		t.Fatalf("state = %s, want %s", coord.State(), StateIdle)
	}
	if len(reporter.failures) != 0 || len(reporter.successes) != 0 {
		t.Fatal("cancel must not report an outcome")
	}
	attempts := coord.Attempts()
	if len(attempts) != 1 || attempts[0].Superseded {
		t.Fatalf("attempt log after cancel: %+v", attempts)
	}
}

func TestWalletAuthorizationCarriesContact(t *testing.T) {
	backend := &fakeBackend{
		createID:       "ORDER-8",
		captureOutcome: CaptureOutcome{Success: true, OrderID: "ORDER-8", Status: paypal.StatusCompleted},
	}
	reporter := &recordReporter{}
	coord := NewCoordinator(backend, reporter, testConfig())
	ctx := context.Background()

	if _, err := coord.CreateOrder(ctx, testSnapshot(), decimal.Zero, MethodApplePay); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	session := NewWalletSession(coord, nil, nil)
	contact := &Contact{GivenName: "Alex", Email: "alex@example.com", PostalCode: "SW1A 1AA"}
	if err := session.HandlePaymentAuthorized(ctx, "ORDER-8", PaymentToken{}, contact); err != nil {
		t.Fatalf("HandlePaymentAuthorized failed: %v", err)
	}

	if len(reporter.successes) != 1 {
		t.Fatalf("successes = %d, want 1", len(reporter.successes))
	}
	got := reporter.successes[0].Contact
	if got == nil || got.Email != "alex@example.com" {
		t.Fatalf("contact = %+v, want the sheet contact", got)
	}
}
