package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { CloseDB() })
}

func TestOrderRoundTrip(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	rec := OrderRecord{
		OrderID:   "ORDER-DB-1",
		Status:    "CREATED",
		Amount:    "115.00",
		Currency:  "GBP",
		CreatedAt: time.Now(),
	}
	if err := InsertOrder(ctx, rec); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}

	got, err := GetOrderByID(ctx, "ORDER-DB-1")
	if err != nil {
		t.Fatalf("GetOrderByID failed: %v", err)
	}
	if got.Status != "CREATED" || got.Amount != "115.00" || got.Currency != "GBP" {
		t.Fatalf("loaded order = %+v", got)
	}
	if got.CapturedAt != nil {
		t.Fatal("fresh order carries a capture timestamp")
	}

	if _, err := GetOrderByID(ctx, "NO-SUCH-ORDER"); err == nil {
		t.Fatal("missing order did not error")
	}
}

func TestUpdateOrderStatusAndCapture(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if err := InsertOrder(ctx, OrderRecord{
		OrderID: "ORDER-DB-2", Status: "CREATED", Amount: "50.00", Currency: "GBP", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}

	if err := UpdateOrderStatus(ctx, "ORDER-DB-2", "APPROVED"); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	got, err := GetOrderByID(ctx, "ORDER-DB-2")
	if err != nil {
		t.Fatalf("GetOrderByID failed: %v", err)
	}
	if got.Status != "APPROVED" || got.UpdatedAt == nil {
		t.Fatalf("after status update: %+v", got)
	}

	capturedAt := time.Now()
	if err := UpdateOrderCapture(ctx, "ORDER-DB-2", `{"status":"COMPLETED"}`, capturedAt); err != nil {
		t.Fatalf("UpdateOrderCapture failed: %v", err)
	}
	got, err = GetOrderByID(ctx, "ORDER-DB-2")
	if err != nil {
		t.Fatalf("GetOrderByID failed: %v", err)
	}
	if got.Status != "COMPLETED" {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	if got.CapturedAt == nil || got.CaptureJSON == "" {
		t.Fatalf("capture details missing: %+v", got)
	}
}

func TestExpireStaleOrders(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	stale := OrderRecord{
		OrderID: "ORDER-STALE", Status: "CREATED", Amount: "10.00", Currency: "GBP",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := OrderRecord{
		OrderID: "ORDER-FRESH", Status: "CREATED", Amount: "10.00", Currency: "GBP",
		CreatedAt: time.Now(),
	}
	approved := OrderRecord{
		OrderID: "ORDER-APPROVED", Status: "APPROVED", Amount: "10.00", Currency: "GBP",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	for _, rec := range []OrderRecord{stale, fresh, approved} {
		if err := InsertOrder(ctx, rec); err != nil {
			t.Fatalf("InsertOrder(%s) failed: %v", rec.OrderID, err)
		}
	}

	expired, err := ExpireStaleOrders(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ExpireStaleOrders failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired %d orders, want 1", expired)
	}

	got, _ := GetOrderByID(ctx, "ORDER-STALE")
	if got.Status != "EXPIRED" {
		t.Errorf("stale order status = %s, want EXPIRED", got.Status)
	}
	got, _ = GetOrderByID(ctx, "ORDER-FRESH")
	if got.Status != "CREATED" {
		t.Errorf("fresh order status = %s, want CREATED", got.Status)
	}
	got, _ = GetOrderByID(ctx, "ORDER-APPROVED")
	if got.Status != "APPROVED" {
		t.Errorf("approved order status = %s, want untouched APPROVED", got.Status)
	}
}

func TestAttemptLogSupersession(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	first := AttemptRecord{
		AttemptID: "ATT-1", OrderID: "ORDER-A", Method: "paypal",
		State: "AWAITING_AUTHORIZATION", CreatedAt: time.Now().Add(-time.Minute),
	}
	if err := AppendAttempt(ctx, first); err != nil {
		t.Fatalf("AppendAttempt failed: %v", err)
	}

	second := AttemptRecord{
		AttemptID: "ATT-2", OrderID: "ORDER-B", Method: "applepay",
		State: "AWAITING_AUTHORIZATION", CreatedAt: time.Now(),
	}
	if err := AppendAttempt(ctx, second); err != nil {
		t.Fatalf("second AppendAttempt failed: %v", err)
	}

	current, err := CurrentAttempt(ctx)
	if err != nil {
		t.Fatalf("CurrentAttempt failed: %v", err)
	}
	if current == nil || current.AttemptID != "ATT-2" {
		t.Fatalf("current attempt = %+v, want ATT-2", current)
	}
	if current.OrderID != "ORDER-B" || current.Method != "applepay" {
		t.Fatalf("current attempt fields = %+v", current)
	}

	if err := UpdateAttemptState(ctx, "ATT-2", "SUCCEEDED"); err != nil {
		t.Fatalf("UpdateAttemptState failed: %v", err)
	}
	current, err = CurrentAttempt(ctx)
	if err != nil {
		t.Fatalf("CurrentAttempt failed: %v", err)
	}
	if current.State != "SUCCEEDED" {
		t.Fatalf("state = %s, want SUCCEEDED", current.State)
	}
}

func TestCurrentAttemptEmptyLog(t *testing.T) {
	setupTestDB(t)

	current, err := CurrentAttempt(context.Background())
	if err != nil {
		t.Fatalf("CurrentAttempt failed: %v", err)
	}
	if current != nil {
		t.Fatalf("expected nil on empty log, got %+v", current)
	}
}
