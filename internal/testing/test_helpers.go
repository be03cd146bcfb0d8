// test_helpers.go - shared wiring for integration tests
package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"swcbackend/internal/catalog"
	"swcbackend/internal/checkout"
	"swcbackend/internal/config"
	"swcbackend/internal/data"
	"swcbackend/internal/payment"
	"swcbackend/internal/paypal"
)

// TestSuite wires a fresh database, a mock PayPal service and the payment
// service together for one test.
type TestSuite struct {
	PayPal  *MockPayPalService
	Client  *paypal.Client
	Service *payment.Service
	DBPath  string
}

// NewTestSuite builds the suite. Cleanup tears everything down.
func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()

	testDir := filepath.Join(os.TempDir(), fmt.Sprintf("swctest_%d_%d",
		time.Now().UnixNano(), os.Getpid()))
	if err := os.MkdirAll(testDir, 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}

	dbPath := filepath.Join(testDir, "test.db")
	if err := data.InitDB(dbPath); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	mock := NewMockPayPalService()
	config.SetAPIBase(mock.APIBase())
	config.SetPayPalCredentials("test-client-id", "test-client-secret")

	client := paypal.NewClient("test-client-id", "test-client-secret", config.APIBase)
	svc := payment.NewService(client, catalog.NewService())

	t.Cleanup(func() {
		mock.Close()
		data.CloseDB()
		os.RemoveAll(testDir)
	})

	return &TestSuite{
		PayPal:  mock,
		Client:  client,
		Service: svc,
		DBPath:  dbPath,
	}
}

// captureReporter records the terminal outcome a coordinator reports.
type captureReporter struct {
	mu        sync.Mutex
	successes []checkout.Result
	failures  []string
}

func (r *captureReporter) Success(res checkout.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, res)
}

func (r *captureReporter) Failure(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, msg)
}

func (r *captureReporter) lastSuccess() (checkout.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.successes) == 0 {
		return checkout.Result{}, false
	}
	return r.successes[len(r.successes)-1], true
}

func (r *captureReporter) lastFailure() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		return "", false
	}
	return r.failures[len(r.failures)-1], true
}
