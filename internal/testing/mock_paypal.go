// mock_paypal.go - in-process PayPal API double for flow tests
package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockPayPalService fakes the slice of the Orders v2 API the backend uses:
// OAuth token, create, get, capture and webhook signature verification.
type MockPayPalService struct {
	Server *httptest.Server
	Orders map[string]*MockOrder
	mu     sync.RWMutex

	// Failure simulation
	ShouldFailAuth       bool
	ShouldFailCreate     bool
	ShouldFailCapture    bool
	DeclineInstrument    bool // capture returns 422 INSTRUMENT_DECLINED
	SimulateNetworkDelay time.Duration

	// Counters
	AuthAttempts    int
	CreateAttempts  int
	GetAttempts     int
	CaptureAttempts int
}

// MockOrder is one provider-side order.
type MockOrder struct {
	ID       string
	Status   string
	Amount   string
	Currency string
	Created  time.Time
	Captured *time.Time
}

// NewMockPayPalService starts the mock server.
func NewMockPayPalService() *MockPayPalService {
	mock := &MockPayPalService{
		Orders: make(map[string]*MockOrder),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", mock.handleToken)
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", mock.handleVerifyWebhook)
	mux.HandleFunc("/v2/checkout/orders", mock.handleOrders)
	mux.HandleFunc("/v2/checkout/orders/", mock.handleOrderDetails)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// Close shuts down the mock server.
func (m *MockPayPalService) Close() {
	m.Server.Close()
}

// APIBase returns the mock server's base URL.
func (m *MockPayPalService) APIBase() string {
	return m.Server.URL
}

// SetOrderStatus forces an order into a given status, for reconciliation
// scenarios where the provider advanced the order without the client seeing.
func (m *MockPayPalService) SetOrderStatus(orderID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.Orders[orderID]; ok {
		order.Status = status
	}
}

// SeedOrder installs an order directly, bypassing the create endpoint.
func (m *MockPayPalService) SeedOrder(orderID, status, amount string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders[orderID] = &MockOrder{
		ID:       orderID,
		Status:   status,
		Amount:   amount,
		Currency: "GBP",
		Created:  time.Now(),
	}
}

// GetOrder retrieves an order.
func (m *MockPayPalService) GetOrder(orderID string) (*MockOrder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.Orders[orderID]
	return order, ok
}

// Reset clears all orders, counters and failure modes.
func (m *MockPayPalService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = make(map[string]*MockOrder)
	m.ShouldFailAuth = false
	m.ShouldFailCreate = false
	m.ShouldFailCapture = false
	m.DeclineInstrument = false
	m.SimulateNetworkDelay = 0
	m.AuthAttempts = 0
	m.CreateAttempts = 0
	m.GetAttempts = 0
	m.CaptureAttempts = 0
}

func (m *MockPayPalService) delay() {
	m.mu.RLock()
	d := m.SimulateNetworkDelay
	m.mu.RUnlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (m *MockPayPalService) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.AuthAttempts++
	shouldFail := m.ShouldFailAuth
	m.mu.Unlock()
	m.delay()

	if shouldFail {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":             "invalid_client",
			"error_description": "Authentication failed",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": fmt.Sprintf("mock-token-%d", time.Now().UnixNano()),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (m *MockPayPalService) handleVerifyWebhook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"verification_status": "SUCCESS"})
}

func (m *MockPayPalService) handleOrders(w http.ResponseWriter, r *http.Request) {
	m.delay()
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	m.CreateAttempts++
	shouldFail := m.ShouldFailCreate
	m.mu.Unlock()

	if shouldFail {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "INTERNAL_SERVER_ERROR",
			"message": "Order creation failed",
		})
		return
	}

	var req struct {
		Intent        string `json:"intent"`
		PurchaseUnits []struct {
			Amount struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
		} `json:"purchase_units"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.PurchaseUnits) == 0 {
		http.Error(w, "Invalid order request", http.StatusBadRequest)
		return
	}

	order := &MockOrder{
		ID:       fmt.Sprintf("MOCK-ORDER-%d", time.Now().UnixNano()),
		Status:   "CREATED",
		Amount:   req.PurchaseUnits[0].Amount.Value,
		Currency: req.PurchaseUnits[0].Amount.CurrencyCode,
		Created:  time.Now(),
	}

	m.mu.Lock()
	m.Orders[order.ID] = order
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     order.ID,
		"status": order.Status,
	})
}

func (m *MockPayPalService) handleOrderDetails(w http.ResponseWriter, r *http.Request) {
	m.delay()
	path := strings.TrimPrefix(r.URL.Path, "/v2/checkout/orders/")
	parts := strings.Split(path, "/")
	orderID := parts[0]

	switch {
	case r.Method == "GET":
		m.handleGetOrder(w, orderID)
	case r.Method == "POST" && len(parts) > 1 && parts[1] == "capture":
		m.handleCaptureOrder(w, orderID)
	default:
		http.Error(w, "Invalid endpoint", http.StatusNotFound)
	}
}

func (m *MockPayPalService) handleGetOrder(w http.ResponseWriter, orderID string) {
	m.mu.Lock()
	m.GetAttempts++
	order, ok := m.Orders[orderID]
	m.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "RESOURCE_NOT_FOUND",
			"message": "The specified resource does not exist.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     order.ID,
		"status": order.Status,
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]interface{}{
					"currency_code": order.Currency,
					"value":         order.Amount,
				},
			},
		},
	})
}

func (m *MockPayPalService) handleCaptureOrder(w http.ResponseWriter, orderID string) {
	m.mu.Lock()
	m.CaptureAttempts++
	shouldFail := m.ShouldFailCapture
	decline := m.DeclineInstrument
	order, ok := m.Orders[orderID]
	m.mu.Unlock()

	if decline {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "UNPROCESSABLE_ENTITY",
			"message": "The requested action could not be performed.",
			"details": []map[string]string{{"issue": "INSTRUMENT_DECLINED"}},
		})
		return
	}
	if shouldFail {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "INTERNAL_SERVER_ERROR",
			"message": "Capture failed",
		})
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "RESOURCE_NOT_FOUND",
			"message": "The specified resource does not exist.",
		})
		return
	}

	m.mu.Lock()
	order.Status = "COMPLETED"
	now := time.Now()
	order.Captured = &now
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     order.ID,
		"status": "COMPLETED",
		"purchase_units": []map[string]interface{}{
			{
				"payments": map[string]interface{}{
					"captures": []map[string]interface{}{
						{
							"id":     fmt.Sprintf("CAPTURE-%s", order.ID),
							"status": "COMPLETED",
							"amount": map[string]interface{}{
								"currency_code": order.Currency,
								"value":         order.Amount,
							},
						},
					},
				},
			},
		},
	})
}
