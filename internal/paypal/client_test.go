package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func tokenHandler(counter *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(counter, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": fmt.Sprintf("token-%d", atomic.LoadInt64(counter)),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}
}

func TestAccessTokenIsCached(t *testing.T) {
	var tokenRequests int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(&tokenRequests))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("id", "secret", func() string { return srv.URL })
	ctx := context.Background()

	first, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("first AccessToken failed: %v", err)
	}
	second, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("second AccessToken failed: %v", err)
	}

	if first != second {
		t.Fatalf("cached token changed: %s vs %s", first, second)
	}
	if got := atomic.LoadInt64(&tokenRequests); got != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", got)
	}

	client.InvalidateToken()
	third, err := client.AccessToken(ctx)
	if err != nil {
		t.Fatalf("AccessToken after invalidate failed: %v", err)
	}
	if third == first {
		t.Fatal("invalidated token was reused")
	}
	if got := atomic.LoadInt64(&tokenRequests); got != 2 {
		t.Fatalf("token endpoint hit %d times after invalidate, want 2", got)
	}
}

func TestAccessTokenAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("id", "wrong", func() string { return srv.URL })
	if _, err := client.AccessToken(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestCreateOrder(t *testing.T) {
	var tokenRequests int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(&tokenRequests))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("create body did not decode: %v", err)
		}
		if req.Intent != "CAPTURE" {
			t.Errorf("intent = %s, want CAPTURE", req.Intent)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-9", "status": "CREATED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("id", "secret", func() string { return srv.URL })
	order, raw, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{{
			Amount: PurchaseAmount{CurrencyCode: "GBP", Value: "115.00"},
		}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "ORDER-9" || order.Status != StatusCreated {
		t.Fatalf("order = %+v", order)
	}
	if len(raw) == 0 {
		t.Fatal("raw response body not returned")
	}
}

func TestCaptureOrderAPIError(t *testing.T) {
	var tokenRequests int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(&tokenRequests))
	mux.HandleFunc("/v2/checkout/orders/ORDER-10/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":    "UNPROCESSABLE_ENTITY",
			"message": "The requested action could not be performed.",
			"details": []map[string]string{{"issue": "INSTRUMENT_DECLINED"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("id", "secret", func() string { return srv.URL })
	_, _, err := client.CaptureOrder(context.Background(), "ORDER-10")
	if err == nil {
		t.Fatal("expected a capture error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", apiErr.StatusCode)
	}
	if len(apiErr.Details) != 1 || apiErr.Details[0].Issue != "INSTRUMENT_DECLINED" {
		t.Fatalf("details = %+v, want INSTRUMENT_DECLINED", apiErr.Details)
	}
	if apiErr.Raw == "" {
		t.Fatal("raw body lost from API error")
	}
}

func TestGetOrder(t *testing.T) {
	var tokenRequests int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(&tokenRequests))
	mux.HandleFunc("/v2/checkout/orders/ORDER-11", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-11", "status": "APPROVED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("id", "secret", func() string { return srv.URL })
	order, err := client.GetOrder(context.Background(), "ORDER-11")
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.Status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", order.Status)
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusCompleted, StatusVoided, StatusDeclined, StatusExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []OrderStatus{StatusCreated, StatusSaved, StatusApproved, StatusPayerActionRequired}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
