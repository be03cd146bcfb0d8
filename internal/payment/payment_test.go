package payment

import (
	"testing"

	"github.com/shopspring/decimal"

	"swcbackend/internal/catalog"
)

func testService() *Service {
	return NewService(nil, catalog.NewService(
		catalog.Product{ID: "calm", Name: "CALM", Price: decimal.NewFromInt(115)},
		catalog.Product{ID: "focus", Name: "FOCUS (4PK)", Price: decimal.NewFromInt(16)},
	))
}

func TestVerifyAmounts(t *testing.T) {
	svc := testService()

	in := CreateOrderInput{
		Amount: decimal.NewFromFloat(151.99),
		Items: []ItemInput{
			{ID: "calm", Name: "CALM", Quantity: 1, UnitPrice: decimal.NewFromInt(115)},
			{ID: "focus", Name: "FOCUS (4PK)", Quantity: 2, UnitPrice: decimal.NewFromInt(16)},
		},
	}

	itemTotal, shipping, err := svc.verifyAmounts(in)
	if err != nil {
		t.Fatalf("verifyAmounts failed: %v", err)
	}
	if itemTotal.StringFixed(2) != "147.00" {
		t.Errorf("item total = %s, want 147.00", itemTotal.StringFixed(2))
	}
	if shipping.StringFixed(2) != "4.99" {
		t.Errorf("shipping = %s, want 4.99", shipping.StringFixed(2))
	}
}

func TestVerifyAmountsRejectsTamperedPrice(t *testing.T) {
	svc := testService()

	_, _, err := svc.verifyAmounts(CreateOrderInput{
		Amount: decimal.NewFromFloat(1.15),
		Items: []ItemInput{
			{ID: "calm", Name: "CALM", Quantity: 1, UnitPrice: decimal.NewFromFloat(1.15)},
		},
	})
	if err == nil {
		t.Fatal("tampered catalog price accepted")
	}
}

func TestVerifyAmountsRejectsShortAmount(t *testing.T) {
	svc := testService()

	_, _, err := svc.verifyAmounts(CreateOrderInput{
		Amount: decimal.NewFromInt(100),
		Items: []ItemInput{
			{ID: "calm", Name: "CALM", Quantity: 1, UnitPrice: decimal.NewFromInt(115)},
		},
	})
	if err == nil {
		t.Fatal("amount below item total accepted")
	}
}

func TestVerifyAmountsRejectsEmptyAndInvalid(t *testing.T) {
	svc := testService()

	if _, _, err := svc.verifyAmounts(CreateOrderInput{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Error("empty item list accepted")
	}

	if _, _, err := svc.verifyAmounts(CreateOrderInput{
		Amount: decimal.Zero,
		Items:  []ItemInput{{Name: "X", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	}); err == nil {
		t.Error("zero amount accepted")
	}

	if _, _, err := svc.verifyAmounts(CreateOrderInput{
		Amount: decimal.NewFromInt(10),
		Items:  []ItemInput{{Name: "X", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}},
	}); err == nil {
		t.Error("zero quantity accepted")
	}
}

func TestVerifyAmountsAllowsUncataloguedItems(t *testing.T) {
	svc := testService()

	_, shipping, err := svc.verifyAmounts(CreateOrderInput{
		Amount: decimal.NewFromInt(250),
		Items: []ItemInput{
			{ID: "custom-consultation", Name: "Consultation", Quantity: 1, UnitPrice: decimal.NewFromInt(250)},
		},
	})
	if err != nil {
		t.Fatalf("uncatalogued item rejected: %v", err)
	}
	if !shipping.IsZero() {
		t.Errorf("shipping = %s, want 0", shipping)
	}
}
