// internal/cart/cart.go
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one cart entry. Owned by the storefront cart; the payment core
// treats it as read-only.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal is quantity times unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate rejects line items the backend would refuse anyway.
func (li LineItem) Validate() error {
	if li.ID == "" {
		return fmt.Errorf("line item missing id")
	}
	if li.Name == "" {
		return fmt.Errorf("line item %s missing name", li.ID)
	}
	if li.Quantity <= 0 {
		return fmt.Errorf("line item %s has non-positive quantity %d", li.ID, li.Quantity)
	}
	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("line item %s has negative unit price %s", li.ID, li.UnitPrice)
	}
	return nil
}

// Snapshot is an immutable view of the cart taken at create time. A fresh
// snapshot is taken for every create attempt; it is never persisted.
type Snapshot struct {
	Items []LineItem
}

// Snap copies the items so later cart mutations cannot leak into an
// in-flight order request.
func Snap(items []LineItem) Snapshot {
	copied := make([]LineItem, len(items))
	copy(copied, items)
	return Snapshot{Items: copied}
}

// Validate checks every line item.
func (s Snapshot) Validate() error {
	if len(s.Items) == 0 {
		return fmt.Errorf("cart is empty")
	}
	for _, li := range s.Items {
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal sums the line-item subtotals.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.Items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// ShippingCost applies the shop shipping policy: free at or over the
// threshold, flat rate below it.
func ShippingCost(subtotal, freeThreshold, flatRate decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return flatRate
}

// Total is subtotal plus shipping.
func (s Snapshot) Total(shipping decimal.Decimal) decimal.Decimal {
	return s.Subtotal().Add(shipping)
}
