// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Product is one sellable item. The storefront owns presentation; the backend
// only needs identity and price for tamper checks.
type Product struct {
	ID    string
	Name  string
	Brand string
	Price decimal.Decimal
}

// Service answers price lookups for order verification.
type Service struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewService builds a catalog from the given products. With no products it
// falls back to the built-in storefront catalog.
func NewService(products ...Product) *Service {
	if len(products) == 0 {
		products = defaultProducts()
	}
	s := &Service{products: make(map[string]Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Lookup returns the product for id.
func (s *Service) Lookup(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// VerifyPrice checks a client-submitted unit price against the catalog.
// Unknown ids pass: one-off consultation line items are priced upstream.
func (s *Service) VerifyPrice(id string, unitPrice decimal.Decimal) error {
	p, ok := s.Lookup(id)
	if !ok {
		return nil
	}
	if !p.Price.Equal(unitPrice) {
		return fmt.Errorf("price mismatch for %s: client sent %s, catalog has %s",
			id, unitPrice.StringFixed(2), p.Price.StringFixed(2))
	}
	return nil
}

func defaultProducts() []Product {
	price := func(v string) decimal.Decimal {
		d, _ := decimal.NewFromString(v)
		return d
	}
	return []Product{
		{ID: "sedona-pemf-chair", Name: "SEDONA PEMF Chair", Brand: "Sedona Wellness", Price: price("12500")},
		{ID: "sedona-elite-pemf-mat", Name: "SEDONA Elite PEMF Mat", Brand: "Sedona Wellness", Price: price("6200")},
		{ID: "sedona-pro-plus-pemf-mat", Name: "SEDONA Pro Plus PEMF Mat", Brand: "Sedona Wellness", Price: price("5400")},
		{ID: "sedona-pro-pemf-mat", Name: "SEDONA Pro PEMF Mat", Brand: "Sedona Wellness", Price: price("4600")},
		{ID: "sedona-pemf-face-mask", Name: "SEDONA PEMF Face Mask", Brand: "Sedona Wellness", Price: price("305")},
		{ID: "timmyzzz-pemf-pillow", Name: "TimmyZzz PEMF Pillow", Brand: "Sedona Wellness", Price: price("305")},
		{ID: "calm", Name: "CALM", Brand: "F+NCTION", Price: price("115")},
		{ID: "calm-starter-pack", Name: "CALM Starter Pack", Brand: "F+NCTION", Price: price("142")},
		{ID: "focus", Name: "FOCUS (4PK)", Brand: "F+NCTION", Price: price("16")},
	}
}
