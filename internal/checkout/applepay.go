// internal/checkout/applepay.go
package checkout

import (
	"context"
	"encoding/json"

	"swcbackend/internal/logger"
)

// Contact is the shipping/billing contact collected from the wallet payment
// sheet. Field availability depends on what the sheet requested.
type Contact struct {
	GivenName    string   `json:"givenName,omitempty"`
	FamilyName   string   `json:"familyName,omitempty"`
	Email        string   `json:"emailAddress,omitempty"`
	Phone        string   `json:"phoneNumber,omitempty"`
	AddressLines []string `json:"addressLines,omitempty"`
	City         string   `json:"locality,omitempty"`
	PostalCode   string   `json:"postalCode,omitempty"`
	CountryCode  string   `json:"countryCode,omitempty"`
}

// PaymentToken is the opaque wallet payment token confirmed against the
// provider order before capture.
type PaymentToken struct {
	Raw json.RawMessage
}

// MerchantValidator performs the wallet merchant-validation handshake,
// exchanging the session's validation URL for a merchant session blob.
type MerchantValidator interface {
	ValidateMerchant(ctx context.Context, validationURL string) (json.RawMessage, error)
}

// TokenConfirmer binds a wallet payment token to a provider order. With the
// provider used here this is the order confirm call made before capture.
type TokenConfirmer interface {
	ConfirmToken(ctx context.Context, orderID string, token PaymentToken) error
}

// WalletSession drives the wallet-specific half of an attempt: merchant
// validation when the payment sheet opens, then token confirmation and
// capture when the customer authorizes.
type WalletSession struct {
	coordinator *Coordinator
	validator   MerchantValidator
	confirmer   TokenConfirmer
}

// NewWalletSession builds a wallet session over the coordinator.
func NewWalletSession(c *Coordinator, v MerchantValidator, tc TokenConfirmer) *WalletSession {
	return &WalletSession{coordinator: c, validator: v, confirmer: tc}
}

// HandleMerchantValidation is called when the payment sheet opens. A
// validation failure aborts the sheet but not the attempt; the customer can
// still pay with another method.
func (w *WalletSession) HandleMerchantValidation(ctx context.Context, validationURL string) (json.RawMessage, error) {
	session, err := w.validator.ValidateMerchant(ctx, validationURL)
	if err != nil {
		logger.LogError("Merchant validation failed: %v", err)
		return nil, err
	}
	logger.LogInfo("Merchant validated for wallet session")
	return session, nil
}

// HandlePaymentAuthorized is called when the customer authorizes in the
// payment sheet. The contact is stored before capture so a successful
// outcome carries it; the token is confirmed against the order, then the
// normal capture path runs.
func (w *WalletSession) HandlePaymentAuthorized(ctx context.Context, orderID string, token PaymentToken, contact *Contact) error {
	w.coordinator.mu.Lock()
	w.coordinator.pendingContact = contact
	w.coordinator.mu.Unlock()

	if w.confirmer != nil {
		if err := w.confirmer.ConfirmToken(ctx, orderID, token); err != nil {
			raw := Normalize(err)
			w.coordinator.setFailure(raw)
			w.coordinator.reporter.Failure(UserMessage(raw))
			return err
		}
	}

	if _, err := w.coordinator.CaptureOrder(ctx, orderID); err != nil {
		raw := Normalize(err)
		w.coordinator.setFailure(raw)
		w.coordinator.reporter.Failure(UserMessage(raw))
		return err
	}
	return nil
}
