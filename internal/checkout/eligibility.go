// internal/checkout/eligibility.go
package checkout

import (
	"context"
	"sync"

	"swcbackend/internal/logger"
)

// Flags are the probed payment-capability gates.
type Flags struct {
	CardFieldsEligible bool
	ApplePayEligible   bool
}

// ApplePayConfig is the merchant-side wallet configuration the provider
// hands back when the account is provisioned for Apple Pay.
type ApplePayConfig struct {
	MerchantCapabilities []string
	SupportedNetworks    []string
	CountryCode          string
}

// Capabilities is what a loaded payment SDK reports about this merchant
// account and session.
type Capabilities interface {
	Ready() bool
	CardFieldsEligible() bool
	ApplePayConfig() (ApplePayConfig, bool)
}

// SDKLoader loads the provider SDK once and returns its capabilities.
// Ensure must be idempotent; repeated calls return the same capabilities.
type SDKLoader interface {
	Ensure(ctx context.Context) (Capabilities, error)
}

// Platform reports what the customer's device and browser can do.
type Platform interface {
	CanMakePayments() bool
}

// Prober determines which payment methods this session may offer. Apple Pay
// requires both the platform gate and the merchant configuration gate;
// either alone is not enough.
type Prober struct {
	loader   SDKLoader
	platform Platform

	mu     sync.Mutex
	probed bool
	flags  Flags
}

// NewProber builds a prober over the given SDK loader and platform.
func NewProber(loader SDKLoader, platform Platform) *Prober {
	return &Prober{loader: loader, platform: platform}
}

// Probe evaluates eligibility once and caches the result. Probe never
// fails the checkout: when the SDK cannot load, everything is ineligible
// and the PayPal button alone remains.
func (p *Prober) Probe(ctx context.Context) Flags {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.probed {
		return p.flags
	}
	p.probed = true

	caps, err := p.loader.Ensure(ctx)
	if err != nil {
		logger.LogWarn("Payment SDK unavailable, card fields and Apple Pay disabled: %v", err)
		return p.flags
	}
	if caps == nil || !caps.Ready() {
		logger.LogWarn("Payment SDK loaded but not ready, card fields and Apple Pay disabled")
		return p.flags
	}

	p.flags.CardFieldsEligible = caps.CardFieldsEligible()

	if _, merchantOK := caps.ApplePayConfig(); merchantOK && p.platform.CanMakePayments() {
		p.flags.ApplePayEligible = true
	}

	logger.LogInfo("Eligibility probe: cardFields=%t applePay=%t",
		p.flags.CardFieldsEligible, p.flags.ApplePayEligible)
	return p.flags
}

// Flags returns the cached probe result; zero flags before the first Probe.
func (p *Prober) Flags() Flags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}
