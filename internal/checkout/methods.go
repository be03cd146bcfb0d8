// internal/checkout/methods.go
package checkout

import (
	"context"
	"sync"

	"swcbackend/internal/logger"
)

// Method identifies a way to pay.
type Method string

const (
	MethodPayPal   Method = "paypal"
	MethodCard     Method = "card"
	MethodApplePay Method = "applepay"
)

// Driver mounts one payment method's authorization UI. Mount must be safe
// to call after a previous driver's Unmount; Unmount must be idempotent.
type Driver interface {
	Method() Method
	Mount(ctx context.Context) error
	Unmount()
}

// Selector owns which payment method is active. At most one driver is
// mounted at a time; the previous driver is always unmounted before the
// next one mounts so two authorization UIs never coexist.
type Selector struct {
	mu         sync.Mutex
	drivers    map[Method]Driver
	active     Driver
	userChosen bool
	defaulted  bool // Apple Pay was auto-selected once already
}

// NewSelector registers the available drivers. Nothing is mounted yet.
func NewSelector(drivers ...Driver) *Selector {
	m := make(map[Method]Driver, len(drivers))
	for _, d := range drivers {
		m[d.Method()] = d
	}
	return &Selector{drivers: m}
}

// Active returns the currently mounted method, or empty when none is.
func (s *Selector) Active() Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.Method()
}

// Select switches to the given method at the user's request. A user choice
// is sticky: eligibility changes will no longer auto-switch methods.
func (s *Selector) Select(ctx context.Context, method Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userChosen = true
	return s.mountLocked(ctx, method)
}

// ApplyEligibility adjusts the selection to the probed eligibility flags.
// Apple Pay is auto-selected at most once, and only when the user has not
// chosen a method themselves. An active method that turns ineligible falls
// back to PayPal, which is always available.
func (s *Selector) ApplyEligibility(ctx context.Context, flags Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		switch s.active.Method() {
		case MethodApplePay:
			if !flags.ApplePayEligible {
				logger.LogWarn("Apple Pay no longer eligible, falling back to PayPal")
				return s.mountLocked(ctx, MethodPayPal)
			}
		case MethodCard:
			if !flags.CardFieldsEligible {
				logger.LogWarn("Card fields no longer eligible, falling back to PayPal")
				return s.mountLocked(ctx, MethodPayPal)
			}
		}
		return nil
	}

	if flags.ApplePayEligible && !s.userChosen && !s.defaulted {
		if _, ok := s.drivers[MethodApplePay]; ok {
			s.defaulted = true
			logger.LogInfo("Defaulting to Apple Pay")
			return s.mountLocked(ctx, MethodApplePay)
		}
	}
	return s.mountLocked(ctx, MethodPayPal)
}

func (s *Selector) mountLocked(ctx context.Context, method Method) error {
	driver, ok := s.drivers[method]
	if !ok {
		// Unknown methods degrade to PayPal rather than leaving the
		// checkout with no mounted UI.
		driver, ok = s.drivers[MethodPayPal]
		if !ok {
			logger.LogError("No driver registered for method %s and no PayPal fallback", method)
			return &OrderCreationError{Raw: "no payment method available"}
		}
		logger.LogWarn("No driver for method %s, using PayPal", method)
	}

	if s.active != nil {
		if s.active == driver {
			return nil
		}
		s.active.Unmount()
		s.active = nil
	}

	if err := driver.Mount(ctx); err != nil {
		logger.LogError("Failed to mount %s: %v", driver.Method(), err)
		return err
	}
	s.active = driver
	logger.LogInfo("Mounted payment method %s", driver.Method())
	return nil
}

// Teardown unmounts whatever is active.
func (s *Selector) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Unmount()
		s.active = nil
	}
}
