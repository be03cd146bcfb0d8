// internal/checkout/messages.go
package checkout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// User-facing messages. Exactly one of these (or a raw passthrough) reaches
// the customer per failed attempt; raw diagnostics are kept separately.
const (
	MsgBankDeclined     = "Your bank declined the payment method. Please try another card or PayPal balance."
	MsgCompliance       = "This payment was declined for compliance reasons. Please contact us to arrange an alternative."
	MsgCardsUnavailable = "Card payments are unavailable right now. Please pay with PayPal instead."
	MsgPaymentDeclined  = "Your payment was declined. Please try a different payment method."
	MsgGenericFailure   = "Something went wrong processing your payment. Please try again."
	MsgNotConfigured    = "Payments are not configured. Please contact the shop."
)

// Normalize flattens the heterogeneous failure shapes the authorization UIs
// and backend produce into one raw diagnostic string: errors keep their
// message, strings pass through, anything else is serialized best-effort.
func Normalize(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case error:
		return val.Error()
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// UserMessage derives the customer-facing message from a normalized raw
// diagnostic. Known provider signals map to fixed phrasings; anything else
// passes through, with a generic fallback for empty input.
func UserMessage(raw string) string {
	if raw == "" {
		return MsgGenericFailure
	}

	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "COMPLIANCE_VIOLATION"):
		return MsgCompliance
	case strings.Contains(upper, "INSTRUMENT_DECLINED"):
		return MsgBankDeclined
	case strings.Contains(upper, "NOT_ELIGIBLE"):
		return MsgCardsUnavailable
	}
	return raw
}
