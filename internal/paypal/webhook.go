// internal/paypal/webhook.go
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookSignature carries the transmission headers PayPal sends alongside a
// webhook POST.
type WebhookSignature struct {
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
}

// SignatureFromHeader pulls the verification headers from a webhook request.
func SignatureFromHeader(h http.Header) WebhookSignature {
	return WebhookSignature{
		TransmissionID:   h.Get("Paypal-Transmission-Id"),
		TransmissionSig:  h.Get("Paypal-Transmission-Sig"),
		TransmissionTime: h.Get("Paypal-Transmission-Time"),
		CertURL:          h.Get("Paypal-Cert-Url"),
		AuthAlgo:         h.Get("Paypal-Auth-Algo"),
	}
}

// VerifyWebhookSignature asks PayPal whether a webhook payload is authentic.
func (c *Client) VerifyWebhookSignature(ctx context.Context, webhookID string, sig WebhookSignature, payload []byte) (bool, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return false, fmt.Errorf("getting token for webhook verification: %w", err)
	}

	body := map[string]interface{}{
		"auth_algo":         sig.AuthAlgo,
		"cert_url":          sig.CertURL,
		"transmission_id":   sig.TransmissionID,
		"transmission_sig":  sig.TransmissionSig,
		"transmission_time": sig.TransmissionTime,
		"webhook_id":        webhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.apiBase() + "/v1/notifications/verify-webhook-signature")
	if err != nil {
		return false, fmt.Errorf("executing webhook verification request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, apiErrorFromBody(resp.StatusCode(), resp.Body())
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return false, fmt.Errorf("parsing webhook verification response: %w", err)
	}
	return result.VerificationStatus == "SUCCESS", nil
}
