// internal/paypal/client.go
package paypal

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"swcbackend/internal/logger"
)

// Client speaks the PayPal Orders v2 REST API.
type Client struct {
	clientID string
	secret   string
	apiBase  func() string // config can repoint the base at runtime (tests)

	http *resty.Client

	tokenMu        sync.Mutex
	cachedToken    string
	tokenExpiresAt time.Time
}

// NewClient builds a client against the given API base.
func NewClient(clientID, secret string, apiBase func() string) *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12})

	return &Client{
		clientID: clientID,
		secret:   secret,
		apiBase:  apiBase,
		http:     r,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	AppID       string `json:"app_id"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// APIError is an error response body from the PayPal API. The raw body is
// kept verbatim for diagnostics; Issue carries machine-readable decline
// signals such as INSTRUMENT_DECLINED.
type APIError struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
	Details    []struct {
		Field string `json:"field,omitempty"`
		Issue string `json:"issue"`
	} `json:"details,omitempty"`
	Raw string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Raw != "" {
		return e.Raw
	}
	return fmt.Sprintf("paypal: %s (%s)", e.Message, e.Name)
}

func apiErrorFromBody(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Raw: string(body)}
	// Best effort; a non-JSON body still surfaces through Raw.
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}

// AccessToken returns a cached OAuth2 token, fetching a new one when the
// cache is cold or within a minute of expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	if c.cachedToken != "" && time.Now().Before(c.tokenExpiresAt) {
		token := c.cachedToken
		c.tokenMu.Unlock()
		return token, nil
	}
	c.tokenMu.Unlock()

	logger.LogInfo("Requesting new PayPal access token")
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.secret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(c.apiBase() + "/v1/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("executing PayPal auth request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		logger.LogError("PayPal auth error (HTTP %d): %s", resp.StatusCode(), resp.String())
		return "", apiErrorFromBody(resp.StatusCode(), resp.Body())
	}

	var result tokenResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("parsing PayPal auth response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("access token not found in PayPal response")
	}

	// Renew a minute before actual expiry.
	c.tokenMu.Lock()
	c.cachedToken = result.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(result.ExpiresIn-60) * time.Second)
	token := c.cachedToken
	c.tokenMu.Unlock()

	logger.LogInfo("Fetched and cached new PayPal access token (expires at %v)", c.tokenExpiresAt)
	return token, nil
}

// InvalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) InvalidateToken() {
	c.tokenMu.Lock()
	c.cachedToken = ""
	c.tokenMu.Unlock()
}
