package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"event_wallet/internal/apperr"
)

const paypalCompleted = "COMPLETED"

// PayPalClient verifies PayPal orders and captures server to server. The
// browser only ever hands us an order or capture id. Captures not made in
// Currency are rejected.
type PayPalClient struct {
	BaseURL    string
	ClientID   string
	Secret     string
	Currency   string
	HTTPClient *http.Client
	Timeout    time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewPayPalClient builds a client; timeout bounds every provider call
func NewPayPalClient(baseURL, clientID, secret, currency string, timeout time.Duration) *PayPalClient {
	return &PayPalClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ClientID:   clientID,
		Secret:     secret,
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
		now:        time.Now,
	}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCapture struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount paypalAmount `json:"amount"`
}

type paypalOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []paypalCapture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// Verify implements Verifier for a capture id
func (c *PayPalClient) Verify(ctx context.Context, captureID string) (*Verification, error) {
	if err := requireReference(captureID); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var capture paypalCapture
	if err := c.get(ctx, "/v2/payments/captures/"+url.PathEscape(captureID), &capture); err != nil {
		return nil, err
	}
	return captureVerification(captureID, capture, c.Currency)
}

// VerifyOrder checks a completed order and returns its first capture
func (c *PayPalClient) VerifyOrder(ctx context.Context, orderID string) (*Verification, error) {
	if err := requireReference(orderID); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var order paypalOrder
	if err := c.get(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	if order.Status != paypalCompleted {
		return notSuccessful(&Verification{ProviderStatus: order.Status, Reference: orderID})
	}
	if len(order.PurchaseUnits) == 0 || len(order.PurchaseUnits[0].Payments.Captures) == 0 {
		return notSuccessful(&Verification{ProviderStatus: "NO_CAPTURE", Reference: orderID})
	}
	return captureVerification(orderID, order.PurchaseUnits[0].Payments.Captures[0], c.Currency)
}

func captureVerification(reference string, capture paypalCapture, currency string) (*Verification, error) {
	v := &Verification{
		ProviderStatus:        capture.Status,
		ProviderTransactionID: capture.ID,
		Reference:             reference,
		Currency:              capture.Amount.CurrencyCode,
	}
	if capture.Amount.Value != "" {
		amount, err := decimal.NewFromString(capture.Amount.Value)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("paypal: malformed amount %q: %w", capture.Amount.Value, err))
		}
		v.Amount = amount.Shift(2).IntPart()
	}
	if capture.Status != paypalCompleted {
		return notSuccessful(v)
	}
	if !sameCurrency(v.Currency, currency) {
		return currencyMismatch(v, currency)
	}
	v.Verified = true
	return v, nil
}

func (c *PayPalClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}

func (c *PayPalClient) get(ctx context.Context, path string, dest any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return unavailable("paypal", nil, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.dropToken()
	}
	if !ok(resp) {
		return unavailable("paypal", resp, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("paypal: decode response: %w", err))
	}
	return nil
}

// accessToken returns a cached client-credentials token, refreshing it a
// minute before expiry.
func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", unavailable("paypal oauth", nil, err)
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return "", unavailable("paypal oauth", resp, nil)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("paypal oauth: malformed token response: %v", err))
	}
	c.token = body.AccessToken
	c.expiresAt = c.now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *PayPalClient) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
