package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"event_wallet/internal/apperr"
)

// PaystackClient verifies card payments with GET /transaction/verify/{reference}.
// Payments not made in Currency are rejected.
type PaystackClient struct {
	BaseURL    string
	SecretKey  string
	Currency   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewPaystackClient builds a client; timeout bounds every verification call
func NewPaystackClient(baseURL, secretKey, currency string, timeout time.Duration) *PaystackClient {
	return &PaystackClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SecretKey:  secretKey,
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        json.Number `json:"id"`
		Status    string      `json:"status"`
		Reference string      `json:"reference"`
		Amount    int64       `json:"amount"`
		Currency  string      `json:"currency"`
	} `json:"data"`
}

// Verify implements Verifier
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	if err := requireReference(reference); err != nil {
		return nil, err
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, unavailable("paystack", nil, err)
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return nil, unavailable("paystack", resp, nil)
	}

	var body paystackVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("paystack: decode response: %w", err))
	}

	v := &Verification{
		ProviderStatus:        body.Data.Status,
		ProviderTransactionID: body.Data.ID.String(),
		Reference:             reference,
		Amount:                body.Data.Amount,
		Currency:              body.Data.Currency,
	}
	if body.Data.Reference != "" && body.Data.Reference != reference {
		v.ProviderStatus = "reference_mismatch"
		return notSuccessful(v)
	}
	if !body.Status || body.Data.Status != "success" {
		if v.ProviderStatus == "" {
			v.ProviderStatus = "failed"
		}
		return notSuccessful(v)
	}
	if !sameCurrency(v.Currency, c.Currency) {
		return currencyMismatch(v, c.Currency)
	}
	v.Verified = true
	return v, nil
}
