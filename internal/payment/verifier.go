// Package payment confirms inbound payment claims against the provider's own
// server API. Nothing here mutates the ledger.
package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"event_wallet/internal/apperr"
)

// Verification is the provider-normalized result of a verification call.
// Amount is in the currency's minor units.
type Verification struct {
	Verified              bool   `json:"verified"`
	ProviderStatus        string `json:"provider_status"`
	ProviderTransactionID string `json:"provider_transaction_id"`
	Reference             string `json:"reference"`
	Amount                int64  `json:"amount"`
	Currency              string `json:"currency"`
}

// StatusCurrencyMismatch is the provider status reported for a payment made
// in an unexpected currency
const StatusCurrencyMismatch = "currency_mismatch"

// Verifier confirms that the payment identified by reference succeeded.
//
// When the provider reports the payment as not successful, Verify returns the
// normalized Verification together with apperr.ErrPaymentNotSuccessful so the
// caller can surface the provider status.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}

func requireReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return apperr.WithMessage(apperr.ErrInvalidRequest, "reference is required")
	}
	return nil
}

// unavailable turns a transport failure or a non-2xx response into ProviderUnavailable
func unavailable(provider string, resp *http.Response, err error) error {
	if err != nil {
		return apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("%s: %w", provider, err))
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return apperr.Wrap(apperr.ErrProviderUnavailable, fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body))))
}

func notSuccessful(v *Verification) (*Verification, error) {
	return v, apperr.Wrap(apperr.ErrPaymentNotSuccessful, fmt.Errorf("provider status %q for %s", v.ProviderStatus, v.Reference))
}

// currencyMismatch fails a successful payment made in a currency other than
// the one tokens are priced in. Amounts in different currencies never compare.
func currencyMismatch(v *Verification, currency string) (*Verification, error) {
	v.ProviderStatus = StatusCurrencyMismatch
	return v, apperr.Wrap(apperr.ErrPaymentNotSuccessful, fmt.Errorf("paid in %q, expected %q for %s", v.Currency, currency, v.Reference))
}

func sameCurrency(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), want)
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
