package wallet

import (
	"strings"

	"github.com/google/uuid"
)

// Reference prefixes for ledger rows created by the service itself
const (
	paypalPrefix           = "paypal:"
	withdrawalRefundPrefix = "withdrawal-refund:"
	voteSpendPrefix        = "vote-spend:"
)

// PayPalReference is the ledger reference of a PayPal capture. Direct credits
// and guest claims of the same capture share it, so a capture pays out once.
func PayPalReference(captureID string) string {
	return paypalPrefix + strings.TrimSpace(captureID)
}

// VoteSpendReference is the ledger reference of a token vote spend. A client
// supplied key makes retries of the same spend idempotent.
func VoteSpendReference(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		key = uuid.NewString()
	}
	return voteSpendPrefix + key
}

// VoteReference is the reference a paid vote is initialized with
func VoteReference() string {
	return "vote_" + uuid.NewString()
}

// minorPerUnit is the number of minor units (kobo, cents) in one unit of the
// local currency
const minorPerUnit = 100

// MinorUnits converts a local currency amount to the minor units providers
// report
func MinorUnits(fiat int64) int64 {
	return fiat * minorPerUnit
}

// TokensForAmount converts a provider amount in minor units into whole tokens.
// Remainders that do not buy a whole token are ignored.
func TokensForAmount(minorUnits, minorPerToken int64) int64 {
	if minorUnits <= 0 || minorPerToken <= 0 {
		return 0
	}
	return minorUnits / minorPerToken
}
