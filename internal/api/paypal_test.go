package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"event_wallet/internal/domain"
)

type guestBody struct {
	GuestToken  string `json:"guestToken"`
	CaptureID   string `json:"captureId"`
	TokenAmount int64  `json:"tokenAmount"`
	ExpiresAt   string `json:"expiresAt"`
	ClaimURL    string `json:"claimUrl"`
}

type claimBody struct {
	Success     bool  `json:"success"`
	NewBalance  int64 `json:"newBalance"`
	TokenAmount int64 `json:"tokenAmount"`
	Claimed     bool  `json:"claimed"`
}

func TestGuestCaptureAndClaim(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	otherID, _ := h.user("bob", domain.RoleUser)
	h.paypal.succeed("ORDER1", "CAP1", 1000) // 10.00 buys 10 tokens

	w := h.do(http.MethodPost, "/api/paypal/capture-guest", "", CaptureRequest{OrderID: "ORDER1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	guest := decode[guestBody](t, w)
	require.NotEmpty(t, guest.GuestToken)
	require.Equal(t, "CAP1", guest.CaptureID)
	require.Equal(t, int64(10), guest.TokenAmount)
	require.NotEmpty(t, guest.ExpiresAt)
	require.True(t, strings.HasPrefix(guest.ClaimURL, "https://events.example.com/signup?"), guest.ClaimURL)
	require.Contains(t, guest.ClaimURL, "guestToken="+guest.GuestToken)

	claim := ClaimGuestRequest{UserID: otherID, CaptureID: "CAP1", TokenAmount: 10, GuestToken: guest.GuestToken}
	w = h.do(http.MethodPost, "/api/paypal/claim-guest", token, claim)
	requireError(t, w, http.StatusForbidden, "forbidden")

	claim.UserID = userID
	w = h.do(http.MethodPost, "/api/paypal/claim-guest", token, claim)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[claimBody](t, w)
	require.True(t, body.Success)
	require.True(t, body.Claimed)
	require.Equal(t, int64(10), body.NewBalance)
	require.Equal(t, int64(10), body.TokenAmount)

	w = h.do(http.MethodPost, "/api/paypal/claim-guest", token, claim)
	requireError(t, w, http.StatusConflict, "already_claimed")
	require.Equal(t, int64(10), h.balance(userID))

	// The capture is spent; a direct capture of the same order pays nothing more.
	w = h.do(http.MethodPost, "/api/paypal/capture", token, CaptureRequest{OrderID: "ORDER1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decode[creditBody](t, w).Duplicate)
	require.Equal(t, int64(10), h.balance(userID))
}

func TestCapturePayPal(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	h.paypal.succeed("ORDER2", "CAP2", 550)
	h.paypal.decline("ORDER3")

	w := h.do(http.MethodPost, "/api/paypal/capture", token, CaptureRequest{OrderID: "ORDER2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[creditBody](t, w)
	require.Equal(t, int64(5), first.TokenAmount)
	require.False(t, first.Duplicate)

	w = h.do(http.MethodPost, "/api/paypal/capture", token, CaptureRequest{OrderID: "ORDER2"})
	require.True(t, decode[creditBody](t, w).Duplicate)
	require.Equal(t, int64(5), h.balance(userID))

	w = h.do(http.MethodPost, "/api/paypal/capture", token, CaptureRequest{OrderID: "ORDER3"})
	requireError(t, w, http.StatusBadRequest, "payment_not_successful")

	w = h.do(http.MethodPost, "/api/paypal/capture-guest", "", CaptureRequest{OrderID: "ORDER2"})
	requireError(t, w, http.StatusConflict, "conflict")
}
