package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"event_wallet/internal/domain"
)

type walletBody struct {
	Wallet domain.Wallet `json:"wallet"`
	Cached bool          `json:"cached"`
}

func TestVerifyTopUpCreditsOnce(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	h.paystack.succeed("REF1", "9001", 50000) // 500.00 buys 5 tokens at 100 per token

	w := h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "REF1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[creditBody](t, w)
	require.True(t, first.Success)
	require.Equal(t, int64(5), first.NewBalance)
	require.False(t, first.Duplicate)

	w = h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "REF1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	again := decode[creditBody](t, w)
	require.True(t, again.Duplicate)
	require.Equal(t, int64(5), again.NewBalance)

	require.Equal(t, int64(5), h.balance(userID))
	require.Equal(t, int64(1), countTransactions(t, h.db))
}

func TestVerifyTopUpProviderFailures(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	h.paystack.decline("DECLINED")
	h.paystack.succeed("TINY", "9002", 50)

	w := h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "DECLINED"})
	requireError(t, w, http.StatusBadRequest, "payment_not_successful")

	w = h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "UNREACHABLE"})
	requireError(t, w, http.StatusInternalServerError, "provider_unavailable")

	w = h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "TINY"})
	requireError(t, w, http.StatusBadRequest, "invalid_amount")

	w = h.do(http.MethodPost, "/api/wallet/verify", token, map[string]string{})
	requireError(t, w, http.StatusBadRequest, "invalid_request")

	w = h.do(http.MethodPost, "/api/wallet/verify", "", ReferenceRequest{Reference: "REF1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	require.Zero(t, countTransactions(t, h.db))
	require.Zero(t, h.balance(userID))
}

func TestGetWalletIsCachedUntilNextMutation(t *testing.T) {
	h := newHarness(t)
	_, token := h.user("ada", domain.RoleUser)
	h.paystack.succeed("REF1", "9001", 20000)

	w := h.do(http.MethodGet, "/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[walletBody](t, w)
	require.False(t, body.Cached)
	require.Zero(t, body.Wallet.Balance)

	body = decode[walletBody](t, h.do(http.MethodGet, "/wallet", token, nil))
	require.True(t, body.Cached)

	w = h.do(http.MethodPost, "/api/wallet/verify", token, ReferenceRequest{Reference: "REF1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body = decode[walletBody](t, h.do(http.MethodGet, "/wallet", token, nil))
	require.False(t, body.Cached)
	require.Equal(t, int64(2), body.Wallet.Balance)
}

func TestTransactionHistory(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	h.seed(userID, 10)

	w := h.do(http.MethodGet, "/wallet/transactions?page=1&page_size=500", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		PageSize     int                  `json:"page_size"`
		Total        int64                `json:"total"`
		Cached       bool                 `json:"cached"`
	}](t, w)
	require.Len(t, body.Transactions, 1)
	require.Equal(t, defaultPageSize, body.PageSize)
	require.Equal(t, int64(1), body.Total)
	require.False(t, body.Cached)

	w = h.do(http.MethodGet, "/wallet/transactions?page=1&page_size=500", token, nil)
	require.Contains(t, w.Body.String(), `"cached":true`)
}
