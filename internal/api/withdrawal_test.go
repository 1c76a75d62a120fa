package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"event_wallet/internal/domain"
)

type withdrawalBody struct {
	Withdrawal domain.WithdrawalRequest `json:"withdrawal"`
	NewBalance int64                    `json:"newBalance"`
	Duplicate  bool                     `json:"duplicate"`
}

func withdrawalInput(amount int64, password string) WithdrawalRequestBody {
	return WithdrawalRequestBody{
		TokenAmount:   amount,
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
		Password:      password,
	}
}

func TestWithdrawalRequiresPassword(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	h.seed(userID, 10)

	w := h.do(http.MethodPost, "/api/withdrawals", token, withdrawalInput(4, "wrongpassword"))
	requireError(t, w, http.StatusUnauthorized, "unauthorized")

	w = h.do(http.MethodPost, "/api/withdrawals", token, withdrawalInput(11, testPassword))
	requireError(t, w, http.StatusBadRequest, "insufficient_balance")

	w = h.do(http.MethodPost, "/api/withdrawals", token, withdrawalInput(0, testPassword))
	requireError(t, w, http.StatusBadRequest, "invalid_request")

	require.Equal(t, int64(10), h.balance(userID))
}

func TestWithdrawalRejectRefunds(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	_, adminToken := h.user("root", domain.RoleAdmin)
	h.seed(userID, 10)

	w := h.do(http.MethodPost, "/api/withdrawals", token, withdrawalInput(4, testPassword))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[withdrawalBody](t, w)
	require.Equal(t, int64(6), created.NewBalance)
	path := "/admin/withdrawals/" + strconv.FormatUint(uint64(created.Withdrawal.ID), 10)

	w = h.do(http.MethodGet, "/api/withdrawals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[struct {
		Withdrawals []domain.WithdrawalRequest `json:"withdrawals"`
	}](t, w).Withdrawals, 1)

	w = h.do(http.MethodPost, path+"/reject", token, RejectBody{Reason: "nope"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, path+"/reject", adminToken, RejectBody{Reason: "account name mismatch"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decode[withdrawalBody](t, w)
	require.True(t, rejected.Withdrawal.Rejected)
	require.Equal(t, int64(10), rejected.NewBalance)
	require.False(t, rejected.Duplicate)

	w = h.do(http.MethodPost, path+"/reject", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decode[withdrawalBody](t, w).Duplicate)
	require.Equal(t, int64(10), h.balance(userID))

	w = h.do(http.MethodPost, path+"/approve", adminToken, nil)
	requireError(t, w, http.StatusConflict, "conflict")
}

func TestWithdrawalSettlement(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	_, adminToken := h.user("root", domain.RoleAdmin)
	h.seed(userID, 10)

	w := h.do(http.MethodPost, "/api/withdrawals", token, withdrawalInput(5, testPassword))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[withdrawalBody](t, w).Withdrawal.ID
	path := "/admin/withdrawals/" + strconv.FormatUint(uint64(id), 10)

	w = h.do(http.MethodGet, "/admin/withdrawals", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"account_number":"0123456789"`)

	w = h.do(http.MethodPost, path+"/sent", adminToken, nil)
	requireError(t, w, http.StatusConflict, "conflict")

	w = h.do(http.MethodPost, path+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPost, path+"/sent", adminToken, SentBody{SentAmount: 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode[withdrawalBody](t, w).Withdrawal
	require.True(t, sent.Sent)
	require.Equal(t, int64(5), sent.SentAmount)

	var tx domain.Transaction
	require.NoError(t, h.db.Where("id = ?", sent.TransactionID).First(&tx).Error)
	require.Equal(t, domain.StatusCompleted, tx.Status)

	w = h.do(http.MethodPost, path+"/reject", adminToken, nil)
	requireError(t, w, http.StatusConflict, "conflict")
	require.Equal(t, int64(5), h.balance(userID))

	w = h.do(http.MethodPost, "/admin/withdrawals/abc/approve", adminToken, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_request")
}
