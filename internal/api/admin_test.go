package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"event_wallet/internal/domain"
)

func TestAdminListings(t *testing.T) {
	h := newHarness(t)
	userID, token := h.user("ada", domain.RoleUser)
	_, adminToken := h.user("root", domain.RoleAdmin)
	h.seed(userID, 7)

	w := h.do(http.MethodGet, "/admin/users", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	users := decode[struct {
		Users  []UserAdminResponse `json:"users"`
		Total  int64               `json:"total"`
		Cached bool                `json:"cached"`
	}](t, w)
	require.Equal(t, int64(2), users.Total)
	require.False(t, users.Cached)
	require.Equal(t, int64(7), users.Users[0].Wallet.Balance)

	w = h.do(http.MethodGet, "/admin/users", adminToken, nil)
	require.Contains(t, w.Body.String(), `"cached":true`)

	w = h.do(http.MethodGet, "/admin/transactions?type=deposit&status=completed", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	txs := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		Total        int64                `json:"total"`
	}](t, w)
	require.Equal(t, int64(1), txs.Total)
	require.Equal(t, "seed", txs.Transactions[0].Reference)

	w = h.do(http.MethodGet, "/admin/transactions?type=withdrawal", adminToken, nil)
	require.Contains(t, w.Body.String(), `"total":0`)
}
