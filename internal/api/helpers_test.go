package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"event_wallet/internal/apperr"
	"event_wallet/internal/db"
	"event_wallet/internal/domain"
	"event_wallet/internal/payment"
	"event_wallet/internal/utils"
	"event_wallet/internal/wallet"
)

const (
	testSecret    = "test-secret"
	testPassword  = "password123"
	testUnitPrice = 100
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResult struct {
	v   *payment.Verification
	err error
}

// fakeProvider answers Verify and VerifyOrder from a fixed table. Unknown
// references behave like an unreachable provider.
type fakeProvider struct {
	mu      sync.Mutex
	results map[string]fakeResult
	calls   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{results: map[string]fakeResult{}}
}

func (f *fakeProvider) succeed(reference, providerID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[reference] = fakeResult{v: &payment.Verification{
		Verified:              true,
		ProviderStatus:        "success",
		ProviderTransactionID: providerID,
		Reference:             reference,
		Amount:                amount,
		Currency:              "NGN",
	}}
}

func (f *fakeProvider) decline(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &payment.Verification{ProviderStatus: "failed", Reference: reference}
	f.results[reference] = fakeResult{v: v, err: apperr.Wrap(apperr.ErrPaymentNotSuccessful, errors.New("declined"))}
}

func (f *fakeProvider) Verify(_ context.Context, reference string) (*payment.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	res, ok := f.results[reference]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrProviderUnavailable, errors.New("connection refused"))
	}
	return res.v, res.err
}

func (f *fakeProvider) VerifyOrder(ctx context.Context, orderID string) (*payment.Verification, error) {
	return f.Verify(ctx, orderID)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	t        *testing.T
	r        *gin.Engine
	db       *gorm.DB
	rdb      *redis.Client
	wallet   *wallet.Service
	paystack *fakeProvider
	paypal   *fakeProvider
}

// newHarness wires the routes over fake providers; opts may swap in others
func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	gdb := db.OpenTest(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := wallet.NewService(gdb, rdb, testUnitPrice)
	h := &harness{
		t:        t,
		r:        gin.New(),
		db:       gdb,
		rdb:      rdb,
		wallet:   svc,
		paystack: newFakeProvider(),
		paypal:   newFakeProvider(),
	}
	deps := Deps{
		DB:              gdb,
		Redis:           rdb,
		JWTSecret:       testSecret,
		AppURL:          "https://events.example.com/",
		Wallet:          svc,
		GuestClaims:     wallet.NewGuestClaims(gdb, svc, 24*time.Hour),
		Withdrawals:     wallet.NewWithdrawals(gdb, svc),
		Effects:         wallet.NewEffectProcessor(gdb),
		EffectBatchSize: 50,
		Paystack:        h.paystack,
		PayPal:          PayPalTokens{Orders: h.paypal, CentsPerToken: 100},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	RegisterRoutes(h.r, deps)
	return h
}

// user creates an account and returns its id and a bearer token
func (h *harness) user(username, role string) (uint, string) {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(h.t, err)
	u := domain.User{Username: username, Password: string(hash), Role: role}
	require.NoError(h.t, h.db.Create(&u).Error)
	token, err := utils.GenerateJWT(u.ID, role, testSecret)
	require.NoError(h.t, err)
	return u.ID, token
}

func (h *harness) seed(userID uint, tokens int64) {
	h.t.Helper()
	_, err := h.wallet.Credit(context.Background(), wallet.CreditRequest{UserID: userID, Reference: "seed", TokenAmount: tokens})
	require.NoError(h.t, err)
}

func (h *harness) balance(userID uint) int64 {
	h.t.Helper()
	w, err := h.wallet.Wallet(context.Background(), userID)
	require.NoError(h.t, err)
	return w.Balance
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stack string `json:"stack"`
}

type creditBody struct {
	Success     bool  `json:"success"`
	NewBalance  int64 `json:"newBalance"`
	TokenAmount int64 `json:"tokenAmount"`
	Duplicate   bool  `json:"duplicate"`
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[errorBody](t, w)
	require.Equal(t, code, body.Code)
	require.Empty(t, body.Stack)
}

func countTransactions(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).Count(&n).Error)
	return n
}
