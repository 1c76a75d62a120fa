package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TOKEN_UNIT_PRICE", "")
	t.Setenv("GUEST_CLAIM_TTL", "")
	t.Setenv("PAYMENT_VERIFY_TIMEOUT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PAYSTACK_CURRENCY", "")
	t.Setenv("PAYPAL_CURRENCY", "")

	cfg := LoadConfig()
	require.Equal(t, int64(100), cfg.TokenUnitPrice)
	require.Equal(t, 24*time.Hour, cfg.GuestClaimTTL)
	require.Equal(t, 10*time.Second, cfg.PaymentVerifyTimeout)
	require.Equal(t, "mysql", cfg.DBDriver)
	require.Equal(t, "NGN", cfg.PaystackCurrency)
	require.Equal(t, "USD", cfg.PayPalCurrency)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TOKEN_UNIT_PRICE", "250")
	t.Setenv("GUEST_CLAIM_TTL", "2h")
	t.Setenv("IS_PROD", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("OUTBOX_INTERVAL", "bogus")

	cfg := LoadConfig()
	require.Equal(t, int64(250), cfg.TokenUnitPrice)
	require.Equal(t, 2*time.Hour, cfg.GuestClaimTTL)
	require.True(t, cfg.IsProd)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 5*time.Second, cfg.OutboxInterval)
}

func TestLoadConfigRejectsNonPositivePrices(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("TOKEN_UNIT_PRICE", v)
		t.Setenv("PAYPAL_CENTS_PER_TOKEN", v)

		cfg := LoadConfig()
		require.Equal(t, int64(100), cfg.TokenUnitPrice, v)
		require.Equal(t, int64(100), cfg.PayPalCentsPerToken, v)
	}

	t.Setenv("PAYPAL_CENTS_PER_TOKEN", "40")
	require.Equal(t, int64(40), LoadConfig().PayPalCentsPerToken)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "events"}
	require.Equal(t, "u:p@tcp(db:3306)/events?parseTime=true", cfg.DSN())
}
