package utils

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)

	var out struct{ Balance int64 }
	found, err := GetCache(ctx, rdb, WalletKey(7), &out)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, WalletKey(7), struct{ Balance int64 }{42}, CacheTTL))
	found, err = GetCache(ctx, rdb, WalletKey(7), &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(42), out.Balance)
}

func TestInvalidateUserDropsAllHistoryPages(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)

	for _, key := range []string{WalletKey(1), TxHistoryKey(1, 1, 20), TxHistoryKey(1, 9, 50), WalletKey(2)} {
		require.NoError(t, SetCache(ctx, rdb, key, 1, CacheTTL))
	}
	require.NoError(t, InvalidateUser(ctx, rdb, 1))

	n, err := rdb.Exists(ctx, WalletKey(1), TxHistoryKey(1, 1, 20), TxHistoryKey(1, 9, 50)).Result()
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = rdb.Exists(ctx, WalletKey(2)).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	var dest int
	found, err := GetCache(ctx, nil, "k", &dest)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, SetCache(ctx, nil, "k", 1, CacheTTL))
	require.NoError(t, InvalidateUser(ctx, nil, 1))
}
