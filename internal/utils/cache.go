package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// CacheTTL is how long display reads stay cached. Balance reads for display
// are allowed to lag writes by up to this long.
const CacheTTL = 60 * time.Second

// WalletKey is the cache key of a user's wallet
func WalletKey(userID uint) string {
	return "wallet:user:" + strconv.FormatUint(uint64(userID), 10)
}

// TxHistoryPrefix is the prefix of every cached history page of a user
func TxHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10)
}

// TxHistoryKey is the cache key of one history page
func TxHistoryKey(userID uint, page, pageSize int) string {
	return TxHistoryPrefix(userID) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves as a permanent miss.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeleteCachePrefix deletes every key starting with prefix
func DeleteCachePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return DeleteCache(ctx, rdb, keys...)
}

// InvalidateUser drops the cached wallet and history pages of the given users
func InvalidateUser(ctx context.Context, rdb *redis.Client, userIDs ...uint) error {
	for _, id := range userIDs {
		if err := DeleteCache(ctx, rdb, WalletKey(id)); err != nil {
			return err
		}
		if err := DeleteCachePrefix(ctx, rdb, TxHistoryPrefix(id)); err != nil {
			return err
		}
	}
	return nil
}
