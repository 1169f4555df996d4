package iocache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
)

// redisKeyPrefix namespaces result cache keys in a shared Redis.
const redisKeyPrefix = "mergecheck:result"

// redisOpTimeout bounds every Redis round trip; the CacheStore interface has no context.
const redisOpTimeout = 5 * time.Second

// RedisCacheStore keeps check results in Redis hashes that expire after the cache TTL.
type RedisCacheStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ contract.CacheStore = &RedisCacheStore{} // Compile-time check

// NewRedisCacheStore connects to Redis. connStr is either host:port or a redis:// URL.
func NewRedisCacheStore(connStr string, ttl time.Duration) (*RedisCacheStore, error) {
	opts, err := parseRedisConn(connStr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	if ttl <= 0 {
		ttl = contract.DefaultCacheTTL
	}
	return &RedisCacheStore{client: client, prefix: redisKeyPrefix, ttl: ttl}, nil
}

func parseRedisConn(connStr string) (*redis.Options, error) {
	if strings.HasPrefix(connStr, "redis://") || strings.HasPrefix(connStr, "rediss://") {
		opts, err := redis.ParseURL(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return opts, nil
	}
	if connStr == "" {
		return nil, fmt.Errorf("a connection string is required for the redis backend")
	}
	return &redis.Options{Addr: connStr}, nil
}

func (rs *RedisCacheStore) key(key string) string {
	return rs.prefix + ":" + key
}

// Get implements contract.CacheStore. A missing key yields redis.Nil.
func (rs *RedisCacheStore) Get(key string) ([]byte, int, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields, err := rs.client.HGetAll(ctx, rs.key(key)).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, redis.Nil
	}

	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache version for %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache timestamp for %s: %w", key, err)
	}
	return []byte(fields["value"]), version, ts, nil
}

// Set implements contract.CacheStore. The write and its expiry are applied in
// one MULTI/EXEC block.
func (rs *RedisCacheStore) Set(key string, value []byte, version int, timestamp int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	redisKey := rs.key(key)
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey, "value", value, "version", version, "timestamp", timestamp)
		pipe.Expire(ctx, redisKey, rs.ttl)
		return nil
	})
	return err
}

// GetStatus implements contract.CacheStore.
func (rs *RedisCacheStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.RedisBackend), Connected: rs.client != nil}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := rs.client.Keys(ctx, rs.prefix+":*").Result()
	if err != nil {
		return status, fmt.Errorf("failed to list cache keys: %w", err)
	}
	status.TotalEntries = len(keys)

	var newest, oldest int64
	for _, key := range keys {
		raw, err := rs.client.HGet(ctx, key, "timestamp").Result()
		if err != nil {
			continue // expired between KEYS and HGET
		}
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if newest == 0 || ts > newest {
			newest = ts
		}
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
		if size, err := rs.client.MemoryUsage(ctx, key).Result(); err == nil {
			status.TableSizeBytes += size
		}
	}
	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(newest, 0)
		status.OldestEntryTime = time.Unix(oldest, 0)
	}
	return status, nil
}

// Clear deletes every cached result.
func (rs *RedisCacheStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := rs.client.Keys(ctx, rs.prefix+":*").Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := rs.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Close implements contract.CacheStore.
func (rs *RedisCacheStore) Close() error {
	return rs.client.Close()
}
