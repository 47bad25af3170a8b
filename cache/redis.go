package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport or server error from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// takeScript reads and deletes a key in one step. GETDEL would do the same
// but is missing before Redis 6.2.
const takeScript = `
local value = redis.call("GET", KEYS[1])
if value then
  redis.call("DEL", KEYS[1])
end
return value
`

var takeLua = redis.NewScript(takeScript)

// Redis is a token cache backed by a Redis (or Redis-compatible) server.
//
//	Performance: one round-trip per call. Take runs as a single Lua script.
type Redis struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedis creates a [Redis] cache. prefix namespaces every key; retention,
// when positive, bounds how long an entry may linger if its token is never
// consumed.
func NewRedis(client redis.UniversalClient, prefix string, retention time.Duration) *Redis {
	return &Redis{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Put stores value under key, overwriting any previous value.
func (r *Redis) Put(ctx context.Context, key, value string) error {
	ttl := time.Duration(0)
	if r.retention > 0 {
		ttl = r.retention
	}
	if err := r.redis.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the value under key. A missing key is ("", false, nil).
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// Evict deletes key. Deleting a missing key is not an error.
func (r *Redis) Evict(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Take atomically reads and deletes key.
func (r *Redis) Take(ctx context.Context, key string) (string, bool, error) {
	value, err := takeLua.Run(ctx, r.redis, []string{r.key(key)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// Ping checks connectivity. The server uses it for readiness.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
