package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/dbx"
)

const keyPrefix = "otp:"

// consumeScript deletes the key only when it holds the presented code.
// Returns 1 on a match, 0 otherwise.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and v == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// Redis stores codes under otp:<identity> with a native TTL. Verify runs a
// Lua script so the compare-and-delete is atomic on the server.
type Redis struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedis wraps client. A positive timeout bounds every call.
func NewRedis(client redis.UniversalClient, timeout time.Duration) *Redis {
	return &Redis{client: client, timeout: timeout}
}

func key(identity string) string {
	return keyPrefix + identity
}

func (r *Redis) Store(ctx context.Context, identity, code string, ttl time.Duration) error {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key(identity), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Redis) Verify(ctx context.Context, identity, code string) (bool, error) {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := consumeScript.Run(ctx, r.client, []string{key(identity)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("%w: redis verify: %v", common.ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}
