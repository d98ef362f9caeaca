package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared by every login process of a cluster.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a store writing keys under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "xilogin"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(clientAddress uint32) string {
	return r.prefix + ":create_lockout:" + strconv.FormatUint(uint64(clientAddress), 10)
}

func (r *Redis) Locked(ctx context.Context, clientAddress uint32) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(clientAddress)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (r *Redis) Lock(ctx context.Context, clientAddress uint32, d time.Duration) error {
	if err := r.client.Set(ctx, r.key(clientAddress), 1, d).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
