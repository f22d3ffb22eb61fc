// Package redis backs the reconciliation engine's processed-confirmation
// marker with a shared Redis instance, so replay detection survives restarts
// and is visible to every engine replica.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config carries the dedup store connection settings.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises the dedup store client and validates connectivity. The
// engine degrades to upsert-only replay detection when Redis is down, but a
// boot-time failure is surfaced immediately.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = pingTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dedup store ping: %w", err)
	}

	return client, nil
}
