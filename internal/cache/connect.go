package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// retryDelay is the pause between connection attempts.
var retryDelay = 2 * time.Second

// Connect returns a pinged Redis client, retrying up to maxRetries times.
func Connect(ctx context.Context, addr, password string, db, maxRetries int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			log.Info().Str("addr", addr).Msg("redis connected")
			return rdb, nil
		}
		log.Warn().Err(lastErr).Int("attempt", i).Int("max", maxRetries).Msg("redis connect failed")
		if i < maxRetries {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis connection failed after %d attempts: %w", maxRetries, lastErr)
}
