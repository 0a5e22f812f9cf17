package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAddr returns REDIS_ADDR, REDIS_URI or REDIS_URL, whichever is set first.
func RedisAddr() string {
	for _, k := range []string{"REDIS_ADDR", "REDIS_URI", "REDIS_URL"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// NewRedis builds a client from a host:port or redis:// URL and pings it.
// The client is returned even when the ping fails so callers may retry.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	var rdb *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := rdb.Ping(pctx).Result()
	return rdb, err
}
