package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/gezibash/hookmeta/internal/archive"
	"github.com/gezibash/hookmeta/internal/archive/archivetest"
)

func TestBackend(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	archivetest.Run(t, func(t *testing.T) archive.Backend {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		prefix := "hookmeta-test:" + t.Name() + ":"
		t.Cleanup(func() {
			ctx := context.Background()
			c := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
			defer c.Close() //nolint:errcheck
			keys, _ := c.Keys(ctx, prefix+"*").Result()
			if len(keys) > 0 {
				c.Del(ctx, keys...)
			}
		})
		return New(client, prefix)
	})
}

func TestFactoryRequiresAddr(t *testing.T) {
	_, err := NewFactory(context.Background(), archive.Options{KeyAddr: ""})
	if err == nil || err.Error() != "redis: option addr: cannot be empty" {
		t.Errorf("err = %v", err)
	}
}

func TestFactoryRejectsNegativeDB(t *testing.T) {
	_, err := NewFactory(context.Background(), archive.Options{KeyAddr: "localhost:6379", KeyDB: "-1"})
	if err == nil || err.Error() != `redis: option db="-1": must be non-negative` {
		t.Errorf("err = %v", err)
	}
}
