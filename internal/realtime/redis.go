package realtime

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// ChangeChannel carries review-change notifications between instances.
// The payload is irrelevant; receipt alone triggers a reload.
const ChangeChannel = "reviews:changed"

// NewRedis creates a new Redis client
func NewRedis() *redis.Client {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	log.Printf("Redis client created (addr: %s)\n", redisAddr)
	return rdb
}

// PublishChange tells every instance (this one included) that the
// review collection changed.
func PublishChange(ctx context.Context, rdb *redis.Client) {
	if err := rdb.Publish(ctx, ChangeChannel, "1").Err(); err != nil {
		log.Println("realtime: publish change failed:", err)
	}
}

// Bridge pumps redis change notifications into the hub. Run it in its
// own goroutine; it exits when ctx is cancelled.
func Bridge(ctx context.Context, rdb *redis.Client, hub *Hub) {
	sub := rdb.Subscribe(ctx, ChangeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			hub.Notify()
		}
	}
}
