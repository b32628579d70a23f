package initializers

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

/*
	connect to redis
	check connection establishment through ping
*/

func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0, // use default DB
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection establishment failed: %w", err)
	}
	return client, nil
}
