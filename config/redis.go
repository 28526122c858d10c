package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
)

// redisOptionsFromEnv builds client options from REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB. Unset or malformed values fall back to a local default.
func redisOptionsFromEnv() *redis.Options {
	opts := &redis.Options{
		Addr:     "localhost:6379",
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		opts.Addr = addr
	}
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		opts.DB = n
	}
	return opts
}

// ConnectRedis initializes the shared Redis client based on environment
// variables. Redis is opt-in: unless REDIS_ENABLED=true the client stays nil
// and callers degrade to DB-only behavior. Calling it again after a
// successful connect returns the existing client.
func ConnectRedis() (*redis.Client, error) {
	redisMu.Lock()
	defer redisMu.Unlock()

	if os.Getenv("REDIS_ENABLED") != "true" {
		return nil, nil
	}
	if redisClient != nil {
		return redisClient, nil
	}

	opts := redisOptionsFromEnv()
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	redisClient = rdb
	log.Printf("Redis session cache online at %s", opts.Addr)
	return redisClient, nil
}

// GetRedisClient hands back whatever client ConnectRedis installed. It stays
// nil while the cache is disabled or unreachable.
func GetRedisClient() *redis.Client {
	return redisClient
}
