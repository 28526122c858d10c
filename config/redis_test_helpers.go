package config

import (
	"github.com/redis/go-redis/v9"
)

// SetRedisClientForTest swaps the shared Redis client so tests in other
// packages can inject a redismock instance.
func SetRedisClientForTest(client *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = client
}

// ResetRedisClientForTest clears the injected client so later tests exercise
// the DB-only fallback path.
func ResetRedisClientForTest() {
	SetRedisClientForTest(nil)
}
