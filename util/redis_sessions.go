package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicloudhq/portal/config"
)

// Sessions live under two kinds of Redis keys: session:<token> holds one
// cached session, user_sessions:<id> is the set of a user's open tokens so
// a profile change can revoke them all at once.

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

func sessionKey(token string) string {
	return "session:" + token
}

// AddSessionToUserSet tracks a freshly issued token in the per-user set and
// aligns the set TTL with the session expiry so orphaned sets do not
// accumulate when cleanup is missed.
func AddSessionToUserSet(userID uint, token string, exp time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	key := userSessionsKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key, exp).Err()
}

// removeSessionScript drops the token from the set and deletes the set when
// it was the last member, in one round trip.
const removeSessionScript = `
local removed = redis.call('SREM', KEYS[1], ARGV[1])
if removed > 0 and redis.call('SCARD', KEYS[1]) == 0 then
	redis.call('DEL', KEYS[1])
end
return removed
`

// RemoveSessionTokenFromUserSet removes a single token from the per-user set.
func RemoveSessionTokenFromUserSet(userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	return rdb.Eval(context.Background(), removeSessionScript, []string{userSessionsKey(userID)}, token).Err()
}

// InvalidateUserSessions revokes every open session of one user: each cached
// session is deleted, then the tracking set itself. Per-session delete
// failures are skipped so one bad key cannot keep the rest alive.
func InvalidateUserSessions(userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()
	key := userSessionsKey(userID)

	tokens, err := rdb.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, token := range tokens {
		_ = rdb.Del(ctx, sessionKey(token)).Err()
	}
	return rdb.Del(ctx, key).Err()
}
