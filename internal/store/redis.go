package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arcanaland/lumen/internal/quota"
)

const profileKeyPrefix = "lumen:profile:"

// tryIncrementScript returns -1 for a missing profile, -2 for an unlimited
// profile, -3 at the limit, else the new usage count.
var tryIncrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'is_unlimited') == '1' then
	return -2
end
local n = tonumber(redis.call('HGET', KEYS[1], 'usage_count') or '0')
if n >= tonumber(ARGV[1]) then
	return -3
end
return redis.call('HINCRBY', KEYS[1], 'usage_count', 1)
`)

var decrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local n = tonumber(redis.call('HGET', KEYS[1], 'usage_count') or '0')
if n <= 0 then
	return 0
end
return redis.call('HINCRBY', KEYS[1], 'usage_count', -1)
`)

// RedisProfiles is a quota.ProfileStore shared between lumen instances
type RedisProfiles struct {
	client *redis.Client
}

// NewRedisProfiles connects to Redis and verifies the connection
func NewRedisProfiles(addr, password string, db int) (*RedisProfiles, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProfiles{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisProfiles) Close() error {
	return r.client.Close()
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

// UpsertProfile creates or replaces a profile
func (r *RedisProfiles) UpsertProfile(ctx context.Context, p quota.Profile) error {
	unlimited := "0"
	if p.Unlimited {
		unlimited = "1"
	}
	return r.client.HSet(ctx, profileKey(p.UserID),
		"usage_count", p.UsageCount,
		"is_unlimited", unlimited,
	).Err()
}

func (r *RedisProfiles) GetProfile(ctx context.Context, userID string) (quota.Profile, error) {
	fields, err := r.client.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return quota.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if len(fields) == 0 {
		return quota.Profile{}, quota.ErrProfileNotFound
	}

	count, err := strconv.Atoi(fields["usage_count"])
	if err != nil && fields["usage_count"] != "" {
		return quota.Profile{}, fmt.Errorf("profile %s: invalid usage_count: %w", userID, err)
	}

	return quota.Profile{
		UserID:     userID,
		UsageCount: count,
		Unlimited:  fields["is_unlimited"] == "1",
	}, nil
}

func (r *RedisProfiles) TryIncrement(ctx context.Context, userID string, limit int) (quota.Profile, error) {
	n, err := tryIncrementScript.Run(ctx, r.client, []string{profileKey(userID)}, limit).Int()
	if err != nil {
		return quota.Profile{}, fmt.Errorf("increment usage: %w", err)
	}

	switch n {
	case -1:
		return quota.Profile{}, quota.ErrProfileNotFound
	case -2:
		return r.GetProfile(ctx, userID)
	case -3:
		p, err := r.GetProfile(ctx, userID)
		if err != nil {
			return quota.Profile{}, err
		}
		return p, quota.ErrUsageLimitExceeded
	}

	return quota.Profile{UserID: userID, UsageCount: n}, nil
}

func (r *RedisProfiles) Decrement(ctx context.Context, userID string) error {
	n, err := decrementScript.Run(ctx, r.client, []string{profileKey(userID)}).Int()
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	if n == -1 {
		return quota.ErrProfileNotFound
	}
	return nil
}
