package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnpath/lms-api/internal/core/domain"
)

const (
	identityKeyPrefix    = "lms:identity:"
	invalidatedKeySuffix = ":invalidated"
)

// setUnlessInvalidated stores ARGV[1] under KEYS[1] for ARGV[2] ms unless
// KEYS[2] holds an invalidation time (unix ms) at or after ARGV[3].
var setUnlessInvalidated = redis.NewScript(`
local inv = redis.call("GET", KEYS[2])
if inv and tonumber(inv) >= tonumber(ARGV[3]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// IdentityCache keeps resolved identities in Redis for a short TTL.
// Key format: lms:identity:<user_id>. Password hashes are never cached.
// Invalidate leaves lms:identity:<user_id>:invalidated behind for one TTL so a
// store read that started before the invalidation is not written back.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdentityCache creates an IdentityCache wrapping the given Redis client.
func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	return &IdentityCache{client: client, ttl: ttl}
}

type cachedIdentity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get returns the cached identity for id. A miss is (nil, false, nil).
func (c *IdentityCache) Get(ctx context.Context, id string) (*domain.User, bool, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("identity cache get: %w", err)
	}

	var ci cachedIdentity
	if err := json.Unmarshal(raw, &ci); err != nil {
		// Treat undecodable entries as a miss; the next Set overwrites them.
		return nil, false, nil
	}
	return &domain.User{
		ID:        ci.ID,
		Email:     ci.Email,
		Name:      ci.Name,
		Role:      domain.Role(ci.Role),
		CreatedAt: ci.CreatedAt,
		UpdatedAt: ci.UpdatedAt,
	}, true, nil
}

// Set stores user until the TTL expires, unless user.ID was invalidated at or
// after readAt.
func (c *IdentityCache) Set(ctx context.Context, user *domain.User, readAt time.Time) error {
	raw, err := json.Marshal(cachedIdentity{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("identity cache encode: %w", err)
	}
	err = setUnlessInvalidated.Run(ctx, c.client,
		[]string{key(user.ID), invalidatedKey(user.ID)},
		raw, c.ttl.Milliseconds(), readAt.UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("identity cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached identity for id and records when it happened.
func (c *IdentityCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, invalidatedKey(id), time.Now().UnixMilli(), c.ttl)
		pipe.Del(ctx, key(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity cache invalidate: %w", err)
	}
	return nil
}

func key(id string) string {
	return identityKeyPrefix + id
}

func invalidatedKey(id string) string {
	return identityKeyPrefix + id + invalidatedKeySuffix
}
