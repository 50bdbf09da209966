package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

const (
	authCachePrefix = "auth:key:"
	authCacheTTL    = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	KeyPrefix string `json:"key_prefix"`
}

// GetAuthContext retrieves a cached auth context by API key hash.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetAuthContext(ctx context.Context, keyHash string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+keyHash).Bytes()
	if err != nil {
		return nil, ErrCacheMiss
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, ErrCacheMiss
	}

	return &model.AuthContext{
		UserID:    cached.UserID,
		Username:  cached.Username,
		KeyPrefix: cached.KeyPrefix,
	}, nil
}

// SetAuthContext caches an auth context under an API key hash.
func (c *Cache) SetAuthContext(ctx context.Context, keyHash string, auth *model.AuthContext) error {
	data, err := json.Marshal(CachedAuthContext{
		UserID:    auth.UserID,
		Username:  auth.Username,
		KeyPrefix: auth.KeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+keyHash, data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
// Called when a key is replaced or its user is deactivated or deleted.
func (c *Cache) DeleteAuthContext(ctx context.Context, keyHash string) error {
	return c.client.Del(ctx, authCachePrefix+keyHash).Err()
}
