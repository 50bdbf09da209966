package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

// Cache key prefixes and TTLs.
const (
	userKeyPrefix     = "user:"
	negCacheKeySuffix = ":neg"

	// DefaultUserTTL is the TTL for cached user records.
	DefaultUserTTL = 5 * time.Minute

	// NegativeCacheTTL is the TTL for "user does not exist" entries.
	NegativeCacheTTL = 30 * time.Second
)

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// GetUser retrieves a cached user by ID.
// Returns ErrCacheMiss if not found. Password and API key hashes are never cached.
func (c *Cache) GetUser(ctx context.Context, id int64) (*model.User, error) {
	result, err := c.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	user, err := userFromFields(result)
	if err != nil {
		// Corrupted entry, treat as miss
		return nil, ErrCacheMiss
	}
	return user, nil
}

// SetUser stores a user in cache and clears any negative entry.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	key := userKey(user.ID)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, userFields(user))
	pipe.Expire(ctx, key, c.userTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

// DeleteUser removes a user and its negative entry from cache.
func (c *Cache) DeleteUser(ctx context.Context, id int64) error {
	key := userKey(id)

	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete user from cache: %w", err)
	}
	return nil
}

// IsUserNegativelyCached checks if a user ID is known not to exist.
func (c *Cache) IsUserNegativelyCached(ctx context.Context, id int64) (bool, error) {
	exists, err := c.client.Exists(ctx, userKey(id)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetUserNegativeCache marks a user ID as not found.
func (c *Cache) SetUserNegativeCache(ctx context.Context, id int64) error {
	if err := c.client.SetEx(ctx, userKey(id)+negCacheKeySuffix, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

// userFields flattens the public part of a user into hash fields.
func userFields(u *model.User) map[string]any {
	fields := map[string]any{
		"id":             strconv.FormatInt(u.ID, 10),
		"username":       u.Username,
		"email":          u.Email,
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"is_active":      strconv.FormatBool(u.IsActive),
		"api_key_prefix": u.APIKeyPrefix,
		"created_at":     u.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if u.LastLogin != nil {
		fields["last_login"] = u.LastLogin.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func userFromFields(fields map[string]string) (*model.User, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	active, err := strconv.ParseBool(fields["is_active"])
	if err != nil {
		return nil, fmt.Errorf("parse is_active: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	user := &model.User{
		ID:           id,
		Username:     fields["username"],
		Email:        fields["email"],
		FirstName:    fields["first_name"],
		LastName:     fields["last_name"],
		IsActive:     active,
		APIKeyPrefix: fields["api_key_prefix"],
		CreatedAt:    created,
		UpdatedAt:    updated,
	}

	if raw, ok := fields["last_login"]; ok && raw != "" {
		lastLogin, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last_login: %w", err)
		}
		user.LastLogin = &lastLogin
	}

	return user, nil
}
