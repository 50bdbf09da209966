package cache

import (
	"context"

	"github.com/taskflow/taskflow/internal/model"
)

// Noop is a cache that stores nothing. Used when REDIS_URL is unset.
type Noop struct{}

func (Noop) Ping(context.Context) error { return nil }

func (Noop) GetUser(context.Context, int64) (*model.User, error) { return nil, ErrCacheMiss }

func (Noop) SetUser(context.Context, *model.User) error { return nil }

func (Noop) DeleteUser(context.Context, int64) error { return nil }

func (Noop) IsUserNegativelyCached(context.Context, int64) (bool, error) { return false, nil }

func (Noop) SetUserNegativeCache(context.Context, int64) error { return nil }

func (Noop) GetAuthContext(context.Context, string) (*model.AuthContext, error) {
	return nil, ErrCacheMiss
}

func (Noop) SetAuthContext(context.Context, string, *model.AuthContext) error { return nil }

func (Noop) DeleteAuthContext(context.Context, string) error { return nil }
