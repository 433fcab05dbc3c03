package notify

import (
	"context"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/patrickmn/go-cache"
)

// ContactDirectory reads users from the directory with an optional TTL cache.
// Role membership is always read through.
type ContactDirectory struct {
	repo  repository.DirectoryRepository
	cache *cache.Cache
}

// NewContactDirectory creates a directory. A non-positive ttl disables caching.
func NewContactDirectory(repo repository.DirectoryRepository, ttl time.Duration) *ContactDirectory {
	d := &ContactDirectory{repo: repo}
	if ttl > 0 {
		d.cache = cache.New(ttl, 2*ttl)
	}
	return d
}

// User returns repository.ErrUserNotFound for unknown IDs.
func (d *ContactDirectory) User(ctx context.Context, id string) (*entities.User, error) {
	return d.cached(ctx, "id:"+id, func() (*entities.User, error) {
		return d.repo.GetUser(ctx, id)
	})
}

// UserByName looks a user up by exact display name.
func (d *ContactDirectory) UserByName(ctx context.Context, name string) (*entities.User, error) {
	return d.cached(ctx, "name:"+name, func() (*entities.User, error) {
		return d.repo.FindUserByName(ctx, name)
	})
}

// RoleMembers returns the IDs of users holding any of the roles.
func (d *ContactDirectory) RoleMembers(ctx context.Context, roleIDs []string) ([]string, error) {
	return d.repo.ListUserIDsByRoles(ctx, roleIDs)
}

// Flush drops every cached contact.
func (d *ContactDirectory) Flush() {
	if d.cache != nil {
		d.cache.Flush()
	}
}

func (d *ContactDirectory) cached(_ context.Context, key string, load func() (*entities.User, error)) (*entities.User, error) {
	if d.cache != nil {
		if v, found := d.cache.Get(key); found {
			u := *v.(*entities.User)
			return &u, nil
		}
	}
	u, err := load()
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		stored := *u
		d.cache.Set(key, &stored, cache.DefaultExpiration)
	}
	return u, nil
}
