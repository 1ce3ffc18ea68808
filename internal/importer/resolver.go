package importer

import (
	"context"
	"errors"
	"strings"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

const (
	resolverCacheSize = 512
	resolverCacheTTL  = 10 * time.Minute
)

// lookupFunc resolves a natural key to a local id. found is false when no
// local row carries the key.
type lookupFunc func(ctx context.Context, key string) (id int64, found bool, err error)

// Resolver maps remote natural keys to local ids for one import run. Only
// hits are cached so records inserted later in the run become visible.
type Resolver struct {
	repo   *storage.SQLiteRepository
	userID int64
	cache  *cache.LRUCache[int64]
}

func NewResolver(repo *storage.SQLiteRepository, userID int64) *Resolver {
	return &Resolver{
		repo:   repo,
		userID: userID,
		cache:  cache.NewLRUCache[int64](resolverCacheSize, resolverCacheTTL),
	}
}

func (r *Resolver) Badge(ctx context.Context, code string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Badges, strings.ToUpper(code), func(b core.Badge) int64 { return b.ID })
}

func (r *Resolver) Group(ctx context.Context, name string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Groups, name, func(g core.Group) int64 { return g.ID })
}

func (r *Resolver) Category(ctx context.Context, name string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Categories, name, func(c core.Category) int64 { return c.ID })
}

func (r *Resolver) Account(ctx context.Context, name string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Accounts, name, func(a core.Account) int64 { return a.ID })
}

func (r *Resolver) Event(ctx context.Context, name string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Events, name, func(e core.Event) int64 { return e.ID })
}

func (r *Resolver) Investment(ctx context.Context, name string) (int64, bool, error) {
	return lookup(ctx, r, r.repo.Investments, name, func(i core.Investment) int64 { return i.ID })
}

// lookup goes through the table's FindByKey, so an ambiguous key resolves to
// the oldest matching row.
func lookup[T any](ctx context.Context, r *Resolver, table *storage.Table[T], key string, id func(T) int64) (int64, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, false, nil
	}
	cacheKey := table.Resource() + ":" + key
	if v, ok := r.cache.Get(cacheKey); ok {
		return v, true, nil
	}

	row, err := table.FindByKey(ctx, r.userID, key)
	if errors.Is(err, core.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	found := id(row)
	r.cache.Set(cacheKey, found)
	return found, true, nil
}
