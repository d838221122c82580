package refdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/cachedvalue"
	"github.com/lumapix/photark/pkg/photosearch"
)

// adminKeySuffix is shared by every admin: their lists are identical.
const adminKeySuffix = "all"

// ServiceOptions tunes the caching behavior.
type ServiceOptions struct {
	// CacheTTL bounds staleness of cached lists. Defaults to 10 minutes.
	CacheTTL time.Duration
	// CacheSize bounds distinct cache entries per list kind. Defaults to 4096.
	CacheSize int
	// Redis enables a shared second-level cache when non-nil.
	Redis *redis.Client
}

// Service caches ACL-scoped reference lists in front of a Store.
type Service struct {
	store    *Store
	resolver photosearch.AccessResolver
	redis    *redis.Client
	ttl      time.Duration

	tags     *cachedvalue.Cache[[]Tag]
	persons  *cachedvalue.Cache[[]Person]
	storages *cachedvalue.Cache[[]Storage]
	paths    *cachedvalue.Cache[[]Path]
}

// NewService creates a reference-data service.
func NewService(store *Store, resolver photosearch.AccessResolver, opts ServiceOptions) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 4096
	}

	newCache := func(name string) cachedvalue.Options {
		return cachedvalue.Options{Name: name, MaxEntries: opts.CacheSize, TTL: opts.CacheTTL}
	}

	return &Service{
		store:    store,
		resolver: resolver,
		redis:    opts.Redis,
		ttl:      opts.CacheTTL,
		tags:     cachedvalue.New[[]Tag](newCache("refdata_tags")),
		persons:  cachedvalue.New[[]Person](newCache("refdata_persons")),
		storages: cachedvalue.New[[]Storage](newCache("refdata_storages")),
		paths:    cachedvalue.New[[]Path](newCache("refdata_paths")),
	}
}

// Tags returns the tag list visible to the caller.
func (s *Service) Tags(ctx context.Context, id accessctl.Identity) ([]Tag, error) {
	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	key := cacheKey("tags", id, access)
	return s.tags.GetOrCompute(ctx, key, func(ctx context.Context) ([]Tag, error) {
		return cached(ctx, s, key, func(ctx context.Context) ([]Tag, error) {
			return s.store.Tags(ctx, access)
		})
	})
}

// Persons returns the person list visible to the caller.
func (s *Service) Persons(ctx context.Context, id accessctl.Identity) ([]Person, error) {
	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	key := cacheKey("persons", id, access)
	return s.persons.GetOrCompute(ctx, key, func(ctx context.Context) ([]Person, error) {
		return cached(ctx, s, key, func(ctx context.Context) ([]Person, error) {
			return s.store.Persons(ctx, access)
		})
	})
}

// Storages returns the storage list visible to the caller.
func (s *Service) Storages(ctx context.Context, id accessctl.Identity) ([]Storage, error) {
	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	key := cacheKey("storages", id, access)
	return s.storages.GetOrCompute(ctx, key, func(ctx context.Context) ([]Storage, error) {
		return cached(ctx, s, key, func(ctx context.Context) ([]Storage, error) {
			return s.store.Storages(ctx, access)
		})
	})
}

// Paths returns the folder list visible to the caller.
func (s *Service) Paths(ctx context.Context, id accessctl.Identity) ([]Path, error) {
	access, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	key := cacheKey("paths", id, access)
	return s.paths.GetOrCompute(ctx, key, func(ctx context.Context) ([]Path, error) {
		return cached(ctx, s, key, func(ctx context.Context) ([]Path, error) {
			return s.store.Paths(ctx, access)
		})
	})
}

// InvalidateUser drops the user's cached lists. Wire it into the access
// resolver's invalidation hooks so grant changes take effect immediately.
func (s *Service) InvalidateUser(userID uuid.UUID) {
	suffix := userID.String()
	s.tags.Invalidate("tags:" + suffix)
	s.persons.Invalidate("persons:" + suffix)
	s.storages.Invalidate("storages:" + suffix)
	s.paths.Invalidate("paths:" + suffix)

	if s.redis != nil {
		s.redis.Del(context.Background(),
			redisKey("tags:"+suffix),
			redisKey("persons:"+suffix),
			redisKey("storages:"+suffix),
			redisKey("paths:"+suffix),
		)
	}
}

// CacheStats reports the counters of each list cache, keyed by cache name.
// The gateway binary mirrors these into Prometheus.
func (s *Service) CacheStats() map[string]cachedvalue.CacheStats {
	return map[string]cachedvalue.CacheStats{
		"refdata_tags":     s.tags.Stats(),
		"refdata_persons":  s.persons.Stats(),
		"refdata_storages": s.storages.Stats(),
		"refdata_paths":    s.paths.Stats(),
	}
}

// InvalidateAll drops every cached list, including the shared admin entries.
// Catalog-wide changes (new tags, renamed storages) should call this.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.tags.InvalidateAll()
	s.persons.InvalidateAll()
	s.storages.InvalidateAll()
	s.paths.InvalidateAll()

	if s.redis != nil {
		iter := s.redis.Scan(ctx, 0, redisKey("*"), 0).Iterator()
		for iter.Next(ctx) {
			s.redis.Del(ctx, iter.Val())
		}
	}
}

// WarmUp precomputes every list for the given identities, bounded to a few
// concurrent loads so startup does not flood the database.
func (s *Service) WarmUp(ctx context.Context, ids []accessctl.Identity) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.Tags(ctx, id); err != nil {
				return err
			}
			if _, err := s.Persons(ctx, id); err != nil {
				return err
			}
			if _, err := s.Storages(ctx, id); err != nil {
				return err
			}
			_, err := s.Paths(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// cacheKey scopes an entry to the caller. Every admin shares one entry per
// kind since their lists are unrestricted.
func cacheKey(kind string, id accessctl.Identity, access accessctl.EffectiveAccess) string {
	if access.IsAdmin {
		return kind + ":" + adminKeySuffix
	}
	return kind + ":" + id.UserID.String()
}

func redisKey(key string) string {
	return "photark:refdata:" + key
}

// cached consults the shared Redis layer around a store load. Redis errors
// fall through to the database so a cache outage degrades instead of
// failing requests.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.redis == nil {
		return load(ctx)
	}

	rkey := redisKey(key)
	if data, err := s.redis.Get(ctx, rkey).Bytes(); err == nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}

	out, err := load(ctx)
	if err != nil {
		return zero, err
	}

	if data, err := json.Marshal(out); err == nil {
		s.redis.Set(ctx, rkey, data, s.ttl)
	}
	return out, nil
}
