package accessctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumapix/photark/pkg/cachedvalue"
)

// ProfileSource loads the profiles behind an identity. *Store satisfies it;
// tests substitute fakes.
type ProfileSource interface {
	ProfilesForIdentity(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) ([]AccessProfile, error)
}

// InvalidationHook is notified after a user's cached snapshot is evicted.
// Reference-data caches register one so per-user derived data never outlives
// the access snapshot it was computed from.
type InvalidationHook func(userID uuid.UUID)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// CacheTTL bounds snapshot staleness for users whose assignments are
	// changed by workflows that fail to invalidate. Defaults to 15 minutes.
	CacheTTL time.Duration

	// CacheSize bounds the number of cached snapshots. Defaults to 4096.
	CacheSize int
}

// Resolver computes and memoizes per-user effective access.
type Resolver struct {
	source ProfileSource
	cache  *cachedvalue.Cache[EffectiveAccess]

	mu         sync.Mutex
	hooks      []InvalidationHook
	purgeHooks []func()
}

// NewResolver creates a resolver backed by the given profile source.
func NewResolver(source ProfileSource, opts ResolverOptions) *Resolver {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 4096
	}

	return &Resolver{
		source: source,
		cache: cachedvalue.New[EffectiveAccess](cachedvalue.Options{
			Name:       "effective_access",
			MaxEntries: opts.CacheSize,
			TTL:        opts.CacheTTL,
		}),
	}
}

// Resolve returns the caller's effective access. Admins short-circuit to an
// admin snapshot without touching the store. For everyone else the snapshot
// is the union of all assigned profiles, computed once per user and cached;
// zero assignments (including unknown users) yield deny-all, never an error.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (EffectiveAccess, error) {
	if id.IsAdmin {
		return AdminAccess(), nil
	}

	access, err := r.cache.GetOrCompute(ctx, snapshotKey(id.UserID), func(ctx context.Context) (EffectiveAccess, error) {
		profiles, err := r.source.ProfilesForIdentity(ctx, id.UserID, id.RoleIDs)
		if err != nil {
			return EffectiveAccess{}, fmt.Errorf("failed to resolve effective access: %w", err)
		}
		return Union(profiles), nil
	})
	if err != nil {
		return EffectiveAccess{}, err
	}
	return access, nil
}

// Invalidate evicts one user's snapshot and notifies registered hooks. Any
// workflow that changes the user's assignments, a held role's assignments, or
// role membership must call this before reporting success, so the user's next
// read observes the change.
func (r *Resolver) Invalidate(userID uuid.UUID) {
	r.cache.Invalidate(snapshotKey(userID))

	r.mu.Lock()
	hooks := make([]InvalidationHook, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(userID)
	}
}

// InvalidateMany evicts snapshots for every given user, e.g. after a profile
// edit that affects all holders.
func (r *Resolver) InvalidateMany(userIDs []uuid.UUID) {
	for _, id := range userIDs {
		r.Invalidate(id)
	}
}

// InvalidateAllSnapshots drops every cached snapshot and notifies purge
// hooks. Role membership lives in the identity system, so a change that
// reaches users through a role (profile edit or delete, role unassignment)
// cannot enumerate who is affected; dropping everything is the only way to
// honor the revocation guarantee for role-held grants.
func (r *Resolver) InvalidateAllSnapshots() {
	r.cache.InvalidateAll()

	r.mu.Lock()
	hooks := make([]func(), len(r.purgeHooks))
	copy(hooks, r.purgeHooks)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// OnInvalidate registers a hook that runs after each snapshot eviction.
func (r *Resolver) OnInvalidate(hook InvalidationHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

// OnInvalidateAll registers a hook that runs after a full snapshot purge.
func (r *Resolver) OnInvalidateAll(hook func()) {
	r.mu.Lock()
	r.purgeHooks = append(r.purgeHooks, hook)
	r.mu.Unlock()
}

// CacheStats exposes the snapshot cache's hit/miss/eviction counters.
func (r *Resolver) CacheStats() cachedvalue.CacheStats {
	return r.cache.Stats()
}

func snapshotKey(userID uuid.UUID) string {
	return "effacc:" + userID.String()
}
