package orgs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/backer/pkg/async"
	"github.com/platinummonkey/backer/pkg/observability"
)

const (
	cacheName        = "orgs"
	redisFillTimeout = 2 * time.Second
)

// CacheConfig configures CachedStore
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size: 1024,
		TTL:  time.Minute,
	}
}

// CachedStore caches organization and repository lookups in an expirable LRU
// and, when a Redis client is given, in Redis. Membership is delegated
// uncached through the wrapped MemberStore if it implements one.
type CachedStore struct {
	next    Store
	redis   *redis.Client
	ttl     time.Duration
	orgs    *lru.LRU[string, *Organization]
	repos   *lru.LRU[string, *Repository]
	metrics *observability.Metrics
}

// NewCachedStore wraps next. redisClient and metrics may be nil.
func NewCachedStore(next Store, redisClient *redis.Client, config CacheConfig, metrics *observability.Metrics) *CachedStore {
	if config.Size <= 0 {
		config.Size = DefaultCacheConfig().Size
	}
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig().TTL
	}

	return &CachedStore{
		next:    next,
		redis:   redisClient,
		ttl:     config.TTL,
		orgs:    lru.NewLRU[string, *Organization](config.Size, nil, config.TTL),
		repos:   lru.NewLRU[string, *Repository](config.Size, nil, config.TTL),
		metrics: metrics,
	}
}

func orgIDKey(id uuid.UUID) string {
	return fmt.Sprintf("org:id:%s", id)
}

func orgNameKey(platform Platform, name string) string {
	return fmt.Sprintf("org:name:%s:%s", platform, name)
}

func repoIDKey(id uuid.UUID) string {
	return fmt.Sprintf("repo:id:%s", id)
}

func repoNameKey(organizationID uuid.UUID, name string) string {
	return fmt.Sprintf("repo:name:%s:%s", organizationID, name)
}

// GetOrganization retrieves an organization by ID with caching
func (c *CachedStore) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return cachedGet(ctx, c, c.orgs, orgIDKey(id), func() (*Organization, error) {
		return c.next.GetOrganization(ctx, id)
	})
}

// GetOrganizationByName retrieves an organization by platform and name with caching
func (c *CachedStore) GetOrganizationByName(ctx context.Context, platform Platform, name string) (*Organization, error) {
	return cachedGet(ctx, c, c.orgs, orgNameKey(platform, name), func() (*Organization, error) {
		return c.next.GetOrganizationByName(ctx, platform, name)
	})
}

// GetRepository retrieves a repository by ID with caching
func (c *CachedStore) GetRepository(ctx context.Context, id uuid.UUID) (*Repository, error) {
	return cachedGet(ctx, c, c.repos, repoIDKey(id), func() (*Repository, error) {
		return c.next.GetRepository(ctx, id)
	})
}

// GetRepositoryByName retrieves a repository by name with caching
func (c *CachedStore) GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*Repository, error) {
	return cachedGet(ctx, c, c.repos, repoNameKey(organizationID, name), func() (*Repository, error) {
		return c.next.GetRepositoryByName(ctx, organizationID, name)
	})
}

// GetMember is never cached
func (c *CachedStore) GetMember(ctx context.Context, organizationID, userID uuid.UUID) (*Member, error) {
	members, ok := c.next.(MemberStore)
	if !ok {
		return nil, fmt.Errorf("wrapped store does not provide membership")
	}
	return members.GetMember(ctx, organizationID, userID)
}

// InvalidateOrganization drops cached entries for an organization
func (c *CachedStore) InvalidateOrganization(ctx context.Context, org *Organization) error {
	keys := []string{orgIDKey(org.ID), orgNameKey(org.Platform, org.Name)}
	for _, key := range keys {
		c.orgs.Remove(key)
	}
	return c.invalidateRedis(ctx, keys...)
}

// InvalidateRepository drops cached entries for a repository
func (c *CachedStore) InvalidateRepository(ctx context.Context, repo *Repository) error {
	keys := []string{repoIDKey(repo.ID), repoNameKey(repo.OrganizationID, repo.Name)}
	for _, key := range keys {
		c.repos.Remove(key)
	}
	return c.invalidateRedis(ctx, keys...)
}

func (c *CachedStore) invalidateRedis(ctx context.Context, keys ...string) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cachedGet[T any](ctx context.Context, c *CachedStore, local *lru.LRU[string, *T], key string, load func() (*T, error)) (*T, error) {
	if v, ok := local.Get(key); ok {
		c.metrics.RecordCacheHit(cacheName, "memory")
		return v, nil
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				c.metrics.RecordCacheHit(cacheName, "redis")
				local.Add(key, &v)
				return &v, nil
			}
			// Corrupt entry
			c.redis.Del(ctx, key)
		}
	}

	c.metrics.RecordCacheMiss(cacheName)
	v, err := load()
	if err != nil || v == nil {
		return v, err
	}

	local.Add(key, v)
	if c.redis != nil {
		data, err := json.Marshal(v)
		if err == nil {
			async.SafeGo(context.WithoutCancel(ctx), redisFillTimeout, "orgs cache fill", func(ctx context.Context) error {
				return c.redis.Set(ctx, key, data, c.ttl).Err()
			})
		}
	}
	return v, nil
}
