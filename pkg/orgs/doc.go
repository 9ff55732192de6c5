// Package orgs provides read access to organizations, repositories and
// organization membership.
//
// # Overview
//
// Organizations are identified by (platform, name). Repositories are
// identified by name within their owning organization, so a lookup of a
// repository under the wrong organization behaves exactly like a missing
// repository.
//
//	store := orgs.NewPostgresStore(db)
//	org, err := store.GetOrganizationByName(ctx, orgs.PlatformGitHub, "acme")
//	if org == nil {
//		// not found
//	}
//	repo, err := store.GetRepositoryByName(ctx, org.ID, "widgets")
//
// Lookups return (nil, nil) when nothing matches. Callers decide how a miss
// is reported.
//
// # Caching
//
// CachedStore fronts any Store with an in-process expirable LRU and an
// optional shared Redis layer. Only hits are cached; a miss always reaches
// the underlying store. Membership is never cached.
//
//	cached := orgs.NewCachedStore(store, redisClient, orgs.CacheConfig{
//		Size: 1024,
//		TTL:  time.Minute,
//	}, metrics)
//
// # Related Packages
//
//   - pkg/scope: resolves request parameters to an organization and repository
//   - pkg/authz: uses membership to decide visibility
package orgs
