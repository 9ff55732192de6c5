package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/orgs"
)

type fakeStore struct {
	org  *orgs.Organization
	repo *orgs.Repository
}

func (f *fakeStore) GetOrganization(ctx context.Context, id uuid.UUID) (*orgs.Organization, error) {
	if f.org != nil && f.org.ID == id {
		return f.org, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOrganizationByName(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
	if f.org != nil && f.org.Name == name {
		return f.org, nil
	}
	return nil, nil
}

func (f *fakeStore) GetRepository(ctx context.Context, id uuid.UUID) (*orgs.Repository, error) {
	if f.repo != nil && f.repo.ID == id {
		return f.repo, nil
	}
	return nil, nil
}

func (f *fakeStore) GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error) {
	if f.repo != nil && f.repo.OrganizationID == organizationID && f.repo.Name == name {
		return f.repo, nil
	}
	return nil, nil
}

func TestPurge(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	org := &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: "acme"}
	repo := &orgs.Repository{ID: uuid.New(), OrganizationID: org.ID, Name: "widgets"}
	store := &fakeStore{org: org, repo: repo}
	cached := orgs.NewCachedStore(store, client, orgs.DefaultCacheConfig(), nil)
	ctx := context.Background()

	_, err := cached.GetOrganizationByName(ctx, orgs.PlatformGitHub, "acme")
	require.NoError(t, err)
	_, err = cached.GetRepositoryByName(ctx, org.ID, "widgets")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(mr.Keys()) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, purge(ctx, store, cached, orgs.PlatformGitHub, "acme", "widgets"))
	assert.Len(t, mr.Keys(), 1)

	require.NoError(t, purge(ctx, store, cached, orgs.PlatformGitHub, "acme", ""))
	assert.Empty(t, mr.Keys())
}

func TestPurgeUnknownNames(t *testing.T) {
	org := &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: "acme"}
	store := &fakeStore{org: org}
	cached := orgs.NewCachedStore(store, nil, orgs.DefaultCacheConfig(), nil)
	ctx := context.Background()

	assert.ErrorContains(t, purge(ctx, store, cached, orgs.PlatformGitHub, "globex", ""), "organization github/globex not found")
	assert.ErrorContains(t, purge(ctx, store, cached, orgs.PlatformGitHub, "acme", "gadgets"), "repository gadgets not found")
}
