package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/orgs"
)

// mockStore implements orgs.Store with overridable functions
type mockStore struct {
	GetOrganizationByNameFunc func(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error)
	GetRepositoryByNameFunc   func(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error)
	calls                     int
}

func (m *mockStore) GetOrganization(ctx context.Context, id uuid.UUID) (*orgs.Organization, error) {
	m.calls++
	return nil, nil
}

func (m *mockStore) GetOrganizationByName(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
	m.calls++
	if m.GetOrganizationByNameFunc != nil {
		return m.GetOrganizationByNameFunc(ctx, platform, name)
	}
	return nil, nil
}

func (m *mockStore) GetRepository(ctx context.Context, id uuid.UUID) (*orgs.Repository, error) {
	m.calls++
	return nil, nil
}

func (m *mockStore) GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error) {
	m.calls++
	if m.GetRepositoryByNameFunc != nil {
		return m.GetRepositoryByNameFunc(ctx, organizationID, name)
	}
	return nil, nil
}

func acmeStore() (*mockStore, *orgs.Organization, *orgs.Repository) {
	acme := &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: "acme"}
	widgets := &orgs.Repository{ID: uuid.New(), OrganizationID: acme.ID, Name: "widgets"}
	store := &mockStore{
		GetOrganizationByNameFunc: func(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
			if platform == orgs.PlatformGitHub && name == "acme" {
				return acme, nil
			}
			return nil, nil
		},
		GetRepositoryByNameFunc: func(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error) {
			if organizationID == acme.ID && name == "widgets" {
				return widgets, nil
			}
			return nil, nil
		},
	}
	return store, acme, widgets
}

func TestResolver_Resolve(t *testing.T) {
	store, acme, widgets := acmeStore()
	resolver := NewResolver(store)
	ctx := context.Background()

	t.Run("organization only", func(t *testing.T) {
		scope, err := resolver.Resolve(ctx, Params{Platform: orgs.PlatformGitHub, OrganizationName: "acme"})
		require.NoError(t, err)
		assert.Equal(t, acme, scope.Organization)
		assert.Nil(t, scope.Repository)
	})

	t.Run("organization and repository", func(t *testing.T) {
		scope, err := resolver.Resolve(ctx, Params{Platform: orgs.PlatformGitHub, OrganizationName: "acme", RepositoryName: "widgets"})
		require.NoError(t, err)
		assert.Equal(t, acme, scope.Organization)
		assert.Equal(t, widgets, scope.Repository)
		assert.Equal(t, scope.Organization.ID, scope.Repository.OrganizationID)
	})

	t.Run("missing organization", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Params{Platform: orgs.PlatformGitHub, OrganizationName: "globex"})
		require.Error(t, err)
		apiErr, ok := apierrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apierrors.KindNotFound, apiErr.Kind)
		assert.Equal(t, "Organization not found", apiErr.Message)
	})

	t.Run("missing repository", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Params{Platform: orgs.PlatformGitHub, OrganizationName: "acme", RepositoryName: "gadgets"})
		apiErr, ok := apierrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "Repository not found", apiErr.Message)
	})
}

func TestResolver_RepositoryOfAnotherOrganization(t *testing.T) {
	store, _, _ := acmeStore()
	globex := &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: "globex"}
	acmeLookup := store.GetOrganizationByNameFunc
	store.GetOrganizationByNameFunc = func(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
		if name == "globex" {
			return globex, nil
		}
		return acmeLookup(ctx, platform, name)
	}

	_, err := NewResolver(store).Resolve(context.Background(), Params{
		Platform: orgs.PlatformGitHub, OrganizationName: "globex", RepositoryName: "widgets",
	})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestResolver_RejectsForeignRepository(t *testing.T) {
	store, _, _ := acmeStore()
	foreign := &orgs.Repository{ID: uuid.New(), OrganizationID: uuid.New(), Name: "widgets"}
	store.GetRepositoryByNameFunc = func(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error) {
		return foreign, nil
	}

	scope, err := NewResolver(store).Resolve(context.Background(), Params{
		Platform: orgs.PlatformGitHub, OrganizationName: "acme", RepositoryName: "widgets",
	})
	assert.Nil(t, scope)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.KindNotFound, apiErr.Kind)
	assert.Equal(t, "Repository not found", apiErr.Message)
}

func TestResolver_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{
		GetOrganizationByNameFunc: func(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
			return nil, storeErr
		},
	}

	_, err := NewResolver(store).Resolve(context.Background(), Params{Platform: orgs.PlatformGitHub, OrganizationName: "acme"})
	assert.ErrorIs(t, err, storeErr)
	_, isAPIErr := apierrors.As(err)
	assert.False(t, isAPIErr)
}

func TestResolver_ResolveOptional(t *testing.T) {
	t.Run("no organization", func(t *testing.T) {
		store, _, _ := acmeStore()
		scope, err := NewResolver(store).ResolveOptional(context.Background(), Params{})
		require.NoError(t, err)
		assert.Nil(t, scope)
		assert.Zero(t, store.calls)
	})

	t.Run("repository without organization fails before store access", func(t *testing.T) {
		store, _, _ := acmeStore()
		_, err := NewResolver(store).ResolveOptional(context.Background(), Params{RepositoryName: "widgets"})
		assert.True(t, apierrors.IsBadRequest(err))
		assert.Zero(t, store.calls)
	})

	t.Run("organization without platform", func(t *testing.T) {
		store, _, _ := acmeStore()
		scope, err := NewResolver(store).ResolveOptional(context.Background(), Params{OrganizationName: "acme"})
		assert.Nil(t, scope)
		assert.True(t, apierrors.IsBadRequest(err))
		assert.Zero(t, store.calls)
	})

	t.Run("platform without organization", func(t *testing.T) {
		store, _, _ := acmeStore()
		_, err := NewResolver(store).ResolveOptional(context.Background(), Params{Platform: orgs.PlatformGitHub})
		assert.True(t, apierrors.IsBadRequest(err))
		assert.Zero(t, store.calls)
	})

	t.Run("organization given", func(t *testing.T) {
		store, acme, _ := acmeStore()
		scope, err := NewResolver(store).ResolveOptional(context.Background(), Params{Platform: orgs.PlatformGitHub, OrganizationName: "acme"})
		require.NoError(t, err)
		assert.Equal(t, acme, scope.Organization)
	})
}
