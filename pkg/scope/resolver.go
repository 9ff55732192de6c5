// Package scope resolves request parameters naming an organization and,
// optionally, one of its repositories into loaded entities.
//
// Resolution is read only. Each call reads the store independently.
package scope

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/orgs"
)

// Scope is a resolved organization and optional repository
type Scope struct {
	Organization *orgs.Organization
	Repository   *orgs.Repository
}

// Params names the scope of a request. RepositoryName may be empty.
type Params struct {
	Platform         orgs.Platform
	OrganizationName string
	RepositoryName   string
}

// Resolver loads scopes from an organization store
type Resolver struct {
	store orgs.Store
}

// NewResolver creates a new Resolver
func NewResolver(store orgs.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the organization and, if named, the repository
func (r *Resolver) Resolve(ctx context.Context, params Params) (_ *Scope, err error) {
	ctx, span := observability.StartSpan(ctx, "scope.Resolve",
		attribute.String("platform", string(params.Platform)),
		attribute.String("organization", params.OrganizationName),
		attribute.String("repository", params.RepositoryName),
	)
	defer func() { observability.EndSpan(span, err) }()

	org, err := r.store.GetOrganizationByName(ctx, params.Platform, params.OrganizationName)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apierrors.NotFound("Organization not found")
	}

	scope := &Scope{Organization: org}
	if params.RepositoryName == "" {
		return scope, nil
	}

	repo, err := r.store.GetRepositoryByName(ctx, org.ID, params.RepositoryName)
	if err != nil {
		return nil, err
	}
	if repo == nil || repo.OrganizationID != org.ID {
		return nil, apierrors.NotFound("Repository not found")
	}
	scope.Repository = repo

	return scope, nil
}

// Named reports whether params name a scope at all. Partial scopes, such as
// an organization without a platform or a repository without an
// organization, are rejected.
func (p Params) Named() (bool, error) {
	if p.OrganizationName == "" && p.Platform == "" {
		if p.RepositoryName != "" {
			return false, apierrors.BadRequest("organization_name and platform are required when repository_name is set")
		}
		return false, nil
	}
	if p.OrganizationName == "" || p.Platform == "" {
		return false, apierrors.BadRequest("organization_name and platform must be given together")
	}
	return true, nil
}

// ResolveOptional resolves a scope whose organization may be omitted. It
// returns a nil scope when params name none and rejects partial scopes
// before the store is touched.
func (r *Resolver) ResolveOptional(ctx context.Context, params Params) (*Scope, error) {
	named, err := params.Named()
	if err != nil || !named {
		return nil, err
	}
	return r.Resolve(ctx, params)
}
