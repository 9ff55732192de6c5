package subscriptions

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
)

// Databases routes reads to a replica and writes to the primary.
// postgres.ConnectionManager implements it.
type Databases interface {
	Primary() *sql.DB
	Replica() *sql.DB
}

// ScopeFilter restricts an organization or repository owned table to a
// resolved scope. alias is the owned table and repoAlias the LEFT JOINed
// repositories table.
type ScopeFilter struct {
	Scope              *scope.Scope
	DirectOrganization bool
}

// Apply adds the ownership condition to b. A nil scope adds nothing.
//
// With a repository only entities owned by that repository match. Otherwise
// direct entities match, plus entities of the organization's repositories
// unless DirectOrganization is set.
func (f ScopeFilter) Apply(b *search.Builder, alias, repoAlias string) {
	if f.Scope == nil {
		return
	}
	if f.Scope.Repository != nil {
		b.Where(alias + ".repository_id = " + b.Arg(f.Scope.Repository.ID))
		return
	}

	org := b.Arg(f.Scope.Organization.ID)
	if f.DirectOrganization {
		b.Where(alias + ".organization_id = " + org)
		return
	}
	b.Where(alias + ".organization_id = " + org + " OR " + repoAlias + ".organization_id = " + org)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ownerOrganization returns the organization owning an entity, following a
// repository to its organization. uuid.Nil means the owner does not exist.
func ownerOrganization(ctx context.Context, store orgs.Store, organizationID, repositoryID *uuid.UUID) (uuid.UUID, error) {
	if organizationID != nil {
		return *organizationID, nil
	}
	if repositoryID == nil {
		return uuid.Nil, nil
	}
	repo, err := store.GetRepository(ctx, *repositoryID)
	if err != nil {
		return uuid.Nil, err
	}
	if repo == nil {
		return uuid.Nil, nil
	}
	return repo.OrganizationID, nil
}

// checkOwner validates that exactly one owner is set and that it exists
func checkOwner(ctx context.Context, store orgs.Store, organizationID, repositoryID *uuid.UUID) error {
	if (organizationID == nil) == (repositoryID == nil) {
		return apierrors.BadRequest("Exactly one of organization_id and repository_id is required")
	}
	if organizationID != nil {
		org, err := store.GetOrganization(ctx, *organizationID)
		if err != nil {
			return err
		}
		if org == nil {
			return apierrors.NotFound("Organization not found")
		}
		return nil
	}
	repo, err := store.GetRepository(ctx, *repositoryID)
	if err != nil {
		return err
	}
	if repo == nil {
		return apierrors.NotFound("Repository not found")
	}
	return nil
}
