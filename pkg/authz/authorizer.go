package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/orgs"
)

// Action is an operation on an object
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Kind identifies the type of object being authorized
type Kind string

const (
	KindOrganization Kind = "organization"
	KindTier         Kind = "subscription_tier"
	KindBenefit      Kind = "subscription_benefit"
	KindSubscription Kind = "subscription"
)

// Object is the authorization view of a resource. Exactly one of
// OrganizationID and RepositoryID is expected for owned objects.
type Object struct {
	Kind           Kind
	OrganizationID *uuid.UUID
	RepositoryID   *uuid.UUID
	Archived       bool
	SubscriberID   *uuid.UUID
}

// Resource is anything that can describe itself for authorization
type Resource interface {
	AuthzObject() Object
}

// AuthzObject lets an Object be passed directly as a Resource
func (o Object) AuthzObject() Object {
	return o
}

// Organization returns the object for an organization
func Organization(id uuid.UUID) Object {
	return Object{Kind: KindOrganization, OrganizationID: &id}
}

// Checker is implemented by Authorizer
type Checker interface {
	Can(ctx context.Context, subject auth.Subject, action Action, resource Resource) (bool, error)
}

// Authorizer evaluates access rules against organization membership
type Authorizer struct {
	members orgs.MemberStore
	repos   orgs.Store
}

// NewAuthorizer creates a new Authorizer
func NewAuthorizer(members orgs.MemberStore, repos orgs.Store) *Authorizer {
	return &Authorizer{members: members, repos: repos}
}

// Can reports whether subject may perform action on resource
func (a *Authorizer) Can(ctx context.Context, subject auth.Subject, action Action, resource Resource) (bool, error) {
	obj := resource.AuthzObject()

	orgID, repo, err := a.owner(ctx, obj)
	if err != nil {
		return false, err
	}
	if orgID == uuid.Nil {
		return false, nil
	}

	member, err := a.member(ctx, subject, orgID)
	if err != nil {
		return false, err
	}

	if action == ActionWrite {
		return member.IsAdmin(), nil
	}
	if member != nil {
		return true, nil
	}

	switch obj.Kind {
	case KindTier:
		if obj.Archived {
			return false, nil
		}
		return repo == nil || !repo.IsPrivate, nil
	case KindSubscription:
		return obj.SubscriberID != nil && !subject.IsAnonymous() && *obj.SubscriberID == subject.UserID(), nil
	default:
		return false, nil
	}
}

// owner resolves the owning organization and, for repository owned
// objects, the repository. A missing repository yields uuid.Nil.
func (a *Authorizer) owner(ctx context.Context, obj Object) (uuid.UUID, *orgs.Repository, error) {
	if obj.OrganizationID != nil {
		return *obj.OrganizationID, nil, nil
	}
	if obj.RepositoryID == nil {
		return uuid.Nil, nil, nil
	}

	repo, err := a.repos.GetRepository(ctx, *obj.RepositoryID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to resolve repository owner: %w", err)
	}
	if repo == nil {
		return uuid.Nil, nil, nil
	}
	return repo.OrganizationID, repo, nil
}

func (a *Authorizer) member(ctx context.Context, subject auth.Subject, orgID uuid.UUID) (*orgs.Member, error) {
	if subject.IsAnonymous() {
		return nil, nil
	}
	member, err := a.members.GetMember(ctx, orgID, subject.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return member, nil
}
