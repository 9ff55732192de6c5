package authz

import (
	"fmt"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/search"
)

// The predicates expect the owned table aliased as alias and repositories
// LEFT JOINed as repoAlias on alias.repository_id.

func ownerOrganization(alias, repoAlias string) string {
	return fmt.Sprintf("COALESCE(%s.organization_id, %s.organization_id)", alias, repoAlias)
}

func memberOrganizations(b *search.Builder, subject auth.Subject) string {
	return "SELECT organization_id FROM organization_members WHERE user_id = " + b.Arg(subject.UserID())
}

// TierReadable renders the tier read rule
func TierReadable(b *search.Builder, subject auth.Subject, alias, repoAlias string) string {
	public := fmt.Sprintf("%s.is_archived = false AND (%s.repository_id IS NULL OR %s.is_private = false)",
		alias, alias, repoAlias)
	if subject.IsAnonymous() {
		return public
	}
	return fmt.Sprintf("(%s) OR %s IN (%s)", public, ownerOrganization(alias, repoAlias), memberOrganizations(b, subject))
}

// BenefitReadable renders the benefit read rule
func BenefitReadable(b *search.Builder, subject auth.Subject, alias, repoAlias string) string {
	if subject.IsAnonymous() {
		return "1=0"
	}
	return fmt.Sprintf("%s IN (%s)", ownerOrganization(alias, repoAlias), memberOrganizations(b, subject))
}

// SubscriptionReadable renders the subscription read rule. tierAlias is the
// joined subscription tier and repoAlias the tier's repository.
func SubscriptionReadable(b *search.Builder, subject auth.Subject, alias, tierAlias, repoAlias string) string {
	if subject.IsAnonymous() {
		return "1=0"
	}
	return fmt.Sprintf("%s.user_id = %s OR %s IN (%s)",
		alias, b.Arg(subject.UserID()), ownerOrganization(tierAlias, repoAlias), memberOrganizations(b, subject))
}
