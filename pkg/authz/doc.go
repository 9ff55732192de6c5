// Package authz decides what a subject may read or write.
//
// # Overview
//
// Rules are expressed twice: Authorizer.Can checks a single loaded object,
// and the predicate helpers render the same rules as SQL for searches.
//
//	ok, err := authorizer.Can(ctx, subject, authz.ActionRead, tier)
//
//	b := search.NewBuilder()
//	b.Where(authz.TierReadable(b, subject, "t", "r"))
//
// # Rules
//
//	tier read          org members: always; others: not archived and not
//	                   owned by a private repository
//	benefit read       org members
//	subscription read  the subscriber or org members
//	organization read  org members
//	write              org admins
//
// Repository owned objects belong to the repository's organization.
package authz
