// Package subscriptions implements subscription tiers, benefits, checkout
// sessions and the read side over subscriptions.
//
// # Overview
//
// Tiers and benefits are owned either by an organization directly or by one
// of its repositories. Every search takes a resolved scope.Scope and a
// direct_organization flag:
//
//	direct_organization=true   organization_id = org
//	direct_organization=false  organization_id = org OR repository.organization_id = org
//
// With a repository in scope only that repository's entities match. Direct
// and inherited entities are returned side by side without precedence.
//
// # Visibility
//
// Searches translate the authz rules into SQL predicates so counts and pages
// only contain rows the subject may read. Single entity reads ask the
// authz.Checker and report unreadable rows as not found.
//
// # Pagination
//
// Counts are computed with the same WHERE clause before LIMIT/OFFSET is
// applied. Every ORDER BY ends with the entity id so pages never overlap.
//
// # Summary
//
// Summary buckets subscriptions into calendar months. A subscription counts
// towards a month when it started before the month ends and had not ended
// before the month began. Months without activity are returned with zero
// subscribers and zero MRR.
//
// # Benefit properties
//
// Benefit.Properties holds one of the *Properties structs selected by
// Benefit.Type. JSON encoding and decoding dispatch on the type, as does
// reading the JSONB column.
package subscriptions
