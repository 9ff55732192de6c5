// Package search provides the shared plumbing of the filtered search
// endpoints: pagination parameters, list responses, sort parsing and a
// small SQL filter builder.
//
// # Overview
//
// Every search runs two statements built from the same filter: a
// COUNT(*) over the full match set and a windowed SELECT. The total count is
// therefore independent of the requested page.
//
//	b := search.NewBuilder()
//	b.Where("t.organization_id = " + b.Arg(orgID))
//	b.Where("t.is_archived = false")
//
//	countSQL := "SELECT COUNT(*) FROM subscription_tiers t" + b.WhereSQL()
//	listSQL := "SELECT ... FROM subscription_tiers t" + b.WhereSQL() +
//		search.OrderBy(sorts, columns, "t.id") + b.Window(pagination)
//
// # Pagination
//
// page starts at 1, limit is between 1 and 100:
//
//	p, err := search.NewPagination(page, limit)
//	list := search.NewListResource(items, total, p)
//	// {"items": [...], "pagination": {"total_count": 12, "max_page": 2}}
//
// # Sorting
//
// Sort values are keys from a closed set, optionally prefixed with "-" for
// descending order. OrderBy always appends the entity id as the last key so
// pages are disjoint and stable.
package search
