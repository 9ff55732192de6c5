// Package api exposes the subscriptions HTTP surface under
// /api/v1/subscriptions.
//
// # Overview
//
// Every route runs behind token authentication and the subscriptions
// feature flag. Routes marked user below reject anonymous callers with 401.
//
//	GET    /tiers/search             optional
//	GET    /tiers/lookup             optional
//	POST   /tiers/                   user
//	POST   /tiers/{id}               user
//	POST   /tiers/{id}/archive       user
//	POST   /tiers/{id}/benefits      user
//	GET    /benefits/search          user
//	GET    /benefits/lookup          user
//	POST   /benefits/                user
//	POST   /benefits/{id}            user
//	DELETE /benefits/{id}            user
//	POST   /subscribe-sessions/      optional, rate limited
//	GET    /subscribe-sessions/{id}  optional
//	GET    /subscriptions/summary    user
//	GET    /subscriptions/search     user
//	GET    /subscriptions/export     user
//
// Search routes take page and limit and answer with a paginated list:
//
//	{"items": [...], "pagination": {"total_count": 12, "max_page": 2}}
//
// Errors are written by httputil.WriteAPIError as {"detail": "..."}.
package api
