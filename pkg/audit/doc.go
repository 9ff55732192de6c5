// Package audit records who changed subscription data and who exported a
// subscriber list.
//
// # Overview
//
// Middleware classifies each request by its route template. Unclassified
// requests (searches, lookups) are not recorded. A recorded event carries
// the actor, the request id, the outcome and the path id of the resource:
//
//	POST   /api/v1/subscriptions/tiers/{id}/archive   tier.archive
//	DELETE /api/v1/subscriptions/benefits/{id}        benefit.delete
//	GET    /api/v1/subscriptions/subscriptions/export subscriptions.export
//
// Failures to record are logged and never fail the request.
//
//	router.Use(audit.NewMiddleware(audit.NewDBLogger(db)).Handler)
package audit
