// Package httputil provides the HTTP plumbing shared by the API handlers.
//
// # Overview
//
// Error responses carry a single detail message:
//
//	{"detail": "Organization not found"}
//
// WriteAPIError maps apierrors kinds to status codes. Any other error is a
// 500 whose cause is logged but never sent to the client.
//
//	tiers, err := h.tiers.Search(ctx, subject, params)
//	if err != nil {
//		httputil.WriteAPIError(w, r, err)
//		return
//	}
//	httputil.WriteSuccess(w, tiers)
//
// # Request Parsing
//
// Query parsers return apierrors.BadRequest values so handlers can pass
// them to WriteAPIError unchanged:
//
//	page, err := httputil.ParseQueryInt(r, "page", search.DefaultPage)
//	tierID, err := httputil.ParseQueryUUID(r, "subscription_tier_id")
//	direct, err := httputil.ParseQueryBool(r, "direct_organization", true)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
