// Package middleware provides request authentication, the feature flag gate
// and rate limiting for the subscriptions API.
//
// # Overview
//
//	authn := middleware.NewAuthMiddleware(tokenManager)
//	gate := middleware.FeatureGate(flags, features.FlagSubscriptions, metrics)
//	router.Use(authn.Handler, gate)
//
// AuthMiddleware never rejects a request without credentials. It stores an
// anonymous auth.Subject instead, and routes that need a user wrap
// themselves in RequireUser. A malformed or unknown token is rejected with
// 401.
//
// # Rate Limiting
//
// RateLimitMiddleware counts requests per user, or per client IP for
// anonymous callers, in fixed Redis windows shared by every instance. Redis
// failures fail open.
package middleware
