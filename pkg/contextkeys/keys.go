// Package contextkeys holds every request-scoped context key in one place.
//
// Values are stored as interface{} where the concrete type lives in a
// package that imports this one (auth.Subject, *observability.Logger).
// Readers type-assert:
//
//	subject, ok := ctx.Value(contextkeys.SubjectKey).(auth.Subject)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SubjectKey holds the auth.Subject set by the authentication middleware.
	// Anonymous callers get auth.Anonymous(), never a missing value.
	SubjectKey Key = "subject"

	// RequestIDKey holds the request id string set by httputil.RequestIDMiddleware
	RequestIDKey Key = "request_id"

	// UserIDKey holds the authenticated user's id as a string, for logging
	UserIDKey Key = "user_id"

	// LoggerKey holds the request's *observability.Logger
	LoggerKey Key = "logger"
)

func WithSubject(ctx context.Context, subject interface{}) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

func stringValue(ctx context.Context, key Key) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// GetRequestID returns the request id, or "" outside a request
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns the user id, or "" for anonymous callers
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}
