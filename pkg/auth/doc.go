// Package auth provides user identity and API token authentication for Backer.
//
// # Overview
//
// Requests are made either anonymously or on behalf of a user. The Subject
// type carries that distinction through the resolver, the authorizer and
// the feature flag gate:
//
//	subject := auth.Anonymous()
//	subject = auth.ForUser(user)
//	subject.DistinctID() // user id, or "anonymous"
//
// # API Tokens
//
// Tokens have the form backer_<base64url(32 random bytes)>. Only the SHA256
// hash is stored; the first eight characters after the prefix are kept for
// display.
//
//	manager := auth.NewTokenManager(db)
//	apiToken, plaintext, err := manager.CreateToken(ctx, user.ID, "ci", nil)
//
//	user, err := manager.Authenticate(ctx, plaintext)
//	if errors.Is(err, auth.ErrInvalidToken) {
//		// unknown, revoked or expired
//	}
//
// Authenticate records last_used_at on every successful lookup.
package auth
