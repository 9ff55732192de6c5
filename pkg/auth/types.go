package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a platform user (a backer or an organization member)
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AnonymousDistinctID is the distinct id used for callers without a user
const AnonymousDistinctID = "anonymous"

// Subject is the actor behind a request. A nil User means anonymous.
type Subject struct {
	User *User
}

// Anonymous returns a subject with no user
func Anonymous() Subject {
	return Subject{}
}

// ForUser returns a subject for an authenticated user
func ForUser(user *User) Subject {
	return Subject{User: user}
}

// IsAnonymous reports whether the subject has no user
func (s Subject) IsAnonymous() bool {
	return s.User == nil
}

// UserID returns the user id, or uuid.Nil for anonymous subjects
func (s Subject) UserID() uuid.UUID {
	if s.User == nil {
		return uuid.Nil
	}
	return s.User.ID
}

// DistinctID returns the identifier used for feature flag evaluation
func (s Subject) DistinctID() string {
	if s.User == nil {
		return AnonymousDistinctID
	}
	return s.User.ID.String()
}

// APIToken represents a stored API token. The plaintext is never stored.
type APIToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}
