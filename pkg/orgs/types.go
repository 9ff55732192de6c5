package orgs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Platform is the external code hosting platform an organization lives on
type Platform string

const (
	PlatformGitHub Platform = "github"
)

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformGitHub:
		return PlatformGitHub, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Role is a member's role in an organization
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Organization is a tenant that owns repositories, tiers and benefits
type Organization struct {
	ID         uuid.UUID `json:"id"`
	Platform   Platform  `json:"platform"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsPersonal bool      `json:"is_personal"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository belongs to exactly one organization
type Repository struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	IsPrivate      bool      `json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`
}

// Member links a user to an organization
type Member struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsAdmin reports whether the member administers the organization
func (m *Member) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}
