package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Store reads organizations and repositories
type Store interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetOrganizationByName(ctx context.Context, platform Platform, name string) (*Organization, error)
	GetRepository(ctx context.Context, id uuid.UUID) (*Repository, error)
	GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*Repository, error)
}

// MemberStore reads organization membership
type MemberStore interface {
	GetMember(ctx context.Context, organizationID, userID uuid.UUID) (*Member, error)
}

// PostgresStore implements Store and MemberStore over database/sql
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const organizationColumns = `id, platform, name, avatar_url, is_personal, created_at`

func scanOrganization(row *sql.Row) (*Organization, error) {
	org := &Organization{}
	var avatarURL sql.NullString
	err := row.Scan(&org.ID, &org.Platform, &org.Name, &avatarURL, &org.IsPersonal, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.AvatarURL = avatarURL.String
	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresStore) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetOrganizationByName retrieves an organization by platform and name
func (s *PostgresStore) GetOrganizationByName(ctx context.Context, platform Platform, name string) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE platform = $1 AND name = $2`
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, string(platform), name))
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by name: %w", err)
	}
	return org, nil
}

const repositoryColumns = `id, organization_id, name, is_private, created_at`

func scanRepository(row *sql.Row) (*Repository, error) {
	repo := &Repository{}
	err := row.Scan(&repo.ID, &repo.OrganizationID, &repo.Name, &repo.IsPrivate, &repo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// GetRepository retrieves a repository by ID
func (s *PostgresStore) GetRepository(ctx context.Context, id uuid.UUID) (*Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories WHERE id = $1`
	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return repo, nil
}

// GetRepositoryByName retrieves a repository by name within an organization
func (s *PostgresStore) GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories WHERE organization_id = $1 AND name = $2`
	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, organizationID, name))
	if err != nil {
		return nil, fmt.Errorf("failed to get repository by name: %w", err)
	}
	return repo, nil
}

// GetMember retrieves a user's membership in an organization
func (s *PostgresStore) GetMember(ctx context.Context, organizationID, userID uuid.UUID) (*Member, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, organizationID, userID).Scan(
		&member.OrganizationID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}
