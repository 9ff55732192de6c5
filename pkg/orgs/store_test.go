package orgs

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			avatar_url TEXT,
			is_personal BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (platform, name)
		);
		CREATE TABLE repositories (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			is_private BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (organization_id, name)
		);
		CREATE TABLE organization_members (
			organization_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (organization_id, user_id)
		);
	`
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}

func insertOrg(t *testing.T, db *sql.DB, name string) uuid.UUID {
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO organizations (id, platform, name, avatar_url) VALUES ($1, $2, $3, $4)`,
		id.String(), "github", name, "https://avatars.example.com/"+name)
	require.NoError(t, err)
	return id
}

func insertRepo(t *testing.T, db *sql.DB, orgID uuid.UUID, name string, private bool) uuid.UUID {
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO repositories (id, organization_id, name, is_private) VALUES ($1, $2, $3, $4)`,
		id.String(), orgID.String(), name, private)
	require.NoError(t, err)
	return id
}

func TestPostgresStore_GetOrganizationByName(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	acmeID := insertOrg(t, db, "acme")

	org, err := store.GetOrganizationByName(ctx, PlatformGitHub, "acme")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, acmeID, org.ID)
	assert.Equal(t, PlatformGitHub, org.Platform)
	assert.Equal(t, "https://avatars.example.com/acme", org.AvatarURL)

	missing, err := store.GetOrganizationByName(ctx, PlatformGitHub, "globex")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := store.GetOrganization(ctx, acmeID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "acme", byID.Name)
}

func TestPostgresStore_GetRepositoryByName(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	acmeID := insertOrg(t, db, "acme")
	globexID := insertOrg(t, db, "globex")
	widgetsID := insertRepo(t, db, acmeID, "widgets", false)
	insertRepo(t, db, globexID, "gadgets", true)

	t.Run("owned by organization", func(t *testing.T) {
		repo, err := store.GetRepositoryByName(ctx, acmeID, "widgets")
		require.NoError(t, err)
		require.NotNil(t, repo)
		assert.Equal(t, widgetsID, repo.ID)
		assert.Equal(t, acmeID, repo.OrganizationID)
		assert.False(t, repo.IsPrivate)
	})

	t.Run("owned by another organization", func(t *testing.T) {
		repo, err := store.GetRepositoryByName(ctx, acmeID, "gadgets")
		require.NoError(t, err)
		assert.Nil(t, repo)
	})

	t.Run("by id", func(t *testing.T) {
		repo, err := store.GetRepository(ctx, widgetsID)
		require.NoError(t, err)
		require.NotNil(t, repo)
		assert.Equal(t, "widgets", repo.Name)
	})
}

func TestPostgresStore_GetMember(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	acmeID := insertOrg(t, db, "acme")
	adminID := uuid.New()
	_, err := db.Exec(`INSERT INTO organization_members (organization_id, user_id, role) VALUES ($1, $2, $3)`,
		acmeID.String(), adminID.String(), "admin")
	require.NoError(t, err)

	member, err := store.GetMember(ctx, acmeID, adminID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, RoleAdmin, member.Role)
	assert.True(t, member.IsAdmin())

	outsider, err := store.GetMember(ctx, acmeID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, outsider)
	assert.False(t, outsider.IsAdmin())
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("github")
	require.NoError(t, err)
	assert.Equal(t, PlatformGitHub, p)

	_, err = ParsePlatform("gitlab")
	assert.Error(t, err)
}
