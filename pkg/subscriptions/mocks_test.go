package subscriptions

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/authz"
	"github.com/platinummonkey/backer/pkg/checkout"
	"github.com/platinummonkey/backer/pkg/orgs"
)

// testDBs serves one sqlmock database as both primary and replica
type testDBs struct {
	db *sql.DB
}

func (d testDBs) Primary() *sql.DB { return d.db }
func (d testDBs) Replica() *sql.DB { return d.db }

func newMockDB(t *testing.T) (testDBs, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return testDBs{db: db}, mock
}

// mockChecker implements authz.Checker
type mockChecker struct {
	CanFunc func(ctx context.Context, subject auth.Subject, action authz.Action, resource authz.Resource) (bool, error)
}

func (m *mockChecker) Can(ctx context.Context, subject auth.Subject, action authz.Action, resource authz.Resource) (bool, error) {
	if m.CanFunc != nil {
		return m.CanFunc(ctx, subject, action, resource)
	}
	return true, nil
}

func denyAll() *mockChecker {
	return &mockChecker{CanFunc: func(ctx context.Context, subject auth.Subject, action authz.Action, resource authz.Resource) (bool, error) {
		return false, nil
	}}
}

// mockOrgStore implements orgs.Store over fixed maps
type mockOrgStore struct {
	orgs  map[uuid.UUID]*orgs.Organization
	repos map[uuid.UUID]*orgs.Repository
}

func newMockOrgStore() *mockOrgStore {
	return &mockOrgStore{
		orgs:  make(map[uuid.UUID]*orgs.Organization),
		repos: make(map[uuid.UUID]*orgs.Repository),
	}
}

func (m *mockOrgStore) addOrganization(name string) *orgs.Organization {
	org := &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: name}
	m.orgs[org.ID] = org
	return org
}

func (m *mockOrgStore) addRepository(org *orgs.Organization, name string, private bool) *orgs.Repository {
	repo := &orgs.Repository{ID: uuid.New(), OrganizationID: org.ID, Name: name, IsPrivate: private}
	m.repos[repo.ID] = repo
	return repo
}

func (m *mockOrgStore) GetOrganization(ctx context.Context, id uuid.UUID) (*orgs.Organization, error) {
	return m.orgs[id], nil
}

func (m *mockOrgStore) GetOrganizationByName(ctx context.Context, platform orgs.Platform, name string) (*orgs.Organization, error) {
	for _, org := range m.orgs {
		if org.Platform == platform && org.Name == name {
			return org, nil
		}
	}
	return nil, nil
}

func (m *mockOrgStore) GetRepository(ctx context.Context, id uuid.UUID) (*orgs.Repository, error) {
	return m.repos[id], nil
}

func (m *mockOrgStore) GetRepositoryByName(ctx context.Context, organizationID uuid.UUID, name string) (*orgs.Repository, error) {
	for _, repo := range m.repos {
		if repo.OrganizationID == organizationID && repo.Name == name {
			return repo, nil
		}
	}
	return nil, nil
}

// mockProvider implements checkout.Provider with overridable functions
type mockProvider struct {
	CreateProductFunc         func(ctx context.Context, params checkout.ProductParams) (string, error)
	UpdateProductFunc         func(ctx context.Context, productID string, params checkout.ProductParams) error
	ArchiveProductFunc        func(ctx context.Context, productID string) error
	CreatePriceFunc           func(ctx context.Context, productID string, amount int64, currency string) (string, error)
	ArchivePriceFunc          func(ctx context.Context, priceID string) error
	CreateCheckoutSessionFunc func(ctx context.Context, params checkout.SessionParams) (*checkout.Session, error)
	GetCheckoutSessionFunc    func(ctx context.Context, id string) (*checkout.Session, error)
}

func (m *mockProvider) CreateProduct(ctx context.Context, params checkout.ProductParams) (string, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, params)
	}
	return "prod_test", nil
}

func (m *mockProvider) UpdateProduct(ctx context.Context, productID string, params checkout.ProductParams) error {
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, productID, params)
	}
	return nil
}

func (m *mockProvider) ArchiveProduct(ctx context.Context, productID string) error {
	if m.ArchiveProductFunc != nil {
		return m.ArchiveProductFunc(ctx, productID)
	}
	return nil
}

func (m *mockProvider) CreatePrice(ctx context.Context, productID string, amount int64, currency string) (string, error) {
	if m.CreatePriceFunc != nil {
		return m.CreatePriceFunc(ctx, productID, amount, currency)
	}
	return "price_test", nil
}

func (m *mockProvider) ArchivePrice(ctx context.Context, priceID string) error {
	if m.ArchivePriceFunc != nil {
		return m.ArchivePriceFunc(ctx, priceID)
	}
	return nil
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params checkout.SessionParams) (*checkout.Session, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}
	return &checkout.Session{ID: "cs_test"}, nil
}

func (m *mockProvider) GetCheckoutSession(ctx context.Context, id string) (*checkout.Session, error) {
	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, id)
	}
	return &checkout.Session{ID: id}, nil
}

var (
	testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tierColumnNames = []string{"id", "type", "name", "description", "is_highlighted", "is_archived",
		"price_amount", "price_currency", "stripe_product_id", "stripe_price_id",
		"organization_id", "repository_id", "created_at", "modified_at"}

	benefitColumnNames = []string{"id", "type", "description", "is_tax_applicable", "selectable", "deletable",
		"properties", "organization_id", "repository_id", "created_at", "modified_at"}

	tierBenefitColumnNames = []string{"subscription_tier_id", "id", "type", "description"}
)

// tierValues returns a row for tierColumnNames
func tierValues(t *Tier) []interface{} {
	var orgID, repoID interface{}
	if t.OrganizationID != nil {
		orgID = t.OrganizationID.String()
	}
	if t.RepositoryID != nil {
		repoID = t.RepositoryID.String()
	}
	return []interface{}{t.ID.String(), string(t.Type), t.Name, t.Description, t.IsHighlighted, t.IsArchived,
		t.PriceAmount, t.PriceCurrency, nullString(t.StripeProductID), nullString(t.StripePriceID),
		orgID, repoID, testTime, nil}
}

func tierRows(tiers ...*Tier) *sqlmock.Rows {
	rows := sqlmock.NewRows(tierColumnNames)
	for _, t := range tiers {
		rows.AddRow(toDriverValues(tierValues(t))...)
	}
	return rows
}

// benefitValues returns a row for benefitColumnNames
func benefitValues(b *Benefit, properties string) []interface{} {
	var orgID, repoID interface{}
	if b.OrganizationID != nil {
		orgID = b.OrganizationID.String()
	}
	if b.RepositoryID != nil {
		repoID = b.RepositoryID.String()
	}
	return []interface{}{b.ID.String(), string(b.Type), b.Description, b.IsTaxApplicable, b.Selectable, b.Deletable,
		[]byte(properties), orgID, repoID, testTime, nil}
}

func benefitRows(values ...[]interface{}) *sqlmock.Rows {
	rows := sqlmock.NewRows(benefitColumnNames)
	for _, v := range values {
		rows.AddRow(toDriverValues(v)...)
	}
	return rows
}

func toDriverValues(values []interface{}) []driver.Value {
	out := make([]driver.Value, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func orgTier(orgID uuid.UUID, name string, price int64) *Tier {
	id := orgID
	return &Tier{
		ID:             uuid.New(),
		Type:           TierTypePro,
		Name:           name,
		PriceAmount:    price,
		PriceCurrency:  "usd",
		StripePriceID:  "price_" + name,
		OrganizationID: &id,
	}
}

func testUser() *auth.User {
	return &auth.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
}
