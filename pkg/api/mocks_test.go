package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/features"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

var errNotImplemented = errors.New("not implemented")

const (
	testToken     = "backer_testtoken"
	testOrgName   = "acme"
	searchBaseURL = BasePath + "/tiers/search?platform=github&organization_name=" + testOrgName
)

var (
	testUser = &auth.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	testOrg  = &orgs.Organization{ID: uuid.New(), Platform: orgs.PlatformGitHub, Name: testOrgName}
)

type mockTierService struct {
	searchFunc         func(ctx context.Context, subject auth.Subject, params subscriptions.TierSearchParams) ([]subscriptions.Tier, int, error)
	lookupFunc         func(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error)
	createFunc         func(ctx context.Context, subject auth.Subject, input subscriptions.TierCreate) (*subscriptions.Tier, error)
	updateFunc         func(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.TierUpdate) (*subscriptions.Tier, error)
	archiveFunc        func(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error)
	updateBenefitsFunc func(ctx context.Context, subject auth.Subject, id uuid.UUID, benefitIDs []uuid.UUID) (*subscriptions.Tier, error)
}

func (m *mockTierService) Search(ctx context.Context, subject auth.Subject, params subscriptions.TierSearchParams) ([]subscriptions.Tier, int, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, subject, params)
	}
	return nil, 0, errNotImplemented
}

func (m *mockTierService) Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, subject, id)
	}
	return nil, errNotImplemented
}

func (m *mockTierService) Create(ctx context.Context, subject auth.Subject, input subscriptions.TierCreate) (*subscriptions.Tier, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, subject, input)
	}
	return nil, errNotImplemented
}

func (m *mockTierService) Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.TierUpdate) (*subscriptions.Tier, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, subject, id, input)
	}
	return nil, errNotImplemented
}

func (m *mockTierService) Archive(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error) {
	if m.archiveFunc != nil {
		return m.archiveFunc(ctx, subject, id)
	}
	return nil, errNotImplemented
}

func (m *mockTierService) UpdateBenefits(ctx context.Context, subject auth.Subject, id uuid.UUID, benefitIDs []uuid.UUID) (*subscriptions.Tier, error) {
	if m.updateBenefitsFunc != nil {
		return m.updateBenefitsFunc(ctx, subject, id, benefitIDs)
	}
	return nil, errNotImplemented
}

type mockBenefitService struct {
	searchFunc func(ctx context.Context, subject auth.Subject, params subscriptions.BenefitSearchParams) ([]subscriptions.Benefit, int, error)
	lookupFunc func(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Benefit, error)
	createFunc func(ctx context.Context, subject auth.Subject, input subscriptions.BenefitCreate) (*subscriptions.Benefit, error)
	updateFunc func(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.BenefitUpdate) (*subscriptions.Benefit, error)
	deleteFunc func(ctx context.Context, subject auth.Subject, id uuid.UUID) error
}

func (m *mockBenefitService) Search(ctx context.Context, subject auth.Subject, params subscriptions.BenefitSearchParams) ([]subscriptions.Benefit, int, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, subject, params)
	}
	return nil, 0, errNotImplemented
}

func (m *mockBenefitService) Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Benefit, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, subject, id)
	}
	return nil, errNotImplemented
}

func (m *mockBenefitService) Create(ctx context.Context, subject auth.Subject, input subscriptions.BenefitCreate) (*subscriptions.Benefit, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, subject, input)
	}
	return nil, errNotImplemented
}

func (m *mockBenefitService) Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.BenefitUpdate) (*subscriptions.Benefit, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, subject, id, input)
	}
	return nil, errNotImplemented
}

func (m *mockBenefitService) Delete(ctx context.Context, subject auth.Subject, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, subject, id)
	}
	return errNotImplemented
}

type mockSubscriptionService struct {
	searchFunc  func(ctx context.Context, subject auth.Subject, params subscriptions.SubscriptionSearchParams) ([]subscriptions.Subscription, int, error)
	summaryFunc func(ctx context.Context, subject auth.Subject, params subscriptions.SummaryParams) ([]subscriptions.PeriodSummary, error)
	exportFunc  func(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error)
}

func (m *mockSubscriptionService) Search(ctx context.Context, subject auth.Subject, params subscriptions.SubscriptionSearchParams) ([]subscriptions.Subscription, int, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, subject, params)
	}
	return nil, 0, errNotImplemented
}

func (m *mockSubscriptionService) Summary(ctx context.Context, subject auth.Subject, params subscriptions.SummaryParams) ([]subscriptions.PeriodSummary, error) {
	if m.summaryFunc != nil {
		return m.summaryFunc(ctx, subject, params)
	}
	return nil, errNotImplemented
}

func (m *mockSubscriptionService) Export(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, subject, sc)
	}
	return nil, errNotImplemented
}

type mockSessionService struct {
	createFunc func(ctx context.Context, subject auth.Subject, input subscriptions.SessionCreate) (*subscriptions.CheckoutSession, error)
	getFunc    func(ctx context.Context, id string) (*subscriptions.CheckoutSession, error)
}

func (m *mockSessionService) Create(ctx context.Context, subject auth.Subject, input subscriptions.SessionCreate) (*subscriptions.CheckoutSession, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, subject, input)
	}
	return nil, errNotImplemented
}

func (m *mockSessionService) Get(ctx context.Context, id string) (*subscriptions.CheckoutSession, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, errNotImplemented
}

// mockResolver resolves testOrgName and records the last params
type mockResolver struct {
	last  scope.Params
	calls int
}

func (m *mockResolver) Resolve(ctx context.Context, params scope.Params) (*scope.Scope, error) {
	m.last = params
	m.calls++
	if params.OrganizationName != testOrgName {
		return nil, apierrors.NotFound("Organization not found")
	}
	return &scope.Scope{Organization: testOrg}, nil
}

func (m *mockResolver) ResolveOptional(ctx context.Context, params scope.Params) (*scope.Scope, error) {
	named, err := params.Named()
	if err != nil || !named {
		return nil, err
	}
	return m.Resolve(ctx, params)
}

type mockAuthenticator struct{}

func (mockAuthenticator) Authenticate(ctx context.Context, token string) (*auth.User, error) {
	if token == testToken {
		return testUser, nil
	}
	return nil, auth.ErrInvalidToken
}

type mockUploader struct {
	key         string
	body        []byte
	contentType string
	url         string
	err         error
}

func (m *mockUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	m.key, m.body, m.contentType = key, body, contentType
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

type testEnv struct {
	tiers         *mockTierService
	benefits      *mockBenefitService
	subscriptions *mockSubscriptionService
	sessions      *mockSessionService
	resolver      *mockResolver
	uploader      *mockUploader
	flags         features.Flags
	server        *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		tiers:         &mockTierService{},
		benefits:      &mockBenefitService{},
		subscriptions: &mockSubscriptionService{},
		sessions:      &mockSessionService{},
		resolver:      &mockResolver{},
		uploader:      &mockUploader{url: "https://exports.example.com/file.csv"},
	}
}

func (e *testEnv) build() *Server {
	deps := Deps{
		Tiers:         e.tiers,
		Benefits:      e.benefits,
		Subscriptions: e.subscriptions,
		Sessions:      e.sessions,
		Resolver:      e.resolver,
		Authenticator: mockAuthenticator{},
		Flags:         e.flags,
	}
	if e.uploader != nil {
		deps.Uploader = e.uploader
	}
	e.server = NewServer(deps)
	return e.server
}

func (e *testEnv) do(method, target, token, body string) *httptest.ResponseRecorder {
	if e.server == nil {
		e.build()
	}
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}
