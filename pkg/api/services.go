package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// ScopeResolver resolves organization and repository names
type ScopeResolver interface {
	Resolve(ctx context.Context, params scope.Params) (*scope.Scope, error)
	ResolveOptional(ctx context.Context, params scope.Params) (*scope.Scope, error)
}

// TierService manages subscription tiers
type TierService interface {
	Search(ctx context.Context, subject auth.Subject, params subscriptions.TierSearchParams) ([]subscriptions.Tier, int, error)
	Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error)
	Create(ctx context.Context, subject auth.Subject, input subscriptions.TierCreate) (*subscriptions.Tier, error)
	Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.TierUpdate) (*subscriptions.Tier, error)
	Archive(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Tier, error)
	UpdateBenefits(ctx context.Context, subject auth.Subject, id uuid.UUID, benefitIDs []uuid.UUID) (*subscriptions.Tier, error)
}

// BenefitService manages subscription benefits
type BenefitService interface {
	Search(ctx context.Context, subject auth.Subject, params subscriptions.BenefitSearchParams) ([]subscriptions.Benefit, int, error)
	Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*subscriptions.Benefit, error)
	Create(ctx context.Context, subject auth.Subject, input subscriptions.BenefitCreate) (*subscriptions.Benefit, error)
	Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input subscriptions.BenefitUpdate) (*subscriptions.Benefit, error)
	Delete(ctx context.Context, subject auth.Subject, id uuid.UUID) error
}

// SubscriptionService reads subscriptions
type SubscriptionService interface {
	Search(ctx context.Context, subject auth.Subject, params subscriptions.SubscriptionSearchParams) ([]subscriptions.Subscription, int, error)
	Summary(ctx context.Context, subject auth.Subject, params subscriptions.SummaryParams) ([]subscriptions.PeriodSummary, error)
	Export(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]subscriptions.SubscriberRow, error)
}

// SessionService creates and reads checkout sessions
type SessionService interface {
	Create(ctx context.Context, subject auth.Subject, input subscriptions.SessionCreate) (*subscriptions.CheckoutSession, error)
	Get(ctx context.Context, id string) (*subscriptions.CheckoutSession, error)
}
