package subscriptions

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/checkout"
	"github.com/platinummonkey/backer/pkg/observability"
)

// Metadata keys attached to checkout sessions
const (
	MetadataTierID = "subscription_tier_id"
	MetadataUserID = "user_id"
)

// ErrCheckoutNotConfigured is wrapped by errors returned when no provider is
// configured
var ErrCheckoutNotConfigured = errors.New("checkout provider is not configured")

// SessionCreate is the input of SessionService.Create
type SessionCreate struct {
	TierID        uuid.UUID `json:"subscription_tier_id"`
	SuccessURL    string    `json:"success_url"`
	CustomerEmail string    `json:"customer_email"`
}

// CheckoutSession is a provider checkout session with its tier
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url,omitempty"`
	Status        string `json:"status,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Tier          *Tier  `json:"subscription_tier"`
}

// SessionService starts and inspects hosted checkouts for tiers
type SessionService struct {
	tiers    *TierService
	checkout checkout.Provider
	metrics  *observability.Metrics
}

// NewSessionService creates a new SessionService. With a nil provider every
// call fails with an unavailable error.
func NewSessionService(tiers *TierService, provider checkout.Provider, metrics *observability.Metrics) *SessionService {
	return &SessionService{tiers: tiers, checkout: provider, metrics: metrics}
}

func (s *SessionService) provider() (checkout.Provider, error) {
	if s.checkout == nil {
		return nil, apierrors.Unavailable(ErrCheckoutNotConfigured, "Checkout is not available")
	}
	return s.checkout, nil
}

// Create starts a checkout session for a tier
func (s *SessionService) Create(ctx context.Context, subject auth.Subject, input SessionCreate) (*CheckoutSession, error) {
	provider, err := s.provider()
	if err != nil {
		return nil, err
	}
	if input.SuccessURL == "" {
		return nil, apierrors.BadRequest("success_url is required")
	}

	tier, err := s.tiers.Lookup(ctx, subject, input.TierID)
	if err != nil {
		return nil, err
	}
	if tier.IsArchived {
		return nil, apierrors.BadRequest("Subscription tier is archived")
	}
	if tier.StripePriceID == "" {
		return nil, apierrors.BadRequest("Subscription tier has no price")
	}

	email := input.CustomerEmail
	metadata := map[string]string{MetadataTierID: tier.ID.String()}
	if !subject.IsAnonymous() {
		metadata[MetadataUserID] = subject.UserID().String()
		if email == "" {
			email = subject.User.Email
		}
	}

	session, err := provider.CreateCheckoutSession(ctx, checkout.SessionParams{
		PriceID:       tier.StripePriceID,
		SuccessURL:    input.SuccessURL,
		CustomerEmail: email,
		Metadata:      metadata,
	})
	s.metrics.RecordCheckoutSession(err)
	if err != nil {
		return nil, apierrors.Unavailable(err, "Checkout provider request failed")
	}

	observability.FromContext(ctx).
		WithField("subscription_tier_id", tier.ID.String()).
		WithField("checkout_session_id", session.ID).
		Info("Checkout session created")

	return newCheckoutSession(session, tier), nil
}

// Get fetches a checkout session and the tier it was created for
func (s *SessionService) Get(ctx context.Context, id string) (*CheckoutSession, error) {
	provider, err := s.provider()
	if err != nil {
		return nil, err
	}

	session, err := provider.GetCheckoutSession(ctx, id)
	if err != nil {
		return nil, apierrors.Unavailable(err, "Checkout provider request failed")
	}

	tierID, err := uuid.Parse(session.Metadata[MetadataTierID])
	if err != nil {
		return nil, apierrors.NotFound("Subscription tier not found")
	}
	tier, err := getTier(ctx, s.tiers.dbs.Replica(), tierID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, apierrors.NotFound("Subscription tier not found")
	}
	if err := loadTierBenefits(ctx, s.tiers.dbs.Replica(), []*Tier{tier}); err != nil {
		return nil, err
	}

	return newCheckoutSession(session, tier), nil
}

func newCheckoutSession(session *checkout.Session, tier *Tier) *CheckoutSession {
	return &CheckoutSession{
		ID:            session.ID,
		URL:           session.URL,
		Status:        session.Status,
		CustomerEmail: session.CustomerEmail,
		CustomerName:  session.CustomerName,
		Tier:          tier,
	}
}
