package subscriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/authz"
)

// TierType is the commercial level of a subscription tier
type TierType string

const (
	TierTypeHobby    TierType = "hobby"
	TierTypePro      TierType = "pro"
	TierTypeBusiness TierType = "business"
)

// Valid reports whether t is a known tier type
func (t TierType) Valid() bool {
	switch t {
	case TierTypeHobby, TierTypePro, TierTypeBusiness:
		return true
	}
	return false
}

// TierTypes lists every tier type
var TierTypes = []TierType{TierTypeHobby, TierTypePro, TierTypeBusiness}

// Tier is a subscription product offered by an organization or one of its
// repositories
type Tier struct {
	ID              uuid.UUID     `json:"id"`
	Type            TierType      `json:"type"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	IsHighlighted   bool          `json:"is_highlighted"`
	IsArchived      bool          `json:"is_archived"`
	PriceAmount     int64         `json:"price_amount"`
	PriceCurrency   string        `json:"price_currency"`
	StripeProductID string        `json:"-"`
	StripePriceID   string        `json:"-"`
	OrganizationID  *uuid.UUID    `json:"organization_id,omitempty"`
	RepositoryID    *uuid.UUID    `json:"repository_id,omitempty"`
	Benefits        []TierBenefit `json:"benefits"`
	CreatedAt       time.Time     `json:"created_at"`
	ModifiedAt      *time.Time    `json:"modified_at,omitempty"`
}

// AuthzObject implements authz.Resource
func (t *Tier) AuthzObject() authz.Object {
	return authz.Object{
		Kind:           authz.KindTier,
		OrganizationID: t.OrganizationID,
		RepositoryID:   t.RepositoryID,
		Archived:       t.IsArchived,
	}
}

// TierBenefit is the public summary of a benefit attached to a tier.
// Properties are omitted because they may carry secrets.
type TierBenefit struct {
	ID          uuid.UUID   `json:"id"`
	Type        BenefitType `json:"type"`
	Description string      `json:"description"`
}

// SubscriptionStatus mirrors the payment provider's subscription lifecycle
type SubscriptionStatus string

const (
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusActive            SubscriptionStatus = "active"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
)

// IsActive reports whether the subscription currently grants benefits
func (s SubscriptionStatus) IsActive() bool {
	return s == StatusActive || s == StatusTrialing
}

// Subscriber is the public view of the user behind a subscription
type Subscriber struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Subscription links a user to a tier
type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	EndedAt            *time.Time         `json:"ended_at,omitempty"`
	PriceAmount        int64              `json:"price_amount"`
	PriceCurrency      string             `json:"price_currency"`
	UserID             uuid.UUID          `json:"user_id"`
	TierID             uuid.UUID          `json:"subscription_tier_id"`
	User               Subscriber         `json:"user"`
	Tier               Tier               `json:"subscription_tier"`
	CreatedAt          time.Time          `json:"created_at"`
}

// AuthzObject implements authz.Resource
func (s *Subscription) AuthzObject() authz.Object {
	subscriber := s.UserID
	return authz.Object{
		Kind:           authz.KindSubscription,
		OrganizationID: s.Tier.OrganizationID,
		RepositoryID:   s.Tier.RepositoryID,
		SubscriberID:   &subscriber,
	}
}

// PeriodSummary aggregates the subscriptions active during one period
type PeriodSummary struct {
	StartDate   Date  `json:"start_date"`
	EndDate     Date  `json:"end_date"`
	Subscribers int64 `json:"subscribers"`
	MRR         int64 `json:"mrr"`
}
