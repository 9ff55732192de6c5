package checkout

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	stripeprice "github.com/stripe/stripe-go/v82/price"
	stripeproduct "github.com/stripe/stripe-go/v82/product"
)

// StripeProvider implements Provider on the Stripe API. The API calls are
// function fields so tests can replace them.
type StripeProvider struct {
	createProduct         func(params *stripe.ProductParams) (*stripe.Product, error)
	updateProduct         func(id string, params *stripe.ProductParams) (*stripe.Product, error)
	createPrice           func(params *stripe.PriceParams) (*stripe.Price, error)
	updatePrice           func(id string, params *stripe.PriceParams) (*stripe.Price, error)
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getCheckoutSession    func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeProvider configures the Stripe client with apiKey
func NewStripeProvider(apiKey string) *StripeProvider {
	stripe.Key = strings.TrimSpace(apiKey)
	return &StripeProvider{
		createProduct:         stripeproduct.New,
		updateProduct:         stripeproduct.Update,
		createPrice:           stripeprice.New,
		updatePrice:           stripeprice.Update,
		createCheckoutSession: stripesession.New,
		getCheckoutSession:    stripesession.Get,
	}
}

func productParams(ctx context.Context, params ProductParams) *stripe.ProductParams {
	p := &stripe.ProductParams{
		Name: stripe.String(params.Name),
	}
	p.Context = ctx
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	return p
}

// CreateProduct creates a product and returns its id
func (s *StripeProvider) CreateProduct(ctx context.Context, params ProductParams) (string, error) {
	product, err := s.createProduct(productParams(ctx, params))
	if err != nil {
		return "", fmt.Errorf("failed to create stripe product: %w", err)
	}
	return product.ID, nil
}

// UpdateProduct updates a product's name, description and metadata
func (s *StripeProvider) UpdateProduct(ctx context.Context, productID string, params ProductParams) error {
	if _, err := s.updateProduct(productID, productParams(ctx, params)); err != nil {
		return fmt.Errorf("failed to update stripe product: %w", err)
	}
	return nil
}

// ArchiveProduct deactivates a product
func (s *StripeProvider) ArchiveProduct(ctx context.Context, productID string) error {
	params := &stripe.ProductParams{Active: stripe.Bool(false)}
	params.Context = ctx
	if _, err := s.updateProduct(productID, params); err != nil {
		return fmt.Errorf("failed to archive stripe product: %w", err)
	}
	return nil
}

// CreatePrice creates a recurring monthly price for a product
func (s *StripeProvider) CreatePrice(ctx context.Context, productID string, amount int64, currency string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		Currency:   stripe.String(strings.ToLower(currency)),
		UnitAmount: stripe.Int64(amount),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	params.Context = ctx
	price, err := s.createPrice(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe price: %w", err)
	}
	return price.ID, nil
}

// ArchivePrice deactivates a price
func (s *StripeProvider) ArchivePrice(ctx context.Context, priceID string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx
	if _, err := s.updatePrice(priceID, params); err != nil {
		return fmt.Errorf("failed to archive stripe price: %w", err)
	}
	return nil
}

// CreateCheckoutSession creates a subscription mode checkout session
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	p := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(params.SuccessURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.Metadata,
		},
	}
	p.Context = ctx
	if params.CustomerEmail != "" {
		p.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	session, err := s.createCheckoutSession(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return fromStripeSession(session), nil
}

// GetCheckoutSession retrieves a checkout session
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	session, err := s.getCheckoutSession(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get stripe checkout session: %w", err)
	}
	return fromStripeSession(session), nil
}

func fromStripeSession(session *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:       session.ID,
		URL:      session.URL,
		Status:   string(session.Status),
		Metadata: session.Metadata,
	}
	if session.CustomerDetails != nil {
		out.CustomerEmail = session.CustomerDetails.Email
		out.CustomerName = session.CustomerDetails.Name
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = session.CustomerEmail
	}
	return out
}
