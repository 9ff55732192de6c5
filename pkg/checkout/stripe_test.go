package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
)

func newTestProvider() *StripeProvider {
	return &StripeProvider{}
}

func TestStripeProvider_CreateProduct(t *testing.T) {
	p := newTestProvider()
	var captured *stripe.ProductParams
	p.createProduct = func(params *stripe.ProductParams) (*stripe.Product, error) {
		captured = params
		return &stripe.Product{ID: "prod_123"}, nil
	}

	id, err := p.CreateProduct(context.Background(), ProductParams{
		Name:     "Pro",
		Metadata: map[string]string{"subscription_tier_id": "tier-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod_123", id)
	require.NotNil(t, captured)
	assert.Equal(t, "Pro", *captured.Name)
	assert.Nil(t, captured.Description)
	assert.Equal(t, "tier-1", captured.Metadata["subscription_tier_id"])
}

func TestStripeProvider_CreatePrice(t *testing.T) {
	p := newTestProvider()
	var captured *stripe.PriceParams
	p.createPrice = func(params *stripe.PriceParams) (*stripe.Price, error) {
		captured = params
		return &stripe.Price{ID: "price_123"}, nil
	}

	id, err := p.CreatePrice(context.Background(), "prod_123", 1500, "USD")
	require.NoError(t, err)
	assert.Equal(t, "price_123", id)
	assert.Equal(t, "prod_123", *captured.Product)
	assert.Equal(t, "usd", *captured.Currency)
	assert.Equal(t, int64(1500), *captured.UnitAmount)
	assert.Equal(t, string(stripe.PriceRecurringIntervalMonth), *captured.Recurring.Interval)
}

func TestStripeProvider_Archive(t *testing.T) {
	p := newTestProvider()
	var productActive, priceActive *bool
	p.updateProduct = func(id string, params *stripe.ProductParams) (*stripe.Product, error) {
		productActive = params.Active
		return &stripe.Product{ID: id}, nil
	}
	p.updatePrice = func(id string, params *stripe.PriceParams) (*stripe.Price, error) {
		priceActive = params.Active
		return &stripe.Price{ID: id}, nil
	}

	require.NoError(t, p.ArchiveProduct(context.Background(), "prod_123"))
	require.NoError(t, p.ArchivePrice(context.Background(), "price_123"))
	require.NotNil(t, productActive)
	require.NotNil(t, priceActive)
	assert.False(t, *productActive)
	assert.False(t, *priceActive)
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	p := newTestProvider()
	var captured *stripe.CheckoutSessionParams
	p.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{
			ID:            "cs_123",
			URL:           "https://checkout.stripe.com/c/cs_123",
			Status:        stripe.CheckoutSessionStatusOpen,
			CustomerEmail: "alice@example.com",
			Metadata:      params.Metadata,
		}, nil
	}

	session, err := p.CreateCheckoutSession(context.Background(), SessionParams{
		PriceID:       "price_123",
		SuccessURL:    "https://example.com/thanks",
		CustomerEmail: "alice@example.com",
		Metadata:      map[string]string{"subscription_tier_id": "tier-1", "user_id": "user-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *captured.Mode)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, "price_123", *captured.LineItems[0].Price)
	assert.Equal(t, int64(1), *captured.LineItems[0].Quantity)
	assert.Equal(t, "alice@example.com", *captured.CustomerEmail)
	assert.Equal(t, "tier-1", captured.SubscriptionData.Metadata["subscription_tier_id"])

	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "open", session.Status)
	assert.Equal(t, "alice@example.com", session.CustomerEmail)
	assert.Equal(t, "user-1", session.Metadata["user_id"])
}

func TestStripeProvider_CreateCheckoutSessionWithoutEmail(t *testing.T) {
	p := newTestProvider()
	p.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		assert.Nil(t, params.CustomerEmail)
		return &stripe.CheckoutSession{ID: "cs_123"}, nil
	}

	_, err := p.CreateCheckoutSession(context.Background(), SessionParams{PriceID: "price_123", SuccessURL: "https://example.com"})
	require.NoError(t, err)
}

func TestStripeProvider_GetCheckoutSession(t *testing.T) {
	p := newTestProvider()
	p.getCheckoutSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{
			ID:     id,
			Status: stripe.CheckoutSessionStatusComplete,
			CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
				Email: "bob@example.com",
				Name:  "Bob",
			},
		}, nil
	}

	session, err := p.GetCheckoutSession(context.Background(), "cs_456")
	require.NoError(t, err)
	assert.Equal(t, "cs_456", session.ID)
	assert.Equal(t, "complete", session.Status)
	assert.Equal(t, "bob@example.com", session.CustomerEmail)
	assert.Equal(t, "Bob", session.CustomerName)
}

func TestStripeProvider_ErrorsAreWrapped(t *testing.T) {
	p := newTestProvider()
	apiErr := errors.New("card_declined")
	p.getCheckoutSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, apiErr
	}

	_, err := p.GetCheckoutSession(context.Background(), "cs_456")
	assert.ErrorIs(t, err, apiErr)
}
