// Package checkout is the narrow interface to the payment provider.
//
// # Overview
//
// Tier writes keep a provider product and recurring monthly price in sync,
// and subscribe sessions are provider checkout sessions:
//
//	provider := checkout.NewStripeProvider(apiKey)
//	productID, err := provider.CreateProduct(ctx, checkout.ProductParams{Name: "Pro"})
//	priceID, err := provider.CreatePrice(ctx, productID, 1500, "usd")
//
//	session, err := provider.CreateCheckoutSession(ctx, checkout.SessionParams{
//		PriceID:    priceID,
//		SuccessURL: "https://example.com/thanks?session_id={CHECKOUT_SESSION_ID}",
//		Metadata:   map[string]string{"subscription_tier_id": tierID.String()},
//	})
//
// A nil Provider means checkout is not configured. Callers report that as
// unavailable rather than failing tier writes.
package checkout
