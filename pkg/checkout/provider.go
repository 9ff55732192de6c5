package checkout

import (
	"context"
)

// ProductParams describes a provider product
type ProductParams struct {
	Name        string
	Description string
	Metadata    map[string]string
}

// SessionParams describes a subscription checkout session
type SessionParams struct {
	PriceID       string
	SuccessURL    string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is a provider checkout session
type Session struct {
	ID            string
	URL           string
	Status        string
	CustomerEmail string
	CustomerName  string
	Metadata      map[string]string
}

// Provider manages products, prices and checkout sessions
type Provider interface {
	CreateProduct(ctx context.Context, params ProductParams) (string, error)
	UpdateProduct(ctx context.Context, productID string, params ProductParams) error
	ArchiveProduct(ctx context.Context, productID string) error
	CreatePrice(ctx context.Context, productID string, amount int64, currency string) (string, error)
	ArchivePrice(ctx context.Context, priceID string) error
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*Session, error)
}
