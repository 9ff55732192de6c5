package subscriptions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/authz"
	"github.com/platinummonkey/backer/pkg/checkout"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
)

const (
	tierNameMinLength        = 3
	tierNameMaxLength        = 24
	tierDescriptionMaxLength = 240
	tierMinimumPrice         = 100
	defaultCurrency          = "usd"
)

// TierSearchParams filters a tier search. An empty Type matches all.
type TierSearchParams struct {
	Scope              *scope.Scope
	Type               TierType
	DirectOrganization bool
	IncludeArchived    bool
	Pagination         search.Pagination
}

// TierCreate is the input of TierService.Create
type TierCreate struct {
	Type           TierType   `json:"type"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	IsHighlighted  bool       `json:"is_highlighted"`
	PriceAmount    int64      `json:"price_amount"`
	PriceCurrency  string     `json:"price_currency"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	RepositoryID   *uuid.UUID `json:"repository_id"`
}

// TierUpdate is the input of TierService.Update. Nil fields are left
// unchanged.
type TierUpdate struct {
	Type          *TierType `json:"type"`
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	IsHighlighted *bool     `json:"is_highlighted"`
	PriceAmount   *int64    `json:"price_amount"`
	PriceCurrency *string   `json:"price_currency"`
}

// TierService manages subscription tiers and their benefits
type TierService struct {
	dbs      Databases
	authz    authz.Checker
	orgs     orgs.Store
	checkout checkout.Provider
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewTierService creates a new TierService. provider may be nil, in which
// case tiers are stored without provider products.
func NewTierService(dbs Databases, checker authz.Checker, store orgs.Store, provider checkout.Provider, metrics *observability.Metrics) *TierService {
	return &TierService{
		dbs:      dbs,
		authz:    checker,
		orgs:     store,
		checkout: provider,
		metrics:  metrics,
		now:      time.Now,
	}
}

const tierColumns = `t.id, t.type, t.name, t.description, t.is_highlighted, t.is_archived,
			t.price_amount, t.price_currency, t.stripe_product_id, t.stripe_price_id,
			t.organization_id, t.repository_id, t.created_at, t.modified_at`

func scanTier(row scanner, extra ...interface{}) (*Tier, error) {
	t := &Tier{}
	var description, productID, priceID sql.NullString
	var orgID, repoID uuid.NullUUID
	var modifiedAt sql.NullTime
	dest := []interface{}{&t.ID, &t.Type, &t.Name, &description, &t.IsHighlighted, &t.IsArchived,
		&t.PriceAmount, &t.PriceCurrency, &productID, &priceID,
		&orgID, &repoID, &t.CreatedAt, &modifiedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	t.Description = description.String
	t.StripeProductID = productID.String
	t.StripePriceID = priceID.String
	t.OrganizationID = uuidPtr(orgID)
	t.RepositoryID = uuidPtr(repoID)
	t.ModifiedAt = timePtr(modifiedAt)
	t.Benefits = []TierBenefit{}
	return t, nil
}

func getTier(ctx context.Context, db *sql.DB, id uuid.UUID) (*Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM subscription_tiers t WHERE t.id = $1`
	t, err := scanTier(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription tier: %w", err)
	}
	return t, nil
}

// loadTierBenefits fills the ordered benefit summaries of tiers
func loadTierBenefits(ctx context.Context, db *sql.DB, tiers []*Tier) error {
	if len(tiers) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Tier, len(tiers))
	ids := make([]uuid.UUID, 0, len(tiers))
	for _, t := range tiers {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT tb.subscription_tier_id, b.id, b.type, b.description
		FROM subscription_tier_benefits tb
		JOIN subscription_benefits b ON b.id = tb.subscription_benefit_id
		WHERE tb.subscription_tier_id = ANY($1)
		ORDER BY tb.subscription_tier_id, tb."order" ASC
	`, pq.Array(idStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to load tier benefits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tierID uuid.UUID
		var b TierBenefit
		if err := rows.Scan(&tierID, &b.ID, &b.Type, &b.Description); err != nil {
			return fmt.Errorf("failed to scan tier benefit: %w", err)
		}
		if t, ok := byID[tierID]; ok {
			t.Benefits = append(t.Benefits, b)
		}
	}
	return rows.Err()
}

// Search returns a page of tiers visible to subject and the total count
func (s *TierService) Search(ctx context.Context, subject auth.Subject, params TierSearchParams) (_ []Tier, _ int, err error) {
	ctx, span := observability.StartSpan(ctx, "subscriptions.SearchTiers",
		attribute.String("type", string(params.Type)),
		attribute.Bool("direct_organization", params.DirectOrganization),
		attribute.Bool("include_archived", params.IncludeArchived),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	defer func() { s.metrics.RecordStorageOperation("search_tiers", start, err) }()

	b := search.NewBuilder()
	ScopeFilter{Scope: params.Scope, DirectOrganization: params.DirectOrganization}.Apply(b, "t", "r")
	b.Where(authz.TierReadable(b, subject, "t", "r"))
	if !params.IncludeArchived {
		b.Where("t.is_archived = false")
	}
	if params.Type != "" {
		b.Where("t.type = " + b.Arg(params.Type))
	}

	from := `
		FROM subscription_tiers t
		LEFT JOIN repositories r ON r.id = t.repository_id` + b.WhereSQL()

	db := s.dbs.Replica()
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscription tiers: %w", err)
	}

	query := `SELECT ` + tierColumns + from + `
		ORDER BY t.price_amount ASC, t.created_at ASC, t.id ASC` + b.Window(params.Pagination)
	rows, err := db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search subscription tiers: %w", err)
	}
	defer rows.Close()

	var page []*Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan subscription tier: %w", err)
		}
		page = append(page, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate subscription tiers: %w", err)
	}

	if err := loadTierBenefits(ctx, db, page); err != nil {
		return nil, 0, err
	}

	tiers := make([]Tier, len(page))
	for i, t := range page {
		tiers[i] = *t
	}
	return tiers, total, nil
}

// Lookup returns a tier the subject can read
func (s *TierService) Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*Tier, error) {
	db := s.dbs.Replica()
	t, err := getTier(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apierrors.NotFound("Subscription tier not found")
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionRead, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NotFound("Subscription tier not found")
	}

	if err := loadTierBenefits(ctx, db, []*Tier{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func validateTierName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < tierNameMinLength || n > tierNameMaxLength {
		return apierrors.BadRequest("name must be between %d and %d characters", tierNameMinLength, tierNameMaxLength)
	}
	return nil
}

func validateTierDescription(description string) error {
	if utf8.RuneCountInString(description) > tierDescriptionMaxLength {
		return apierrors.BadRequest("description must be at most %d characters", tierDescriptionMaxLength)
	}
	return nil
}

func validateTierPrice(amount int64) error {
	if amount < tierMinimumPrice {
		return apierrors.BadRequest("price_amount must be at least %d", tierMinimumPrice)
	}
	return nil
}

func normalizeCurrency(currency string) string {
	if currency == "" {
		return defaultCurrency
	}
	return strings.ToLower(currency)
}

func (input TierCreate) validate() error {
	if !input.Type.Valid() {
		return apierrors.BadRequest("Invalid subscription tier type: %s", input.Type)
	}
	if err := validateTierName(input.Name); err != nil {
		return err
	}
	if err := validateTierDescription(input.Description); err != nil {
		return err
	}
	return validateTierPrice(input.PriceAmount)
}

func checkoutFailed(err error) error {
	return apierrors.Unavailable(err, "Checkout provider request failed")
}

// Create creates a tier owned by an organization or a repository
func (s *TierService) Create(ctx context.Context, subject auth.Subject, input TierCreate) (*Tier, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := checkOwner(ctx, s.orgs, input.OrganizationID, input.RepositoryID); err != nil {
		return nil, err
	}

	t := &Tier{
		ID:             uuid.New(),
		Type:           input.Type,
		Name:           input.Name,
		Description:    input.Description,
		IsHighlighted:  input.IsHighlighted,
		PriceAmount:    input.PriceAmount,
		PriceCurrency:  normalizeCurrency(input.PriceCurrency),
		OrganizationID: input.OrganizationID,
		RepositoryID:   input.RepositoryID,
		Benefits:       []TierBenefit{},
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionWrite, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.Forbidden("You don't have the permission to create this subscription tier")
	}

	if s.checkout != nil {
		productID, err := s.checkout.CreateProduct(ctx, checkout.ProductParams{
			Name:        t.Name,
			Description: t.Description,
			Metadata:    map[string]string{"subscription_tier_id": t.ID.String()},
		})
		if err != nil {
			return nil, checkoutFailed(err)
		}
		t.StripeProductID = productID

		priceID, err := s.checkout.CreatePrice(ctx, productID, t.PriceAmount, t.PriceCurrency)
		if err != nil {
			return nil, checkoutFailed(err)
		}
		t.StripePriceID = priceID
	}

	start := time.Now()
	query := `
		INSERT INTO subscription_tiers (id, type, name, description, is_highlighted, is_archived,
			price_amount, price_currency, stripe_product_id, stripe_price_id, organization_id, repository_id)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err = s.dbs.Primary().QueryRowContext(ctx, query, t.ID, t.Type, t.Name, nullString(t.Description), t.IsHighlighted,
		t.PriceAmount, t.PriceCurrency, nullString(t.StripeProductID), nullString(t.StripePriceID),
		t.OrganizationID, t.RepositoryID).Scan(&t.CreatedAt)
	s.metrics.RecordStorageOperation("create_tier", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription tier: %w", err)
	}

	observability.FromContext(ctx).
		WithField("subscription_tier_id", t.ID.String()).
		Info("Subscription tier created")
	return t, nil
}

func (s *TierService) writable(ctx context.Context, subject auth.Subject, id uuid.UUID) (*Tier, error) {
	t, err := getTier(ctx, s.dbs.Primary(), id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apierrors.NotFound("Subscription tier not found")
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionWrite, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.Forbidden("You don't have the permission to update this subscription tier")
	}
	return t, nil
}

// Update applies a partial update to a tier. A price change replaces the
// provider price.
func (s *TierService) Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input TierUpdate) (*Tier, error) {
	t, err := s.writable(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	productChanged := false
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, apierrors.BadRequest("Invalid subscription tier type: %s", *input.Type)
		}
		t.Type = *input.Type
	}
	if input.Name != nil {
		if err := validateTierName(*input.Name); err != nil {
			return nil, err
		}
		productChanged = productChanged || *input.Name != t.Name
		t.Name = *input.Name
	}
	if input.Description != nil {
		if err := validateTierDescription(*input.Description); err != nil {
			return nil, err
		}
		productChanged = productChanged || *input.Description != t.Description
		t.Description = *input.Description
	}
	if input.IsHighlighted != nil {
		t.IsHighlighted = *input.IsHighlighted
	}

	priceChanged := false
	if input.PriceAmount != nil {
		if err := validateTierPrice(*input.PriceAmount); err != nil {
			return nil, err
		}
		priceChanged = *input.PriceAmount != t.PriceAmount
		t.PriceAmount = *input.PriceAmount
	}
	if input.PriceCurrency != nil {
		currency := normalizeCurrency(*input.PriceCurrency)
		priceChanged = priceChanged || currency != t.PriceCurrency
		t.PriceCurrency = currency
	}

	if s.checkout != nil && t.StripeProductID != "" {
		if productChanged {
			err := s.checkout.UpdateProduct(ctx, t.StripeProductID, checkout.ProductParams{
				Name:        t.Name,
				Description: t.Description,
			})
			if err != nil {
				return nil, checkoutFailed(err)
			}
		}
		if priceChanged {
			priceID, err := s.checkout.CreatePrice(ctx, t.StripeProductID, t.PriceAmount, t.PriceCurrency)
			if err != nil {
				return nil, checkoutFailed(err)
			}
			if t.StripePriceID != "" {
				if err := s.checkout.ArchivePrice(ctx, t.StripePriceID); err != nil {
					return nil, checkoutFailed(err)
				}
			}
			t.StripePriceID = priceID
		}
	}

	now := s.now().UTC()
	start := time.Now()
	_, err = s.dbs.Primary().ExecContext(ctx, `
		UPDATE subscription_tiers
		SET type = $1, name = $2, description = $3, is_highlighted = $4,
			price_amount = $5, price_currency = $6, stripe_price_id = $7, modified_at = $8
		WHERE id = $9
	`, t.Type, t.Name, nullString(t.Description), t.IsHighlighted,
		t.PriceAmount, t.PriceCurrency, nullString(t.StripePriceID), now, t.ID)
	s.metrics.RecordStorageOperation("update_tier", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription tier: %w", err)
	}
	t.ModifiedAt = &now

	if err := loadTierBenefits(ctx, s.dbs.Primary(), []*Tier{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// Archive hides a tier from new subscribers
func (s *TierService) Archive(ctx context.Context, subject auth.Subject, id uuid.UUID) (*Tier, error) {
	t, err := s.writable(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	if s.checkout != nil && t.StripeProductID != "" {
		if err := s.checkout.ArchiveProduct(ctx, t.StripeProductID); err != nil {
			return nil, checkoutFailed(err)
		}
	}

	now := s.now().UTC()
	start := time.Now()
	_, err = s.dbs.Primary().ExecContext(ctx,
		`UPDATE subscription_tiers SET is_archived = true, modified_at = $1 WHERE id = $2`, now, t.ID)
	s.metrics.RecordStorageOperation("archive_tier", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to archive subscription tier: %w", err)
	}
	t.IsArchived = true
	t.ModifiedAt = &now

	if err := loadTierBenefits(ctx, s.dbs.Primary(), []*Tier{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func currentTierBenefits(ctx context.Context, db *sql.DB, tierID uuid.UUID) ([]*Benefit, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+benefitColumns+`
		FROM subscription_tier_benefits tb
		JOIN subscription_benefits b ON b.id = tb.subscription_benefit_id
		WHERE tb.subscription_tier_id = $1
		ORDER BY tb."order" ASC`, tierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tier benefits: %w", err)
	}
	defer rows.Close()

	var benefits []*Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tier benefit: %w", err)
		}
		benefits = append(benefits, b)
	}
	return benefits, rows.Err()
}

// UpdateBenefits replaces the benefits of a tier with benefitIDs, in order.
// Repeated ids keep their first position.
func (s *TierService) UpdateBenefits(ctx context.Context, subject auth.Subject, id uuid.UUID, benefitIDs []uuid.UUID) (*Tier, error) {
	t, err := s.writable(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	tierOrg, err := ownerOrganization(ctx, s.orgs, t.OrganizationID, t.RepositoryID)
	if err != nil {
		return nil, err
	}

	db := s.dbs.Primary()
	current, err := currentTierBenefits(ctx, db, t.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(benefitIDs))
	ordered := make([]uuid.UUID, 0, len(benefitIDs))
	for _, benefitID := range benefitIDs {
		if !seen[benefitID] {
			seen[benefitID] = true
			ordered = append(ordered, benefitID)
		}
	}

	requested, err := getBenefits(ctx, db, ordered)
	if err != nil {
		return nil, err
	}

	currentIDs := make(map[uuid.UUID]bool, len(current))
	for _, b := range current {
		currentIDs[b.ID] = true
		if !seen[b.ID] && !b.Selectable {
			return nil, apierrors.Forbidden("Benefit %s cannot be removed", b.ID)
		}
	}

	summaries := make([]TierBenefit, 0, len(ordered))
	for _, benefitID := range ordered {
		b, ok := requested[benefitID]
		if !ok {
			return nil, apierrors.NotFound("Subscription benefit %s not found", benefitID)
		}

		writable, err := s.authz.Can(ctx, subject, authz.ActionWrite, b)
		if err != nil {
			return nil, err
		}
		benefitOrg, err := ownerOrganization(ctx, s.orgs, b.OrganizationID, b.RepositoryID)
		if err != nil {
			return nil, err
		}
		if !writable || benefitOrg != tierOrg {
			return nil, apierrors.NotFound("Subscription benefit %s not found", benefitID)
		}
		if !currentIDs[b.ID] && !b.Selectable {
			return nil, apierrors.Forbidden("Benefit %s cannot be added", b.ID)
		}
		summaries = append(summaries, TierBenefit{ID: b.ID, Type: b.Type, Description: b.Description})
	}

	start := time.Now()
	err = s.replaceTierBenefits(ctx, db, t.ID, ordered)
	s.metrics.RecordStorageOperation("update_tier_benefits", start, err)
	if err != nil {
		return nil, err
	}

	t.Benefits = summaries
	return t, nil
}

func (s *TierService) replaceTierBenefits(ctx context.Context, db *sql.DB, tierID uuid.UUID, benefitIDs []uuid.UUID) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscription_tier_benefits WHERE subscription_tier_id = $1`, tierID); err != nil {
		return fmt.Errorf("failed to clear tier benefits: %w", err)
	}
	for order, benefitID := range benefitIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subscription_tier_benefits (subscription_tier_id, subscription_benefit_id, "order") VALUES ($1, $2, $3)`,
			tierID, benefitID, order)
		if err != nil {
			return fmt.Errorf("failed to attach benefit: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE subscription_tiers SET modified_at = $1 WHERE id = $2`, s.now().UTC(), tierID); err != nil {
		return fmt.Errorf("failed to touch subscription tier: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tier benefits: %w", err)
	}
	return nil
}
