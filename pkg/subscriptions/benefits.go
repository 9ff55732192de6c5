package subscriptions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/authz"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
)

const (
	benefitDescriptionMinLength = 3
	benefitDescriptionMaxLength = 42
)

// BenefitSearchParams filters a benefit search. An empty Type matches all.
type BenefitSearchParams struct {
	Scope              *scope.Scope
	Type               BenefitType
	DirectOrganization bool
	Pagination         search.Pagination
}

// BenefitCreate is the input of BenefitService.Create
type BenefitCreate struct {
	Type            BenefitType     `json:"type"`
	Description     string          `json:"description"`
	IsTaxApplicable bool            `json:"is_tax_applicable"`
	Properties      json.RawMessage `json:"properties"`
	OrganizationID  *uuid.UUID      `json:"organization_id"`
	RepositoryID    *uuid.UUID      `json:"repository_id"`
}

// BenefitUpdate is the input of BenefitService.Update. Nil fields are left
// unchanged. Type may only repeat the current type.
type BenefitUpdate struct {
	Type            *BenefitType    `json:"type"`
	Description     *string         `json:"description"`
	IsTaxApplicable *bool           `json:"is_tax_applicable"`
	Properties      json.RawMessage `json:"properties"`
}

// BenefitService manages subscription benefits
type BenefitService struct {
	dbs     Databases
	authz   authz.Checker
	orgs    orgs.Store
	metrics *observability.Metrics
	now     func() time.Time
}

// NewBenefitService creates a new BenefitService
func NewBenefitService(dbs Databases, checker authz.Checker, store orgs.Store, metrics *observability.Metrics) *BenefitService {
	return &BenefitService{
		dbs:     dbs,
		authz:   checker,
		orgs:    store,
		metrics: metrics,
		now:     time.Now,
	}
}

const benefitColumns = `b.id, b.type, b.description, b.is_tax_applicable, b.selectable, b.deletable,
			b.properties, b.organization_id, b.repository_id, b.created_at, b.modified_at`

func scanBenefit(row scanner) (*Benefit, error) {
	b := &Benefit{}
	var properties []byte
	var orgID, repoID uuid.NullUUID
	var modifiedAt sql.NullTime
	err := row.Scan(&b.ID, &b.Type, &b.Description, &b.IsTaxApplicable, &b.Selectable, &b.Deletable,
		&properties, &orgID, &repoID, &b.CreatedAt, &modifiedAt)
	if err != nil {
		return nil, err
	}

	props, err := DecodeProperties(b.Type, properties)
	if err != nil {
		return nil, fmt.Errorf("stored properties of benefit %s: %w", b.ID, err)
	}
	b.Properties = props
	b.OrganizationID = uuidPtr(orgID)
	b.RepositoryID = uuidPtr(repoID)
	b.ModifiedAt = timePtr(modifiedAt)
	return b, nil
}

func getBenefit(ctx context.Context, db *sql.DB, id uuid.UUID) (*Benefit, error) {
	query := `SELECT ` + benefitColumns + ` FROM subscription_benefits b WHERE b.id = $1`
	b, err := scanBenefit(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get benefit: %w", err)
	}
	return b, nil
}

func getBenefits(ctx context.Context, db *sql.DB, ids []uuid.UUID) (map[uuid.UUID]*Benefit, error) {
	benefits := make(map[uuid.UUID]*Benefit, len(ids))
	if len(ids) == 0 {
		return benefits, nil
	}

	query := `SELECT ` + benefitColumns + ` FROM subscription_benefits b WHERE b.id = ANY($1)`
	rows, err := db.QueryContext(ctx, query, pq.Array(idStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to get benefits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		benefits[b.ID] = b
	}
	return benefits, rows.Err()
}

// Search returns a page of benefits visible to subject and the total count
func (s *BenefitService) Search(ctx context.Context, subject auth.Subject, params BenefitSearchParams) (_ []Benefit, _ int, err error) {
	ctx, span := observability.StartSpan(ctx, "subscriptions.SearchBenefits",
		attribute.String("type", string(params.Type)),
		attribute.Bool("direct_organization", params.DirectOrganization),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	defer func() { s.metrics.RecordStorageOperation("search_benefits", start, err) }()

	b := search.NewBuilder()
	ScopeFilter{Scope: params.Scope, DirectOrganization: params.DirectOrganization}.Apply(b, "b", "r")
	b.Where(authz.BenefitReadable(b, subject, "b", "r"))
	if params.Type != "" {
		b.Where("b.type = " + b.Arg(params.Type))
	}

	from := `
		FROM subscription_benefits b
		LEFT JOIN repositories r ON r.id = b.repository_id` + b.WhereSQL()

	db := s.dbs.Replica()
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count benefits: %w", err)
	}

	query := `SELECT ` + benefitColumns + from + `
		ORDER BY b.created_at ASC, b.id ASC` + b.Window(params.Pagination)
	rows, err := db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search benefits: %w", err)
	}
	defer rows.Close()

	var benefits []Benefit
	for rows.Next() {
		benefit, err := scanBenefit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan benefit: %w", err)
		}
		benefits = append(benefits, *benefit)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate benefits: %w", err)
	}

	return benefits, total, nil
}

// Lookup returns a benefit the subject can read
func (s *BenefitService) Lookup(ctx context.Context, subject auth.Subject, id uuid.UUID) (*Benefit, error) {
	b, err := getBenefit(ctx, s.dbs.Replica(), id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apierrors.NotFound("Subscription benefit not found")
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionRead, b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NotFound("Subscription benefit not found")
	}
	return b, nil
}

func validateBenefitDescription(description string) error {
	n := utf8.RuneCountInString(description)
	if n < benefitDescriptionMinLength || n > benefitDescriptionMaxLength {
		return apierrors.BadRequest("description must be between %d and %d characters",
			benefitDescriptionMinLength, benefitDescriptionMaxLength)
	}
	return nil
}

func decodeAndValidate(t BenefitType, raw json.RawMessage) (Properties, error) {
	props, err := DecodeProperties(t, raw)
	if err != nil {
		return nil, err
	}
	if err := props.Validate(); err != nil {
		return nil, err
	}
	return props, nil
}

// Create creates a benefit owned by an organization or a repository
func (s *BenefitService) Create(ctx context.Context, subject auth.Subject, input BenefitCreate) (*Benefit, error) {
	if !input.Type.Valid() {
		return nil, apierrors.BadRequest("Invalid benefit type: %s", input.Type)
	}
	if input.Type == BenefitTypeArticles {
		return nil, apierrors.BadRequest("Articles benefits are managed by the platform and cannot be created")
	}
	if err := validateBenefitDescription(input.Description); err != nil {
		return nil, err
	}
	props, err := decodeAndValidate(input.Type, input.Properties)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(ctx, s.orgs, input.OrganizationID, input.RepositoryID); err != nil {
		return nil, err
	}

	b := &Benefit{
		ID:              uuid.New(),
		Type:            input.Type,
		Description:     input.Description,
		IsTaxApplicable: input.IsTaxApplicable,
		Selectable:      true,
		Deletable:       true,
		Properties:      props,
		OrganizationID:  input.OrganizationID,
		RepositoryID:    input.RepositoryID,
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionWrite, b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.Forbidden("You don't have the permission to create this benefit")
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode benefit properties: %w", err)
	}

	start := time.Now()
	query := `
		INSERT INTO subscription_benefits (id, type, description, is_tax_applicable, selectable, deletable,
			properties, organization_id, repository_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err = s.dbs.Primary().QueryRowContext(ctx, query, b.ID, b.Type, b.Description, b.IsTaxApplicable,
		b.Selectable, b.Deletable, raw, b.OrganizationID, b.RepositoryID).Scan(&b.CreatedAt)
	s.metrics.RecordStorageOperation("create_benefit", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create benefit: %w", err)
	}

	return b, nil
}

func (s *BenefitService) writable(ctx context.Context, subject auth.Subject, id uuid.UUID) (*Benefit, error) {
	b, err := getBenefit(ctx, s.dbs.Primary(), id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apierrors.NotFound("Subscription benefit not found")
	}

	ok, err := s.authz.Can(ctx, subject, authz.ActionWrite, b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.Forbidden("You don't have the permission to update this benefit")
	}
	return b, nil
}

// Update applies a partial update to a benefit
func (s *BenefitService) Update(ctx context.Context, subject auth.Subject, id uuid.UUID, input BenefitUpdate) (*Benefit, error) {
	b, err := s.writable(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	if input.Type != nil && *input.Type != b.Type {
		return nil, apierrors.BadRequest("The type of a benefit cannot be changed")
	}
	if input.Description != nil {
		if err := validateBenefitDescription(*input.Description); err != nil {
			return nil, err
		}
		b.Description = *input.Description
	}
	if input.IsTaxApplicable != nil {
		b.IsTaxApplicable = *input.IsTaxApplicable
	}
	if len(input.Properties) > 0 {
		props, err := decodeAndValidate(b.Type, input.Properties)
		if err != nil {
			return nil, err
		}
		b.Properties = props
	}

	raw, err := json.Marshal(b.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to encode benefit properties: %w", err)
	}

	now := s.now().UTC()
	start := time.Now()
	_, err = s.dbs.Primary().ExecContext(ctx, `
		UPDATE subscription_benefits
		SET description = $1, is_tax_applicable = $2, properties = $3, modified_at = $4
		WHERE id = $5
	`, b.Description, b.IsTaxApplicable, raw, now, b.ID)
	s.metrics.RecordStorageOperation("update_benefit", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update benefit: %w", err)
	}
	b.ModifiedAt = &now

	return b, nil
}

// Delete removes a benefit and detaches it from every tier
func (s *BenefitService) Delete(ctx context.Context, subject auth.Subject, id uuid.UUID) error {
	b, err := s.writable(ctx, subject, id)
	if err != nil {
		return err
	}
	if !b.Deletable {
		return apierrors.Forbidden("This benefit cannot be deleted")
	}

	tx, err := s.dbs.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscription_tier_benefits WHERE subscription_benefit_id = $1`, b.ID); err != nil {
		return fmt.Errorf("failed to detach benefit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscription_benefits WHERE id = $1`, b.ID); err != nil {
		return fmt.Errorf("failed to delete benefit: %w", err)
	}

	return tx.Commit()
}
