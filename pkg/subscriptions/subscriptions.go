package subscriptions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/authz"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/search"
)

// Sort keys accepted by SubscriptionService.Search
const (
	SortUser             = "user"
	SortStatus           = "status"
	SortStartedAt        = "started_at"
	SortCurrentPeriodEnd = "current_period_end"
	SortPriceAmount      = "price_amount"
	SortTierType         = "subscription_tier_type"
	SortTier             = "subscription_tier"
)

// SortKeys is the closed set of subscription sort keys
var SortKeys = map[string]bool{
	SortUser:             true,
	SortStatus:           true,
	SortStartedAt:        true,
	SortCurrentPeriodEnd: true,
	SortPriceAmount:      true,
	SortTierType:         true,
	SortTier:             true,
}

// DefaultSorting orders the most recent subscriptions first
var DefaultSorting = []search.Sort{{Key: SortStartedAt, Desc: true}}

var sortColumns = map[string][]string{
	SortUser:             {"u.username"},
	SortStatus:           {"s.status"},
	SortStartedAt:        {"s.started_at"},
	SortCurrentPeriodEnd: {"s.current_period_end"},
	SortPriceAmount:      {"s.price_amount"},
	SortTierType:         {"t.type"},
	SortTier:             {"t.name"},
}

// SubscriptionSearchParams filters a subscription search. A nil Scope
// searches every subscription visible to the subject.
type SubscriptionSearchParams struct {
	Scope              *scope.Scope
	Type               TierType
	TierID             *uuid.UUID
	SubscriberUserID   *uuid.UUID
	Active             *bool
	DirectOrganization bool
	Pagination         search.Pagination
	Sorting            []search.Sort
}

// SummaryParams filters a period summary. Scope is required.
type SummaryParams struct {
	Scope              *scope.Scope
	Type               TierType
	TierID             *uuid.UUID
	StartDate          Date
	EndDate            Date
	DirectOrganization bool
}

// SubscriberRow is one line of a subscriber export
type SubscriberRow struct {
	Email     string
	Name      string
	CreatedAt time.Time
	Active    bool
	Tier      string
}

// SubscriptionService searches, summarizes and exports subscriptions
type SubscriptionService struct {
	dbs     Databases
	authz   authz.Checker
	metrics *observability.Metrics
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(dbs Databases, checker authz.Checker, metrics *observability.Metrics) *SubscriptionService {
	return &SubscriptionService{dbs: dbs, authz: checker, metrics: metrics}
}

const subscriptionFrom = `
		FROM subscriptions s
		JOIN subscription_tiers t ON t.id = s.subscription_tier_id
		LEFT JOIN repositories r ON r.id = t.repository_id
		JOIN users u ON u.id = s.user_id`

const subscriptionColumns = `s.id, s.status, s.current_period_start, s.current_period_end, s.cancel_at_period_end,
			s.started_at, s.ended_at, s.price_amount, s.price_currency, s.user_id, s.subscription_tier_id,
			s.created_at, u.username, u.avatar_url`

func scanSubscription(row scanner) (*Subscription, error) {
	sub := &Subscription{}
	var periodEnd, startedAt, endedAt sql.NullTime
	var avatarURL sql.NullString
	tier, err := scanTier(row, &sub.ID, &sub.Status, &sub.CurrentPeriodStart, &periodEnd, &sub.CancelAtPeriodEnd,
		&startedAt, &endedAt, &sub.PriceAmount, &sub.PriceCurrency, &sub.UserID, &sub.TierID,
		&sub.CreatedAt, &sub.User.Username, &avatarURL)
	if err != nil {
		return nil, err
	}

	sub.Tier = *tier
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.StartedAt = timePtr(startedAt)
	sub.EndedAt = timePtr(endedAt)
	sub.User.ID = sub.UserID
	sub.User.AvatarURL = avatarURL.String
	return sub, nil
}

// filter adds the conditions shared by search, summary and export
func filter(b *search.Builder, subject auth.Subject, sc *scope.Scope, direct bool, tierType TierType, tierID *uuid.UUID) {
	b.Where("s.started_at IS NOT NULL")
	ScopeFilter{Scope: sc, DirectOrganization: direct}.Apply(b, "t", "r")
	b.Where(authz.SubscriptionReadable(b, subject, "s", "t", "r"))
	if tierType != "" {
		b.Where("t.type = " + b.Arg(tierType))
	}
	if tierID != nil {
		b.Where("s.subscription_tier_id = " + b.Arg(*tierID))
	}
}

// Search returns a page of started subscriptions visible to subject and the
// total count
func (s *SubscriptionService) Search(ctx context.Context, subject auth.Subject, params SubscriptionSearchParams) (_ []Subscription, _ int, err error) {
	ctx, span := observability.StartSpan(ctx, "subscriptions.SearchSubscriptions",
		attribute.String("type", string(params.Type)),
		attribute.Bool("direct_organization", params.DirectOrganization),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	defer func() { s.metrics.RecordStorageOperation("search_subscriptions", start, err) }()

	sorting := params.Sorting
	if len(sorting) == 0 {
		sorting = DefaultSorting
	}
	for _, sort := range sorting {
		if !SortKeys[sort.Key] {
			return nil, 0, apierrors.BadRequest("Invalid sorting key: %s", sort.Key)
		}
	}

	b := search.NewBuilder()
	filter(b, subject, params.Scope, params.DirectOrganization, params.Type, params.TierID)
	if params.SubscriberUserID != nil {
		b.Where("s.user_id = " + b.Arg(*params.SubscriberUserID))
	}
	if params.Active != nil {
		active := "s.status IN ('active', 'trialing')"
		if !*params.Active {
			active = "s.status NOT IN ('active', 'trialing')"
		}
		b.Where(active)
	}

	from := subscriptionFrom + b.WhereSQL()

	db := s.dbs.Replica()
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := `SELECT ` + tierColumns + `,
			` + subscriptionColumns + from + search.OrderBy(sorting, sortColumns, "s.id") + b.Window(params.Pagination)
	rows, err := db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	return subs, total, nil
}

// Summary counts subscribers and monthly recurring revenue per calendar
// month between StartDate and EndDate. Every month is present.
func (s *SubscriptionService) Summary(ctx context.Context, subject auth.Subject, params SummaryParams) (_ []PeriodSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "subscriptions.Summary",
		attribute.String("start_date", params.StartDate.String()),
		attribute.String("end_date", params.EndDate.String()),
		attribute.Bool("direct_organization", params.DirectOrganization),
	)
	defer func() { observability.EndSpan(span, err) }()

	periods, err := MonthlyPeriods(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { s.metrics.RecordStorageOperation("summarize_subscriptions", start, err) }()

	starts := make([]string, len(periods))
	for i, p := range periods {
		starts[i] = p.Start.String()
	}

	b := search.NewBuilder()
	dates := b.Arg(pq.Array(starts))
	filter(b, subject, params.Scope, params.DirectOrganization, params.Type, params.TierID)

	query := `
		WITH matched AS (
			SELECT s.started_at, s.ended_at, s.price_amount
			FROM subscriptions s
			JOIN subscription_tiers t ON t.id = s.subscription_tier_id
			LEFT JOIN repositories r ON r.id = t.repository_id` + b.WhereSQL() + `
		)
		SELECT p.start_date, COUNT(m.started_at), COALESCE(SUM(m.price_amount), 0)
		FROM unnest(` + dates + `::date[]) AS p(start_date)
		LEFT JOIN matched m
			ON m.started_at < p.start_date + INTERVAL '1 month'
			AND (m.ended_at IS NULL OR m.ended_at >= p.start_date)
		GROUP BY p.start_date
		ORDER BY p.start_date`

	rows, err := s.dbs.Replica().QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize subscriptions: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]PeriodSummary, len(periods))
	for rows.Next() {
		var periodStart time.Time
		var row PeriodSummary
		if err := rows.Scan(&periodStart, &row.Subscribers, &row.MRR); err != nil {
			return nil, fmt.Errorf("failed to scan period summary: %w", err)
		}
		totals[periodStart.UTC().Format(DateLayout)] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate period summaries: %w", err)
	}

	summaries := make([]PeriodSummary, len(periods))
	for i, p := range periods {
		row := totals[p.Start.String()]
		summaries[i] = PeriodSummary{
			StartDate:   p.Start,
			EndDate:     p.End,
			Subscribers: row.Subscribers,
			MRR:         row.MRR,
		}
	}
	return summaries, nil
}

// Export lists the subscribers of an organization. Only organization admins
// may export.
func (s *SubscriptionService) Export(ctx context.Context, subject auth.Subject, sc *scope.Scope) ([]SubscriberRow, error) {
	if sc == nil || sc.Organization == nil {
		return nil, apierrors.BadRequest("organization_name and platform are required")
	}
	ok, err := s.authz.Can(ctx, subject, authz.ActionWrite, authz.Organization(sc.Organization.ID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.Forbidden("You don't have the permission to export subscribers")
	}

	b := search.NewBuilder()
	filter(b, subject, sc, false, "", nil)
	query := `
		SELECT u.email, u.username, s.created_at, s.status, t.name` + subscriptionFrom + b.WhereSQL() + `
		ORDER BY s.created_at ASC, s.id ASC`

	start := time.Now()
	rows, err := s.dbs.Replica().QueryContext(ctx, query, b.Args()...)
	s.metrics.RecordStorageOperation("export_subscribers", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to export subscribers: %w", err)
	}
	defer rows.Close()

	var out []SubscriberRow
	for rows.Next() {
		var row SubscriberRow
		var email sql.NullString
		var status SubscriptionStatus
		if err := rows.Scan(&email, &row.Name, &row.CreatedAt, &status, &row.Tier); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		row.Email = strings.TrimSpace(email.String)
		row.Active = status.IsActive()
		out = append(out, row)
	}
	return out, rows.Err()
}
