package subscriptions

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/backer/pkg/observability"
)

// Collector refreshes the business gauges from the database
type Collector struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewCollector creates a new Collector
func NewCollector(db *sql.DB, metrics *observability.Metrics) *Collector {
	return &Collector{db: db, metrics: metrics}
}

// Stats is a snapshot of the business gauges
type Stats struct {
	TiersByType           map[TierType]int64
	SubscriptionsByStatus map[SubscriptionStatus]int64
	MRR                   int64
}

// Collect reads the current stats and publishes them to the gauges
func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		TiersByType:           make(map[TierType]int64),
		SubscriptionsByStatus: make(map[SubscriptionStatus]int64),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.countBy(ctx, `SELECT type, COUNT(*) FROM subscription_tiers WHERE is_archived = false GROUP BY type`,
			func(key string, n int64) { stats.TiersByType[TierType(key)] = n })
	})
	g.Go(func() error {
		return c.countBy(ctx, `SELECT status, COUNT(*) FROM subscriptions WHERE started_at IS NOT NULL GROUP BY status`,
			func(key string, n int64) { stats.SubscriptionsByStatus[SubscriptionStatus(key)] = n })
	})
	g.Go(func() error {
		err := c.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(price_amount), 0) FROM subscriptions WHERE status IN ('active', 'trialing')`).
			Scan(&stats.MRR)
		if err != nil {
			return fmt.Errorf("failed to compute mrr: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.publish(stats)
	return stats, nil
}

// countBy runs a two column key/count query. Each query fills its own map so
// the callbacks never race.
func (c *Collector) countBy(ctx context.Context, query string, set func(string, int64)) error {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan stats: %w", err)
		}
		set(key, n)
	}
	return rows.Err()
}

func (c *Collector) publish(stats *Stats) {
	if c.metrics == nil {
		return
	}
	for _, t := range TierTypes {
		c.metrics.TiersTotal.WithLabelValues(string(t)).Set(float64(stats.TiersByType[t]))
	}
	for status, n := range stats.SubscriptionsByStatus {
		c.metrics.SubscriptionsTotal.WithLabelValues(string(status)).Set(float64(n))
	}
	c.metrics.MonthlyRecurringRevenue.Set(float64(stats.MRR))
	c.metrics.RecordDBStats(c.db.Stats())
}
