package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/storage/postgres"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

var printMetrics bool

var collectStatsCmd = &cobra.Command{
	Use:   "collect-stats",
	Short: "Compute the business gauges once and print them",
	RunE:  runCollectStats,
}

func init() {
	collectStatsCmd.Flags().BoolVar(&printMetrics, "metrics", false, "Print the gauges in Prometheus text format")
}

func runCollectStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	cm, err := postgres.NewConnectionManager(cmd.Context(), connectionConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	stats, err := subscriptions.NewCollector(cm.Replica(), metrics).Collect(cmd.Context())
	if err != nil {
		return err
	}

	if printMetrics {
		families, err := registry.Gather()
		if err != nil {
			return err
		}
		encoder := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, family := range families {
			if err := encoder.Encode(family); err != nil {
				return err
			}
		}
		return nil
	}

	for tierType, count := range stats.TiersByType {
		logrus.WithField("type", tierType).WithField("count", count).Info("Active tiers")
	}
	for status, count := range stats.SubscriptionsByStatus {
		logrus.WithField("status", status).WithField("count", count).Info("Subscriptions")
	}
	logrus.WithField("mrr", stats.MRR).Info("Monthly recurring revenue")
	return nil
}
