package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/backer/pkg/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	cm, err := primaryOnly(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	applied, err := postgres.Migrate(cmd.Context(), cm.Primary(), logger)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		logrus.Info("Schema is up to date")
		return nil
	}
	for _, version := range applied {
		logrus.WithField("version", version).Info("✓ Applied migration")
	}
	return nil
}
