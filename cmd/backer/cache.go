package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/backer/pkg/config"
	"github.com/platinummonkey/backer/pkg/orgs"
)

var (
	purgePlatform     string
	purgeOrganization string
	purgeRepository   string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the shared organization cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop cached organization and repository lookups from Redis",
	Long: `Drop the shared Redis entries for an organization, or for one of its
repositories with --repository. In-process caches of running servers expire
on their own TTL.`,
	RunE: runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().StringVar(&purgePlatform, "platform", string(orgs.PlatformGitHub), "Organization platform")
	cachePurgeCmd.Flags().StringVar(&purgeOrganization, "organization", "", "Organization name")
	cachePurgeCmd.Flags().StringVar(&purgeRepository, "repository", "", "Repository name; purges only this repository")
	_ = cachePurgeCmd.MarkFlagRequired("organization")

	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	platform, err := orgs.ParsePlatform(purgePlatform)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("BACKER_REDIS_URL is not set: there is no shared cache to purge")
	}

	ctx := cmd.Context()
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cm, err := primaryOnly(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer cm.Close()

	store := orgs.NewPostgresStore(cm.Primary())
	cached := orgs.NewCachedStore(store, redisClient, cacheConfig(cfg), nil)
	return purge(ctx, store, cached, platform, purgeOrganization, purgeRepository)
}

func cacheConfig(cfg *config.Config) orgs.CacheConfig {
	return orgs.CacheConfig{Size: cfg.Cache.Size, TTL: cfg.Cache.TTL}
}

// purge looks names up in store, bypassing the cache, and invalidates them
// in cached
func purge(ctx context.Context, store orgs.Store, cached *orgs.CachedStore, platform orgs.Platform, orgName, repoName string) error {
	org, err := store.GetOrganizationByName(ctx, platform, orgName)
	if err != nil {
		return err
	}
	if org == nil {
		return fmt.Errorf("organization %s/%s not found", platform, orgName)
	}

	if repoName == "" {
		if err := cached.InvalidateOrganization(ctx, org); err != nil {
			return err
		}
		logrus.WithField("organization", org.Name).Info("✓ Organization cache purged")
		return nil
	}

	repo, err := store.GetRepositoryByName(ctx, org.ID, repoName)
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("repository %s not found in %s", repoName, org.Name)
	}
	if err := cached.InvalidateRepository(ctx, repo); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"organization": org.Name, "repository": repo.Name}).Info("✓ Repository cache purged")
	return nil
}
