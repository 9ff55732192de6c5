package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/backer/pkg/auth"
)

var (
	tokenUserID    string
	tokenName      string
	tokenExpiresIn time.Duration
	tokenID        string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API token for a user",
	Long:  "Create an API token for a user. The plaintext token is printed once and cannot be recovered.",
	RunE:  runTokenCreate,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an API token",
	RunE:  runTokenRevoke,
}

func init() {
	for _, c := range []*cobra.Command{tokenCreateCmd, tokenRevokeCmd} {
		c.Flags().StringVar(&tokenUserID, "user-id", "", "Owner of the token")
		_ = c.MarkFlagRequired("user-id")
	}
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "cli", "Label shown in token listings")
	tokenCreateCmd.Flags().DurationVar(&tokenExpiresIn, "expires-in", 0, "Token lifetime; 0 never expires")
	tokenRevokeCmd.Flags().StringVar(&tokenID, "token-id", "", "Token to revoke")
	_ = tokenRevokeCmd.MarkFlagRequired("token-id")

	tokenCmd.AddCommand(tokenCreateCmd, tokenRevokeCmd)
}

func parseIDFlag(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return id, nil
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	userID, err := parseIDFlag("user-id", tokenUserID)
	if err != nil {
		return err
	}
	if tokenExpiresIn < 0 {
		return fmt.Errorf("--expires-in must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cm, err := primaryOnly(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer cm.Close()

	var expiresAt *time.Time
	if tokenExpiresIn > 0 {
		at := time.Now().UTC().Add(tokenExpiresIn)
		expiresAt = &at
	}

	token, plaintext, err := auth.NewTokenManager(cm.Primary()).CreateToken(cmd.Context(), userID, tokenName, expiresAt)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"token_id": token.ID,
		"prefix":   token.TokenPrefix,
	}).Info("✓ Token created")
	fmt.Fprintln(cmd.OutOrStdout(), plaintext)
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	userID, err := parseIDFlag("user-id", tokenUserID)
	if err != nil {
		return err
	}
	id, err := parseIDFlag("token-id", tokenID)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cm, err := primaryOnly(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer cm.Close()

	if err := auth.NewTokenManager(cm.Primary()).RevokeToken(cmd.Context(), id, userID); err != nil {
		return err
	}
	logrus.WithField("token_id", id).Info("✓ Token revoked")
	return nil
}
