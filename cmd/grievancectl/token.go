package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <actor-id>",
	Short: "Issue a signed development token for an actor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Env == config.EnvProduction {
			return fmt.Errorf("refusing to issue tokens in %s", cfg.Env)
		}

		actor := models.Actor{ID: args[0], Role: models.UserRole(strings.ToUpper(role))}
		if !actor.Role.IsReviewer() && !actor.Role.IsSubmitter() {
			return fmt.Errorf("unknown role %q", role)
		}

		identity := service.NewIdentityService(service.IdentityConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		})
		token, expiresAt, err := identity.IssueToken(actor, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", string(models.RoleStudent), "STUDENT, FACULTY, ADMIN or SUPERADMIN")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}
