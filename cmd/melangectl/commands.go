package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/indexes"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create or reconcile collection indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			if err := indexes.EnsureAll(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		})
	},
}

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a password-login site administrator",
	Long: `Create a site administrator who signs in with a password.

An existing account with the same email is promoted instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			users := userstore.New(db)

			existing, err := users.GetByEmail(ctx, adminEmail)
			switch {
			case err == nil:
				if err := users.SetRole(ctx, existing.ID, models.UserRoleAdmin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s)\n", existing.Email, existing.ID.Hex())
				return nil
			case !errors.Is(err, userstore.ErrNotFound):
				return err
			}

			hash, err := userstore.HashPassword(adminPassword)
			if err != nil {
				return err
			}
			name := adminName
			if name == "" {
				name = adminEmail
			}
			u, err := users.Create(ctx, models.User{
				Email:        adminEmail,
				FullName:     name,
				PasswordHash: &hash,
				Role:         models.UserRoleAdmin,
			})
			if err != nil {
				return err
			}
			logger.Info("created admin", zap.String("user_id", u.ID.Hex()))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Email, u.ID.Hex())
			return nil
		})
	},
}

var enqueueParams []string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <kind>",
	Short: "Queue a batch job for the running service",
	Long: `Queue a task for the dispatcher of the running service.

Examples:
  melangectl enqueue org_app_apply_decisions --param program_key=gsoc2024
  melangectl enqueue proposal_duplicates_start --param program_key=gsoc2024 --param repeat=yes
  melangectl enqueue accept_proposals_main --param program_key=gsoc2024`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := taskqueue.KindByName(args[0])
		if !ok {
			return fmt.Errorf("unknown task kind %q (see melangectl kinds)", args[0])
		}
		params, err := parseParams(enqueueParams)
		if err != nil {
			return err
		}
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			q := taskqueue.NewQueue(queuestore.New(db), logger)
			if err := kind.Enqueue(ctx, q, params, time.Time{}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", kind.Name)
			return nil
		})
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the task kinds that can be enqueued",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range taskqueue.Kinds() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-32s %s\n", k.Name, k.URL)
		}
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (also the login ID)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Initial password")

	enqueueCmd.Flags().StringArrayVarP(&enqueueParams, "param", "p", nil, "Task parameter as key=value (repeatable)")
}

// parseParams turns key=value pairs into task params.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("bad --param %q: want key=value", p)
		}
		params[k] = v
	}
	return params, nil
}
