// Command melangectl performs operator tasks against a Melange database:
// ensuring indexes, creating administrators, and enqueueing batch jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	mongoURI string
	dbName   string
	verbose  bool
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "melangectl",
	Short: "Operator commands for Melange",
	Long: `melangectl talks directly to the Melange MongoDB database.

Available commands:
  indexes       - Create or reconcile collection indexes
  create-admin  - Create a password-login site administrator
  enqueue       - Queue a batch job for the running service
  kinds         - List the task kinds that can be enqueued`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("MELANGE_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", envOr("MELANGE_MONGO_DATABASE", "melange"), "MongoDB database name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(kindsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() *zap.Logger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	return zap.NewNop()
}

// withDB connects, runs fn and disconnects.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logger.Debug("connected", zap.String("db", dbName))
	return fn(ctx, client.Database(dbName), logger)
}
