// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	anonconnectionstore "github.com/dalemusser/melange/internal/app/store/anonconnections"
	"github.com/dalemusser/melange/internal/app/store/oauthstate"
	queuestore "github.com/dalemusser/melange/internal/app/store/queue"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// AnonymousConnectionCleanupJob removes expired anonymous connection
// invitations, again backing up the TTL index.
func AnonymousConnectionCleanupJob(anonStore *anonconnectionstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "anonymous-connection-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := anonStore.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("removed expired anonymous connections", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// TaskPurgeJob deletes finished queue entries older than retain.
func TaskPurgeJob(queue *queuestore.Store, logger *zap.Logger, retain time.Duration) Job {
	return Job{
		Name:     "task-purge",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := queue.PurgeFinished(ctx, time.Now().UTC().Add(-retain))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged finished tasks",
					zap.Int64("count", count),
					zap.Duration("retain", retain))
			}
			return nil
		},
	}
}
