// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/timeouts"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured timeouts, promotes the site admin, builds the shared services
// and starts the task dispatcher and scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	applied := timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
		Batch:  appCfg.TimeoutBatch,
	})
	logger.Info("timeouts configured",
		zap.Duration("short", applied.Short),
		zap.Duration("medium", applied.Medium),
		zap.Duration("long", applied.Long),
		zap.Duration("batch", applied.Batch))

	if err := ensureSiteAdmin(ctx, deps.MongoDatabase, appCfg.SiteAdminEmail, logger); err != nil {
		return err
	}

	s := newServices(coreCfg, appCfg, deps, logger)
	s.start()
	setServices(s)
	return nil
}

// ensureSiteAdmin promotes an existing account with the configured email to
// site admin. A missing account is created on its first Google sign-in.
func ensureSiteAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	users := userstore.New(db)
	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		logger.Info("site admin has no account yet", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}
	if u.Role == models.UserRoleAdmin {
		return nil
	}
	if err := users.SetRole(ctx, u.ID, models.UserRoleAdmin); err != nil {
		return err
	}
	logger.Info("promoted site admin", zap.String("email", email), zap.String("user_id", u.ID.Hex()))
	return nil
}
