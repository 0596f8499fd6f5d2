// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	accountstore "github.com/dalemusser/engagehub/internal/app/store/accounts"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/app/system/activitylog"
	"github.com/dalemusser/engagehub/internal/app/system/tasks"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is the place for one-time initialization that depends on having live
// database connections and fully loaded configuration: seeding the admin
// account, starting the activity recorder, and launching background jobs.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting. The context will be cancelled if the process is asked to shut
// down while Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// Seed admin account if configured
	if appCfg.SeedAdminEmail != "" {
		if err := ensureAdminAccount(ctx, deps, appCfg.SeedAdminEmail, appCfg.SeedAdminName, logger); err != nil {
			logger.Error("failed to seed admin account", zap.Error(err))
			return err
		}
	}

	// Start the async activity recorder. Handlers share this instance via
	// BuildHandler; Shutdown drains and closes it.
	buffer := appCfg.ActivityBuffer
	if buffer <= 0 {
		buffer = 256
	}
	activityRecorder = activitylog.New(activity.New(deps.MongoDatabase), logger, buffer)

	// Start background task runner
	startTaskRunner(deps.MongoDatabase, appCfg, logger)

	return nil
}

// activityRecorder is the shared async recorder instance, created in Startup
// and drained in Shutdown.
var activityRecorder *activitylog.Recorder

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	// Expired OAuth states are useless after ten minutes; sweep them out.
	taskRunner.Register(tasks.OAuthStateCleanupJob(db, logger))

	// Trail entries age out after the configured retention window.
	retention := appCfg.ActivityRetention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	taskRunner.Register(tasks.ActivityRetentionJob(db, logger, retention))

	taskRunner.Start()
}

// ensureAdminAccount ensures an admin account exists with the given email.
// If an account exists with this email, ensure it has the admin role.
// If no account exists, create a new admin account. The account still signs
// in through Google; seeding only fixes the email's role ahead of time.
func ensureAdminAccount(ctx context.Context, deps DBDeps, email string, name string, logger *zap.Logger) error {
	accounts := accountstore.New(deps.MongoDatabase)

	if name == "" {
		name = "Admin"
	}

	existing, err := accounts.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role == models.RoleAdmin {
			logger.Debug("admin account already configured", zap.String("email", existing.Email))
			return nil
		}
		if err := accounts.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted existing account to admin",
			zap.String("email", existing.Email),
			zap.String("account_id", existing.ID.Hex()),
			zap.String("previous_role", string(existing.Role)))
		return nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	created, err := accounts.Create(ctx, models.Account{
		Name:  name,
		Email: email,
		Role:  models.RoleAdmin,
	})
	if err != nil {
		return err
	}

	logger.Info("created admin account",
		zap.String("email", created.Email),
		zap.String("account_id", created.ID.Hex()))
	return nil
}
