package bootstrap

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"folio/app/internal/config"
	"folio/app/internal/content"
	"folio/app/internal/db"
	apphttp "folio/app/internal/http"
	"folio/app/internal/jobs"
	"folio/app/internal/lock"
	applog "folio/app/internal/log"
	"folio/app/internal/workflow"
)

const slowQueryThreshold = 200 * time.Millisecond

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	// Clock overrides the system clock, mainly for tests.
	Clock clockwork.Clock
}

type Result struct {
	Content    content.Service
	HTTPServer *apphttp.Server
	Jobs       *jobs.Runner
	Database   *gorm.DB
	Locker     lock.Locker
	Cleanup    func() error
}

// Build composes the Folio application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Logger == nil {
		return Result{}, eris.New("logger is required")
	}
	cfg := deps.Config

	policy, err := workflow.ParsePolicy(cfg.WorkflowPolicy)
	if err != nil {
		return Result{}, eris.Wrap(err, "parsing workflow policy")
	}

	database, err := OpenDatabase(cfg, deps.Logger)
	if err != nil {
		return Result{}, err
	}

	var closers []func() error
	cleanup := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := db.Close(database); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := cleanup(); closeErr != nil {
			deps.Logger.WithError(closeErr).Error("closing resources after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := content.Migrate(ctx, database, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running content migrations"))
	}

	locker, closeLocker, err := newLocker(ctx, cfg, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating locker"))
	}
	closers = append(closers, closeLocker)

	clk := deps.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	store, err := content.NewTranslationStore(database, content.StoreOptions{
		DefaultLocale:  cfg.DefaultLocale,
		FallbackLocale: cfg.FallbackLocale,
		SlugMaxLength:  cfg.SlugMaxLength,
		Logger:         deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating translation store"))
	}

	tracker, err := content.NewRevisionTracker(database, locker, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating revision tracker"))
	}

	ranks, err := content.NewOrderingManager(database, locker, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating ordering manager"))
	}

	contentService, err := content.NewService(content.Dependencies{
		DB:           database,
		Translations: store,
		Revisions:    tracker,
		Ordering:     ranks,
		Workflow:     workflow.NewMachine(clk, policy),
		Clock:        clk,
		Locker:       locker,
		Logger:       deps.Logger,
		SentryHub:    deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating content service"))
	}

	pruneJob, err := jobs.NewRevisionPrune(contentService, cfg.RevisionKeep, cfg.RevisionPruneSchedule, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating revision prune job"))
	}

	runner, err := jobs.NewRunner(deps.Logger, cfg.JobTimeout,
		jobs.NewPublishSweep(contentService, cfg.PublishSweepSchedule, deps.Logger),
		pruneJob,
	)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating job runner"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Content:   contentService,
		Database:  database,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		JWTSecret: cfg.JWTSecret,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.RateLimitBurst,
			RequestsPerSecond: cfg.RateLimitRPS,
			ClientTTL:         cfg.RateLimitTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}
	closers = append(closers, func() error {
		httpServer.Close()
		return nil
	})

	return Result{
		Content:    contentService,
		HTTPServer: httpServer,
		Jobs:       runner,
		Database:   database,
		Locker:     locker,
		Cleanup:    cleanup,
	}, nil
}

// OpenDatabase opens the SQLite database with Gorm logging routed through logger.
func OpenDatabase(cfg config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	database, err := db.Open(db.Options{
		Path:   cfg.DBPath,
		Logger: applog.GormLogger(logger, slowQueryThreshold),
	})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}
	return database, nil
}

// Migrate applies the schema and closes the connection.
func Migrate(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	database, err := OpenDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(database); closeErr != nil {
			logger.WithError(closeErr).Error("closing database after migration")
		}
	}()

	return content.Migrate(ctx, database, logger)
}

func newLocker(ctx context.Context, cfg config.Config, logger *logrus.Logger) (lock.Locker, func() error, error) {
	if cfg.RedisAddr == "" {
		logger.WithField("locker", "local").Info("using in-process locks")
		return lock.NewLocal(), func() error { return nil }, nil
	}

	locker, err := lock.NewRedisLocker(ctx, lock.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{"locker": "redis", "addr": cfg.RedisAddr}).Info("using redis locks")
	return locker, locker.Close, nil
}
