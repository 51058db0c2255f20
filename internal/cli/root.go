// Package cli implements the folio command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"folio/app/internal/app/bootstrap"
	"folio/app/internal/config"
	applog "folio/app/internal/log"
)

// runtime holds the resources shared by every command.
type runtime struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	flush     func()
}

func (r *runtime) Close() {
	if r.flush != nil {
		r.flush()
	}
}

// initRuntime loads configuration and initialises logging and Sentry.
func initRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising logger")
	}

	hub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising sentry")
	}

	return &runtime{Config: cfg, Logger: logger, SentryHub: hub, flush: flush}, nil
}

// build composes the application for commands that operate on content.
func (r *runtime) build(ctx context.Context) (bootstrap.Result, error) {
	return bootstrap.Build(ctx, bootstrap.Dependencies{
		Config:    *r.Config,
		Logger:    r.Logger,
		SentryHub: r.SentryHub,
	})
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "folio",
		Short: "Folio content core",
		Long: `Folio manages content entities with an editorial workflow, numbered
revisions, per-locale translations with unique slugs, and sibling ordering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newPublishDueCommand(),
		newPruneRevisionsCommand(),
		newRevisionsCommand(),
	)
	return root
}

// Execute runs the root command with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func notice(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}
