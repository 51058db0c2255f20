package cli

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var withoutJobs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := initRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			return serve(cmd.Context(), rt, !withoutJobs)
		},
	}

	cmd.Flags().BoolVar(&withoutJobs, "no-jobs", false, "Do not run the publish sweep and revision prune jobs")
	return cmd
}

func serve(ctx context.Context, rt *runtime, runJobs bool) error {
	app, err := rt.build(ctx)
	if err != nil {
		return eris.Wrap(err, "building application")
	}
	defer func() {
		if closeErr := app.Cleanup(); closeErr != nil {
			rt.Logger.WithError(closeErr).Error("releasing resources")
		}
	}()

	if runJobs {
		app.Jobs.Start(ctx)
		defer app.Jobs.Stop()
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", rt.Config.ServerPort),
		Handler: app.HTTPServer.Handler(),
	}

	rt.Logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
		"jobs": runJobs,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		rt.Logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.Config.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	rt.Logger.Info("http server shut down cleanly")
	return nil
}
