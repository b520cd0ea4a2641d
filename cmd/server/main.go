// Package main runs the on-device journal API: a localhost HTTP server with a
// websocket feed of the entry list and optional periodic sync to the sheet.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/bodylog/internal/app"
	"github.com/atinyakov/bodylog/internal/config"
	"github.com/atinyakov/bodylog/internal/logger"
	"github.com/atinyakov/bodylog/internal/server/handler/http"
	"github.com/atinyakov/bodylog/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	cmd := &cobra.Command{
		Use:           "bodylog-server",
		Short:         "Serve the bodylog journal API on this device",
		Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			allowRemote, _ := cmd.Flags().GetBool("allow-remote")
			return run(cmd.Context(), opts, allowRemote)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().Bool("allow-remote", false, "accept requests from non-loopback addresses")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parent context.Context, opts *config.Options, allowRemote bool) error {
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	log.File = opts.Log.File
	if err := log.Init(opts.Log.Level); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	a, err := app.New(opts, zapLogger)
	if err != nil {
		zapLogger.Error("cannot open journal", zap.Error(err))
		return err
	}
	defer func() { _ = a.Close() }()

	if !a.Sheets.Configured() {
		zapLogger.Warn("sink URL not configured, sync will fail until it is set")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := http.NewFeed(a.Store.ListAll, zapLogger)
	a.AddPresenter(feed)
	go feed.Run(ctx)

	service.StartAutoSync(ctx, a.Sync, opts.Sync.Interval, zapLogger)

	router := http.NewRouter(
		&http.JournalHandler{Journal: a.Journal},
		&http.SyncHandler{Syncer: a.Sync},
		feed,
		zapLogger,
		!allowRemote,
	)

	server := &nethttp.Server{
		Addr:              opts.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting journal API", zap.String("addr", opts.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Error("journal API stopped", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down journal API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
