// Package main is the bodylog command-line journal: record measurements,
// list them and push unsynced ones to the spreadsheet.
package main

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atinyakov/bodylog/internal/app"
	"github.com/atinyakov/bodylog/internal/client/view"
	"github.com/atinyakov/bodylog/internal/config"
	"github.com/atinyakov/bodylog/internal/logger"
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

// session is the state shared by all subcommands once the root pre-run succeeded.
type session struct {
	opts *config.Options
	app  *app.App
	log  *logger.Logger
	term *view.Terminal
	out  io.Writer

	closed bool
}

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// execute runs root and then releases the session, also when the command
// failed: cobra skips post-run hooks after a RunE error.
func execute(root *cobra.Command, s *session) error {
	err := root.Execute()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd() (*cobra.Command, *session) {
	s := &session{}

	root := &cobra.Command{
		Use:   "bodylog",
		Short: "Personal body-measurement journal with spreadsheet sync",
		Long: `bodylog records weight and waist measurements on this device, shows the
running list and pushes unsynced entries to a Google Sheets web app in one batch.

Entries accepted by the sheet are removed locally.`,
		Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())
	_ = config.SetFlagDefault(root.PersistentFlags(), "log-level", "warn")

	root.AddCommand(
		newAddCmd(s),
		newListCmd(s),
		newSyncCmd(s),
		newShellCmd(s),
	)
	return root, s
}

func (s *session) open(cmd *cobra.Command) error {
	opts, err := config.Load(cmd.Flags())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}

	s.opts = opts
	s.log = logger.New()
	s.log.File = opts.Log.File
	if err := s.log.Init(opts.Log.Level); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "failed to init logger:", err)
		return err
	}

	a, err := app.New(opts, s.log.Log)
	if err != nil {
		s.log.Log.Error("cannot open journal", zap.Error(err))
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	s.app = a
	s.out = cmd.OutOrStdout()
	s.term = view.NewTerminal(s.out)
	return nil
}

func (s *session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.log != nil {
		defer func() { _ = s.log.Log.Sync() }()
	}
	if s.app == nil {
		return nil
	}
	return s.app.Close()
}

func newAddCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "add [weight waist]",
		Short: "Record a measurement (prompts when no values are given)",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				weight, waist float64
				err           error
			)
			switch len(args) {
			case 0:
				weight, waist, err = view.PromptMeasurement()
			case 2:
				weight, waist, err = view.ParseMeasurement(args[0], args[1])
			default:
				err = view.ErrMissingInput
			}
			if err != nil {
				return s.reportInput(err)
			}
			return s.save(cmd.Context(), weight, waist)
		},
	}
}

func (s *session) reportInput(err error) error {
	if errors.Is(err, view.ErrMissingInput) {
		view.NotifyMissingInput(s.out)
	} else {
		view.NotifySaveFailed(s.out, err)
	}
	return err
}

func (s *session) save(ctx context.Context, weight, waist float64) error {
	e, err := s.app.Journal.Save(ctx, weight, waist)
	if err != nil {
		view.NotifySaveFailed(s.out, err)
		return err
	}
	view.NotifySaved(s.out, e.Date)
	return s.list(ctx)
}

func (s *session) list(ctx context.Context) error {
	entries, err := s.app.Journal.Entries(ctx)
	if err != nil {
		return err
	}
	s.term.Present(entries)
	return nil
}

func newListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show saved entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.list(cmd.Context())
		},
	}
}

func newSyncCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced entries to the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.sync(ctx)
		},
	}
}

func (s *session) sync(ctx context.Context) error {
	view.NotifySyncStarting(s.out)
	out := s.app.Sync.Run(ctx)
	switch out.Status {
	case service.NothingToSync:
		view.NotifyNothingToSync(s.out)
	case service.Synced:
		view.NotifySyncComplete(s.out, out.Count)
		return s.list(ctx)
	case service.Failed:
		view.NotifySyncFailed(s.out, out.Err)
		return out.Err
	}
	return nil
}

func newShellCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive journal shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			service.StartAutoSync(ctx, s.app.Sync, s.opts.Sync.Interval, s.log.Log)
			s.repl(ctx, cmd.InOrStdin())
			return nil
		},
	}
}

// repl runs the interactive loop until exit or end of input.
func (s *session) repl(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	_ = s.list(ctx)

	for {
		fmt.Fprint(s.out, "bodylog> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(s.out, "Available commands: help, add [weight waist], list, sync, exit")
		case "add":
			var (
				weight, waist float64
				err           error
			)
			if len(args) == 3 {
				weight, waist, err = view.ParseMeasurement(args[1], args[2])
			} else if len(args) == 1 {
				weight, waist, err = view.PromptMeasurement()
			} else {
				err = view.ErrMissingInput
			}
			if err != nil {
				_ = s.reportInput(err)
				continue
			}
			_ = s.save(ctx, weight, waist)
		case "list":
			if err := s.list(ctx); err != nil {
				fmt.Fprintln(s.out, err)
			}
		case "sync":
			_ = s.sync(ctx)
		case "exit", "quit":
			fmt.Fprintln(s.out, "Bye")
			return
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}
