// Package cli implements the libcat command line: record commands, the HTTP server and an interactive shell.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

// app holds what every subcommand needs once the root pre-run has opened the database.
type app struct {
	cfg    config.App
	logger *slog.Logger
	lib    *library.LibraryManager

	jsonOutput bool
	envFiles   []string
}

// Execute runs libcat with the process arguments and closes the database afterwards.
// A close failure is reported alongside any command error.
func Execute(ctx context.Context, envFiles ...string) error {
	root, a := newRootCommand(envFiles...)
	return executeAndClose(ctx, root, a)
}

func executeAndClose(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
	}
	return err
}

// newRootCommand builds the libcat command tree. envFiles are passed to config.Load.
func newRootCommand(envFiles ...string) (*cobra.Command, *app) {
	a := &app{envFiles: envFiles}

	var (
		dbPath     string
		logLevel   string
		strictRefs bool
	)

	root := &cobra.Command{
		Use:           "libcat",
		Short:         "Library catalog, borrower roster and checkout tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load(a.envFiles...)

			flags := cmd.Flags()
			if flags.Changed("db") {
				a.cfg.DBPath = dbPath
			}
			if flags.Changed("log-level") {
				a.cfg.LogLevel = logLevel
			}
			if flags.Changed("strict-refs") {
				a.cfg.StrictRefs = strictRefs
			}

			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&dbPath, "db", "", "SQLite database file (env "+config.EnvDB+")")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env "+config.EnvLogLevel+")")
	pf.BoolVar(&strictRefs, "strict-refs", false, "refuse to delete books or borrowers referenced by checkouts (env "+config.EnvStrictRefs+")")
	pf.BoolVar(&a.jsonOutput, "json", false, "print records as JSON")

	root.AddCommand(
		newBookCommand(a),
		newBorrowerCommand(a),
		newCheckoutCommand(a),
		newServeCommand(a),
		newShellCommand(a),
	)
	return root, a
}

func (a *app) open(ctx context.Context, logOut io.Writer) error {
	a.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: a.cfg.SlogLevel()}))

	opts := []library.Option{library.WithLogger(a.logger)}
	if a.cfg.StrictRefs {
		opts = append(opts, library.WithStrictReferences())
	}

	lib, err := library.NewLibraryManager(a.cfg.DBPath, opts...)
	if err != nil {
		return err
	}
	if err := lib.Provision(ctx); err != nil {
		_ = lib.Close()
		return err
	}
	a.lib = lib
	return nil
}

func (a *app) close() error {
	if a.lib == nil {
		return nil
	}
	err := a.lib.Close()
	a.lib = nil
	return err
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID: %s", kind, raw)
	}
	return id, nil
}
