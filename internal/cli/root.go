// Package cli implements the dedupd command line: the HTTP server plus
// one-shot store operations (check, remember, purge, stats) against the same
// SQLite file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-content-dedup/internal/config"
	"github.com/tbourn/go-content-dedup/internal/services"
	"github.com/tbourn/go-content-dedup/internal/sysutil"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitDuplicate = 3
)

// ErrDuplicateFound is returned by `check` when the candidate matched; it
// maps to ExitDuplicate so shell pipelines can branch on it.
var ErrDuplicateFound = errors.New("duplicate content")

// app carries state shared by all subcommands.
type app struct {
	version string
	dbPath  string // --db flag; overrides DEDUP_DB_PATH
	cfg     config.Config
}

// NewRootCommand builds the dedupd command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:           "dedupd",
		Short:         "Content deduplication store",
		Long:          `Remembers fingerprints of published text, images and video, and flags repeats within a recency window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.DBPath = sysutil.FirstNonEmpty(a.dbPath, cfg.DBPath)
			a.cfg = cfg

			sysutil.SetupLogger(cmd.ErrOrStderr(), cfg.LogPretty, cfg.OTEL.ServiceName)
			sysutil.SetLogLevel(cfg.LogLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides DEDUP_DB_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dedupd %s\n", a.version)
		},
	})
	root.AddCommand(
		a.serveCommand(),
		a.checkCommand(),
		a.rememberCommand(),
		a.purgeCommand(),
		a.statsCommand(),
	)
	return root
}

// Execute loads .env, runs the command tree with args, and returns the
// process exit code.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	root := NewRootCommand(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	if code == ExitError {
		fmt.Fprintln(stderr, "error:", err)
	}
	return code
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrDuplicateFound):
		return ExitDuplicate
	default:
		return ExitError
	}
}

// openStore opens the configured database and applies configured defaults.
func (a *app) openStore() (*services.DedupService, error) {
	svc, err := services.OpenDedupStore(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	svc.WindowDays = a.cfg.WindowDays
	svc.RetentionDays = a.cfg.RetentionDays
	return svc, nil
}

// withStore runs fn against an open store and always closes it.
func (a *app) withStore(fn func(*services.DedupService) error) error {
	svc, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close store")
		}
	}()
	return fn(svc)
}

// readMedia loads an optional media file; an empty path means absent.
func readMedia(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
