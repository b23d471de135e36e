// Command acp bootstraps Globus credentials for a transfer: it ensures a
// valid OAuth session exists in the local credential database, logging the
// user in if needed, and lets the user pick a collection to transfer to.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanford-rc/acp-go/internal/config"
	"github.com/stanford-rc/acp-go/internal/globus"
	"github.com/stanford-rc/acp-go/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDBPath     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// errBatchUnsupported ends a non-interactive run after the bootstrap work
// is done. Always exits 1.
var errBatchUnsupported = errors.New("batch mode is not supported yet")

// httpClientTimeout bounds Transfer API requests so a stuck connection
// cannot hang the CLI.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "acp",
		Short:   "Globus credential bootstrapper",
		Long:    "Ensures a valid Globus login session exists and picks a collection for a transfer.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runBootstrap,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "credential database path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newCredsCmd())

	return cmd
}

// buildLogger creates an slog.Logger from the config baseline and CLI
// flags. Flags win over config.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// openStore opens the credential database at the --db override or the
// resolved default path. The caller must Close the returned store.
func openStore(ctx context.Context, logger *slog.Logger) (*store.Store, error) {
	path := flagDBPath

	if path == "" {
		resolved, err := store.DefaultPath(logger)
		if err != nil {
			return nil, err
		}

		path = resolved
	}

	return store.Open(ctx, path, logger)
}

// withSession opens the store for the duration of fn, wiring up the config
// and session manager. Every exit path releases the store handle.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, mgr *globus.Manager, cfg *config.Config, logger *slog.Logger) error) error {
	ctx := cmd.Context()

	cfg, err := config.Resolve(flagConfigPath)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)

	st, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := globus.NewManager(st, cfg.ClientID, cfg.Scopes, logger)

	return fn(ctx, mgr, cfg, logger)
}
