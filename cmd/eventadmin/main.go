package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/apierr"
	"github.com/alnah/go-eventadmin/internal/auth"
	"github.com/alnah/go-eventadmin/internal/cli"
	"github.com/alnah/go-eventadmin/internal/config"
	"github.com/alnah/go-eventadmin/internal/credstore"
	"github.com/alnah/go-eventadmin/internal/lang"
	"github.com/alnah/go-eventadmin/internal/session"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitSetup     = 3
	ExitAuth      = 4
	ExitAPI       = 5
	ExitInterrupt = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	var verbose bool
	rootCmd := &cobra.Command{
		Use:     "eventadmin",
		Short:   "Sign in to the event platform and call its API",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.Logger = newLogger(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every request to stderr")

	// Subcommands.
	rootCmd.AddCommand(cli.LoginCmd(env))
	rootCmd.AddCommand(cli.LogoutCmd(env))
	rootCmd.AddCommand(cli.WhoamiCmd(env))
	rootCmd.AddCommand(cli.GetCmd(env))
	rootCmd.AddCommand(cli.PostCmd(env))
	rootCmd.AddCommand(cli.PutCmd(env))
	rootCmd.AddCommand(cli.PatchCmd(env))
	rootCmd.AddCommand(cli.DeleteCmd(env))
	rootCmd.AddCommand(cli.SuperadminCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// newLogger returns the diagnostic logger. Warnings and errors are always
// shown; --verbose adds the per-request debug events.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// API failures carry their class; backend text never reaches the
	// usage pattern match below.
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		switch apierr.ClassOf(err) {
		case apierr.ClassAuth, apierr.ClassForbidden:
			return ExitAuth
		default:
			return ExitAPI
		}
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors and bad
	// command input.
	if isCobraUsageError(err) || errors.Is(err, cli.ErrInvalidPair) ||
		errors.Is(err, cli.ErrInvalidData) || errors.Is(err, cli.ErrUsernameMissing) ||
		errors.Is(err, cli.ErrPasswordMissing) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, config.ErrInvalidValue) || errors.Is(err, config.ErrInvalidSyntax) ||
		errors.Is(err, config.ErrUnknownKey) || errors.Is(err, credstore.ErrUnknownBackend) ||
		errors.Is(err, credstore.ErrRedisUnavailable) || errors.Is(err, credstore.ErrCorrupt) ||
		errors.Is(err, session.ErrInvalidConfig) || errors.Is(err, lang.ErrInvalid) {
		return ExitSetup
	}

	// Authentication errors (ExitAuth = 4).
	if errors.Is(err, auth.ErrNotSuperadmin) || errors.Is(err, auth.ErrNotSignedIn) ||
		errors.Is(err, auth.ErrMissingCredentials) {
		return ExitAuth
	}

	// Login answered without a token (ExitAPI = 5).
	if errors.Is(err, auth.ErrNoToken) {
		return ExitAPI
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
