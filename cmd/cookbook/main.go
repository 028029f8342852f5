// Package main provides the cookbook command-line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/app"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/config"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/logging"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/ui"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitUnauthorized = 2
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cookbook: %v\n", err)
		var p *api.Problem
		if errors.As(err, &p) && (p.Kind == api.KindUnauthorized || p.Kind == api.KindNotAllowed) {
			return ExitUnauthorized
		}
		return ExitError
	}
	return ExitSuccess
}

// cli carries global flags and the lazily built session.
type cli struct {
	configPath string
	envFiles   []string
	verbose    bool
	jsonOut    bool

	cfg     config.Config
	logger  *slog.Logger
	session *app.Session
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "cookbook",
		Short: "Cookbook - shared recipe collections from the terminal",
		Long: `cookbook talks to the cookbook API on your behalf.

Sign in once; the access token is renewed automatically when it expires.
When the session cannot be renewed you are asked to log in again.

Examples:
  # Sign in (password is read from stdin when --password is omitted)
  cookbook login cook@example.com

  # List your cookbooks
  cookbook cookbooks list

  # Browse interactively
  cookbook tui`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/cookbook/config.toml)")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.registerCmd(),
		c.confirmCmd(),
		c.whoamiCmd(),
		c.cookbooksCmd(),
		c.recipesCmd(),
		c.inviteCmd(),
		c.invitationsCmd(),
		c.joinCmd(),
		c.uploadCmd(),
		c.tuiCmd(),
		c.logsCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(c.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// open builds the session on first use so commands that never reach the API
// do not touch the credential store.
func (c *cli) open() (*app.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	session, err := app.NewSession(c.cfg, app.SessionOptions{Logger: c.logger, Version: version})
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// problemError renders a problem for the terminal while keeping it
// reachable through errors.As.
type problemError struct {
	problem *api.Problem
}

func (e problemError) Error() string {
	return fmt.Sprintf("%s (%s)", ui.ProblemMessage(e.problem.Kind, e.problem.Detail), e.problem.Kind)
}

func (e problemError) Unwrap() error {
	return e.problem
}

func unwrap[T any](res api.Result[T]) (T, error) {
	var zero T
	switch {
	case res.IsOK():
		return res.Value, nil
	case res.Canceled():
		return zero, context.Canceled
	default:
		return zero, problemError{problem: res.Problem}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
