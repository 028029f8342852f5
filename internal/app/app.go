package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/config"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/logging"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/prefs"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/ui"
)

// Options configure the cookbook terminal client.
type Options struct {
	ConfigPath string
	PrefsPath  string   // empty uses default ~/.config/cookbook/prefs.toml
	EnvFiles   []string // dotenv files loaded before the config
	PollEvery  int      // seconds; zero uses default
	LogPath    string   // empty discards logs while the TUI owns the terminal
	Version    string
}

// Run boots the TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	if err := config.LoadEnv(opts.EnvFiles...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Discard()
	if opts.LogPath != "" {
		file, err := logging.OpenFile(opts.LogPath)
		if err != nil {
			return err
		}
		defer func() { _ = file.Close() }()
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, file)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	session, err := NewSession(cfg, SessionOptions{Logger: logger, Version: opts.Version})
	if err != nil {
		return err
	}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	signedIn := session.Restore(ctx)
	if signedIn {
		// Populate the store before the first frame.
		refresh(ctx, session.Store, session.Client, userPrefs.PageSize, logger)
	}

	StartPoller(ctx, session.Store, session.Client, PollerOptions{
		Interval: interval,
		PageSize: userPrefs.PageSize,
		Logger:   logger.With(slog.String("component", "poller")),
	})

	return ui.Run(ui.Options{
		Context:   ctx,
		Backend:   session.Client,
		Store:     session.Store,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		SignedIn:  signedIn,
		Logger:    logger.With(slog.String("component", "ui")),
	})
}
