package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/fakeapi"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "access token lifetime")
	autoConfirm := flag.Bool("auto-confirm", false, "skip email confirmation for new accounts")
	secret := flag.String("secret", os.Getenv("COOKBOOK_FAKEAPI_SECRET"), "token signing secret (random when empty)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	logFormat := flag.String("log-format", logging.FormatText, "text or json")
	flag.Parse()

	logger, err := logging.New(*logLevel, *logFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fakeapi: %v\n", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := fakeapi.New(fakeapi.Options{
		Secret:      []byte(*secret),
		AccessTTL:   *accessTTL,
		AutoConfirm: *autoConfirm,
		Logger:      logger,
	})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", *addr), slog.String("api_url", "http://"+*addr+"/api"))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
			return 1
		}
	}
	return 0
}
