package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tinyland-inc/keyclaw/cmd/keyclaw/internal"
	"github.com/tinyland-inc/keyclaw/pkg/activator"
	"github.com/tinyland-inc/keyclaw/pkg/bus"
	"github.com/tinyland-inc/keyclaw/pkg/config"
	"github.com/tinyland-inc/keyclaw/pkg/filters"
	"github.com/tinyland-inc/keyclaw/pkg/logger"
	"github.com/tinyland-inc/keyclaw/pkg/ocr"
	"github.com/tinyland-inc/keyclaw/pkg/pipeline"
	"github.com/tinyland-inc/keyclaw/pkg/platform"
	"github.com/tinyland-inc/keyclaw/pkg/telegram"
)

func watchCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug || cfg.LogLevelName() == "debug" {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}
	if cfg.Log.File != "" {
		if err := logger.SetLogFile(cfg.Log.File); err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer logger.CloseLogFile()
	}

	if len(cfg.Channels) == 0 {
		return config.ErrNoChannels
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.NewEventBus()

	tgSession := telegram.NewSession(cfg.Telegram, eventBus, cfg.CachePath())
	if err := tgSession.Connect(ctx); err != nil {
		return fmt.Errorf("telegram login: %w", err)
	}
	fmt.Println("✓ Telegram session ready")

	pfSession := platform.NewSession(cfg.Platform, cfg.CachePath())
	if err := pfSession.Connect(ctx); err != nil {
		return fmt.Errorf("platform connect: %w", err)
	}
	if !pfSession.Ready() {
		if err := pfSession.LogOn(ctx, ""); err != nil {
			var le *platform.LogonError
			if errors.As(err, &le) && le.GuardRequired() {
				return fmt.Errorf("%w — run 'keyclaw auth' to complete the guard-code login first", err)
			}
			return fmt.Errorf("platform login: %w", err)
		}
	}
	fmt.Println("✓ Platform session ready")

	filterSet := filters.FromConfig(cfg.Channels)
	runner := pipeline.NewRunner(
		activator.New(pfSession),
		tgSession,
		ocr.NewClient(cfg.OCR.Language),
		cfg.ScratchPath(),
	)

	keepalive := time.Duration(cfg.Keepalive()) * time.Millisecond
	dispatcher, err := pipeline.NewDispatcher(eventBus, filterSet, runner, tgSession, keepalive)
	if err != nil {
		return fmt.Errorf("error creating dispatcher: %w", err)
	}

	fmt.Printf("✓ Watching %d channel(s)\n", len(filterSet))
	fmt.Println("Press Ctrl+C to stop")

	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatcherDone)
	}()

	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- tgSession.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	var runErr error
	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case err := <-sessionErr:
		if runErr = sessionExitError(err); runErr != nil {
			logger.ErrorCF("watch", "Telegram session ended", map[string]any{
				"error": runErr.Error(),
			})
		}
	}

	cancel()
	eventBus.Close()
	<-dispatcherDone
	fmt.Println("✓ Watcher stopped")

	return runErr
}

// sessionExitError filters out the errors a clean shutdown produces so
// only a real session failure propagates to the command's exit status.
func sessionExitError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
