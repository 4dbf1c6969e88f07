// Package bot wires the long-running parts of the companion bot together and
// manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Poller receives updates until ctx is cancelled. *tgbot.Bot satisfies it.
type Poller interface {
	Start(ctx context.Context)
}

// Server serves requests until ctx is cancelled. *web.Server satisfies it.
type Server interface {
	Run(ctx context.Context) error
}

// TaskScheduler runs scheduled tasks between Start and Stop. *Scheduler satisfies it.
type TaskScheduler interface {
	Start() error
	Stop() error
}

// Bot runs the enabled channels and the scheduler side by side.
type Bot struct {
	logger    *slog.Logger
	telegram  Poller
	web       Server
	scheduler TaskScheduler
}

// NewBot creates the orchestrator. telegram and web may be nil when the channel is disabled.
func NewBot(logger *slog.Logger, telegram Poller, web Server, scheduler TaskScheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		telegram:  telegram,
		web:       web,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	if b.telegram != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")
			b.telegram.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if b.web != nil {
		g.Go(func() error {
			if err := b.web.Run(gCtx); err != nil {
				b.logger.Error("Web server failed", "error", err)
				return fmt.Errorf("web server failed: %w", err)
			}
			return nil
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
