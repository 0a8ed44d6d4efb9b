package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"claw/internal/config"
	"claw/internal/db"
	"claw/internal/deliver"
	"claw/internal/gateway"
	"claw/internal/prompt"
	"claw/internal/runner"
	"claw/internal/scheduler"
)

// Run starts the daemon: Discord gateway + scheduler loop. Blocks until
// SIGINT/SIGTERM is received. A missing Discord token is fatal before
// anything is started.
func Run(cfg *config.Config) error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token not configured; set DISCORD_TOKEN or run 'claw init'")
	}

	// Write PID file.
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.PIDFile), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	if err := WritePID(cfg.Daemon.PIDFile); err != nil {
		return err
	}
	defer RemovePID(cfg.Daemon.PIDFile)

	// Open DB.
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	// Crash recovery: a job left 'processing' by an unclean shutdown would
	// otherwise be stranded forever.
	recovered, err := store.RecoverStuckProcessing(context.Background())
	if err != nil {
		return fmt.Errorf("crash recovery: %w", err)
	}
	if recovered > 0 {
		slog.Info("recovered stuck jobs", "count", recovered)
	}

	// Signal context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chat client; ingress enqueues straight into the store.
	chat, err := gateway.NewDiscord(cfg.Discord.Token, config.ProxyURL(),
		func(ctx context.Context, msg gateway.Message) error {
			id, err := store.Enqueue(ctx, msg.ChannelID, msg.ID, msg.AuthorID, msg.Content)
			if err != nil {
				return err
			}
			slog.Info("job enqueued", "job", id, "author", msg.AuthorID, "dm", msg.DM)
			return nil
		})
	if err != nil {
		return err
	}
	if err := chat.Open(); err != nil {
		return err
	}
	defer chat.Close()

	loop := scheduler.New(
		store,
		chat,
		prompt.NewBuilder(chat, cfg.Worker.DisplayName),
		runner.NewCLI(cfg.Worker.Tool, cfg.Worker.DisplayName),
		deliver.NewSink(chat),
		cfg.PollInterval(),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	slog.Info("daemon started", "tool", cfg.Worker.Tool, "poll_interval", cfg.Daemon.PollInterval)

	// Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, stopping...")

	// Force-exit on second signal.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Error("second signal received, forcing exit")
		os.Exit(1)
	}()

	// Graceful shutdown with hard deadline. Cancelling ctx kills a worker
	// subprocess in flight; the scheduler leaves that job in 'processing'
	// and the startup sweep returns it to 'pending'.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("daemon stopped")
	case <-time.After(10 * time.Second):
		slog.Error("shutdown timed out after 10s, forcing exit")
		os.Exit(1)
	}

	return nil
}
