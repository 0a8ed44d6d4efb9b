// Package scheduler drives queued jobs through the processing state machine:
// pending → processing → completed|failed → delivered.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"claw/internal/db"
	"claw/internal/deliver"
	"claw/internal/gateway"
	"claw/internal/prompt"
)

// Runner answers an augmented prompt. A non-nil error means the worker could
// not be invoked at all and the job must be recorded as failed.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Loop polls the queue on a fixed interval and processes one job per tick.
// The loop is deliberately serialized: the subprocess and the delivery send
// are both awaited before the next claim, so at most one job is ever in
// 'processing'.
type Loop struct {
	store    *db.Store
	chat     gateway.Client
	prompts  *prompt.Builder
	runner   Runner
	sink     *deliver.Sink
	interval time.Duration
}

func New(store *db.Store, chat gateway.Client, prompts *prompt.Builder, runner Runner, sink *deliver.Sink, interval time.Duration) *Loop {
	return &Loop{
		store:    store,
		chat:     chat,
		prompts:  prompts,
		runner:   runner,
		sink:     sink,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	slog.Info("scheduler started", "interval", l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("scheduler stopping")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick claims and processes at most one job. A tick with no pending job is a
// no-op; a claim error aborts the tick and the row stays pending for the
// next one.
func (l *Loop) Tick(ctx context.Context) {
	job, ok, err := l.store.ClaimOldestPending(ctx)
	if err != nil {
		slog.Error("claim job failed", "err", err)
		return
	}
	if !ok {
		return
	}
	slog.Info("processing job", "job", job.ID, "channel", job.ChannelID)
	l.process(ctx, job)
}

func (l *Loop) process(ctx context.Context, job db.Job) {
	// Once claimed, the job must reach a terminal status even if something
	// between here and delivery blows up.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panic", "job", job.ID, "panic", r, "stack", string(debug.Stack()))
			l.forceFail(ctx, job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	resolved := true
	if err := l.chat.ResolveChannel(ctx, job.ChannelID); err != nil {
		// The prompt still runs so the work isn't lost; only delivery is skipped.
		slog.Warn("channel unresolved, delivery will be skipped",
			"job", job.ID, "channel", job.ChannelID, "err", err)
		resolved = false
	}

	augmented := l.prompts.Build(ctx, job.ChannelID, job.Prompt)

	text, err := l.runner.Run(ctx, augmented)
	if ctx.Err() != nil {
		// Shutdown interrupted the worker mid-run; whatever came back is
		// not a real result. Leave the job in 'processing' so the startup
		// sweep returns it to 'pending'.
		slog.Warn("shutdown interrupted job, leaving it for startup recovery", "job", job.ID)
		return
	}
	if err != nil {
		slog.Error("worker invocation failed", "job", job.ID, "err", err)
		l.forceFail(ctx, job.ID, err.Error())
		return
	}

	if err := l.store.MarkCompleted(ctx, job.ID, text); err != nil {
		slog.Error("record completion failed", "job", job.ID, "err", err)
		l.forceFail(ctx, job.ID, err.Error())
		return
	}

	if !resolved {
		slog.Warn("job completed but undelivered: channel unresolved", "job", job.ID)
		return
	}

	if err := l.sink.Deliver(ctx, job.ChannelID, job.AuthorID, text); err != nil {
		// Not retried; the job stays completed for manual inspection.
		slog.Warn("delivery failed, job stays completed", "job", job.ID, "err", err)
		return
	}

	if err := l.store.MarkDelivered(ctx, job.ID); err != nil {
		slog.Error("mark delivered failed", "job", job.ID, "err", err)
		return
	}
	slog.Info("job delivered", "job", job.ID)
}

func (l *Loop) forceFail(ctx context.Context, id int64, msg string) {
	if err := l.store.MarkFailed(ctx, id, msg); err != nil {
		slog.Error("mark failed errored", "job", id, "err", err)
	}
}
