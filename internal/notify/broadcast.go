// Package notify sends one text to every known user, strictly one recipient
// at a time with a fixed pause between sends.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"mediabot/internal/apperr"
	"mediabot/internal/clock"
)

// Progress is published every progressEvery successful sends.
const progressEvery = 5

const (
	EventProgress = "broadcast_progress"
	EventDone     = "broadcast_done"
)

// ErrRunning is returned when a broadcast is already in progress.
var ErrRunning = apperr.New(apperr.KindConflict, "a broadcast is already running")

type Recipients interface {
	IDs(ctx context.Context) ([]int64, error)
}

type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Publisher receives progress events, typically the websocket hub.
type Publisher interface {
	Publish(eventType string, data interface{})
}

// Report counts the outcome of one broadcast.
type Report struct {
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Reach is the number of recipients a send was attempted for.
func (r Report) Reach() int {
	return r.Sent + r.Failed
}

// SuccessRate is the percentage of attempted sends that succeeded.
func (r Report) SuccessRate() float64 {
	if r.Reach() == 0 {
		return 0
	}
	return float64(r.Sent) / float64(r.Reach()) * 100
}

// ProgressText renders r for the admin while the broadcast runs.
func (r Report) ProgressText() string {
	return fmt.Sprintf("Broadcasting...\nSent: %d\nFailed: %d\nSkipped (admins): %d", r.Sent, r.Failed, r.Skipped)
}

// Summary renders r once the broadcast has finished.
func (r Report) Summary() string {
	return fmt.Sprintf("Broadcast completed\n\nSuccessfully sent: %d\nFailed: %d\nSkipped (admins): %d\nTotal reach: %d\nSuccess rate: %.1f%%",
		r.Sent, r.Failed, r.Skipped, r.Reach(), r.SuccessRate())
}

type Broadcaster struct {
	users     Recipients
	sender    Sender
	publisher Publisher
	clock     clock.Clock
	delay     time.Duration
	isAdmin   func(int64) bool
	running   atomic.Bool
	logger    *slog.Logger
}

func NewBroadcaster(users Recipients, sender Sender, publisher Publisher, clk clock.Clock, delay time.Duration, isAdmin func(int64) bool, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		users:     users,
		sender:    sender,
		publisher: publisher,
		clock:     clk,
		delay:     delay,
		isAdmin:   isAdmin,
		logger:    logger.With(slog.String("component", "broadcaster")),
	}
}

// Running reports whether a broadcast is in progress.
func (b *Broadcaster) Running() bool {
	return b.running.Load()
}

// Run sends text to every non-admin user. Failed sends are counted and
// skipped. onProgress, if set, sees the same snapshots the publisher does.
// Cancelling ctx stops the loop and returns the partial report with the
// context error.
func (b *Broadcaster) Run(ctx context.Context, text string, onProgress func(Report)) (Report, error) {
	if !b.running.CompareAndSwap(false, true) {
		return Report{}, ErrRunning
	}
	defer b.running.Store(false)

	report := Report{StartedAt: b.clock.Now()}
	ids, err := b.users.IDs(ctx)
	if err != nil {
		return report, err
	}
	report.Total = len(ids)
	b.logger.Info("Broadcast started", slog.Int("recipients", len(ids)))

	notify := func(eventType string) {
		if b.publisher != nil {
			b.publisher.Publish(eventType, report)
		}
		if onProgress != nil {
			onProgress(report)
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = b.clock.Now()
			b.logger.Warn("Broadcast cancelled", slog.Int("sent", report.Sent), slog.Int("failed", report.Failed))
			notify(EventDone)
			return report, err
		}
		if b.isAdmin != nil && b.isAdmin(id) {
			report.Skipped++
			continue
		}

		if err := b.sender.SendText(ctx, id, text); err != nil {
			report.Failed++
			b.logger.Warn("Broadcast send failed", slog.Int64("user_id", id), slog.String("error", err.Error()))
			continue
		}
		report.Sent++
		if report.Sent%progressEvery == 0 {
			notify(EventProgress)
		}
		b.clock.Sleep(b.delay)
	}

	report.FinishedAt = b.clock.Now()
	b.logger.Info("Broadcast finished",
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	notify(EventDone)
	return report, nil
}
