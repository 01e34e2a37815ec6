// Package worker keeps the report_snapshots table in step with the
// record-change feed: every changed day gets its net recomputed from
// the current database state.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fixops/internal/core"
	"fixops/internal/feed"
	"fixops/internal/gateway"
	"fixops/internal/report"
)

// backfillConcurrency bounds parallel per-day recomputes during Backfill.
const backfillConcurrency = 4

type SnapshotWorker struct {
	schedules gateway.ScheduleStore
	ledger    gateway.LedgerStore
	snapshots gateway.SnapshotStore
	toggles   report.Toggles
}

func NewSnapshotWorker(schedules gateway.ScheduleStore, ledger gateway.LedgerStore, snapshots gateway.SnapshotStore) *SnapshotWorker {
	return &SnapshotWorker{
		schedules: schedules,
		ledger:    ledger,
		snapshots: snapshots,
		toggles:   report.AllOn(), // snapshots always carry the full net
	}
}

// HandleChange recomputes the snapshot for the day named in the event.
// Events without a usable day are dropped, not retried: retrying cannot
// make the day parseable.
func (w *SnapshotWorker) HandleChange(ctx context.Context, msg *feed.RecordChangeMessage) error {
	day, err := core.CanonicalDay(msg.Day)
	if err != nil {
		slog.WarnContext(ctx, "Change event without usable day, dropping",
			"table", msg.Table, "id", msg.ID, "day", msg.Day)
		return nil
	}

	slog.InfoContext(ctx, "Recomputing snapshot",
		"table", msg.Table, "id", msg.ID, "action", msg.Action, "day", day)
	return w.RecomputeDay(ctx, day)
}

// RecomputeDay re-runs the aggregator over a single day and stores the
// resulting net.
func (w *SnapshotWorker) RecomputeDay(ctx context.Context, day string) error {
	rng := core.DateRange{From: day, To: day}

	schedules, err := w.schedules.ListSchedules(ctx, rng)
	if err != nil {
		return fmt.Errorf("list schedules for %s: %w", day, err)
	}
	entries, err := w.ledger.ListEntries(ctx, rng)
	if err != nil {
		return fmt.Errorf("list ledger entries for %s: %w", day, err)
	}

	totals := report.ComputeTotals(schedules, entries, rng, w.toggles)
	if err := w.snapshots.UpsertSnapshot(ctx, day, totals.GrandTotal); err != nil {
		return fmt.Errorf("upsert snapshot for %s: %w", day, err)
	}
	return nil
}

// Backfill recomputes every day in the range, a bounded number at a
// time. Used at startup and as a repair path when events were missed.
func (w *SnapshotWorker) Backfill(ctx context.Context, rng core.DateRange) error {
	days := rng.Days()
	if len(days) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)
	for _, day := range days {
		g.Go(func() error {
			return w.RecomputeDay(gctx, day)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("backfill %s..%s: %w", rng.From, rng.To, err)
	}

	slog.InfoContext(ctx, "Backfill completed", "from", rng.From, "to", rng.To, "days", len(days))
	return nil
}

// Run drains a subscription until it closes or the context ends. Failed
// events are rejected so the broker redelivers them.
func (w *SnapshotWorker) Run(ctx context.Context, sub *feed.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			err := w.HandleChange(ctx, msg)
			sub.Done(err == nil)
			if err != nil {
				slog.ErrorContext(ctx, "Snapshot recompute failed",
					"table", msg.Table, "id", msg.ID, "day", msg.Day, "error", err)
			}
		}
	}
}
