package services

import (
	"context"
	"fmt"
	"log/slog"

	"fixops/internal/core"
	"fixops/internal/feed"
	"fixops/internal/gateway"
)

// ChangePublisher pushes row-change notifications onto the feed. A nil
// publisher disables notifications without disabling writes.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, msg *feed.RecordChangeMessage) error
}

// ScheduleService persists schedules and announces changes on the feed.
type ScheduleService struct {
	store     gateway.ScheduleStore
	publisher ChangePublisher
}

func NewScheduleService(store gateway.ScheduleStore, publisher ChangePublisher) *ScheduleService {
	return &ScheduleService{store: store, publisher: publisher}
}

func (s *ScheduleService) Create(ctx context.Context, rec core.ScheduleRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateSchedule(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save schedule: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableSchedules, id, feed.ActionCreated, rec.DayKey()))
	return id, nil
}

func (s *ScheduleService) Update(ctx context.Context, rec core.ScheduleRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	// If the update moved the record to another day, both days are stale.
	prev, err := s.store.GetSchedule(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	if err := s.store.UpdateSchedule(ctx, rec); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableSchedules, rec.ID, feed.ActionUpdated, rec.DayKey()))
	if prev.DayKey() != rec.DayKey() {
		s.publish(ctx, feed.NewRecordChange(feed.TableSchedules, rec.ID, feed.ActionUpdated, prev.DayKey()))
	}
	return nil
}

func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	prev, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableSchedules, id, feed.ActionDeleted, prev.DayKey()))
	return nil
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (core.ScheduleRecord, error) {
	return s.store.GetSchedule(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context, rng core.DateRange) ([]core.ScheduleRecord, error) {
	return s.store.ListSchedules(ctx, rng)
}

// publish is best-effort: a down broker must not fail the write, the
// record is already saved locally.
func (s *ScheduleService) publish(ctx context.Context, msg *feed.RecordChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"table", msg.Table, "id", msg.ID, "error", err)
	}
}
