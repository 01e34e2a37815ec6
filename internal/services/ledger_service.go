package services

import (
	"context"
	"fmt"
	"log/slog"

	"fixops/internal/core"
	"fixops/internal/feed"
	"fixops/internal/gateway"
)

// LedgerService persists manual finance entries and announces changes.
type LedgerService struct {
	store     gateway.LedgerStore
	publisher ChangePublisher
}

func NewLedgerService(store gateway.LedgerStore, publisher ChangePublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

func (s *LedgerService) Create(ctx context.Context, e core.LedgerEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save ledger entry: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableLedger, id, feed.ActionCreated, e.ItemDate))
	return id, nil
}

func (s *LedgerService) Update(ctx context.Context, e core.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableLedger, e.ID, feed.ActionUpdated, e.ItemDate))
	return nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	prev, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("load ledger entry: %w", err)
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	s.publish(ctx, feed.NewRecordChange(feed.TableLedger, id, feed.ActionDeleted, prev.ItemDate))
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.LedgerEntry, error) {
	return s.store.GetEntry(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, rng core.DateRange) ([]core.LedgerEntry, error) {
	return s.store.ListEntries(ctx, rng)
}

func (s *LedgerService) publish(ctx context.Context, msg *feed.RecordChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"table", msg.Table, "id", msg.ID, "error", err)
	}
}
