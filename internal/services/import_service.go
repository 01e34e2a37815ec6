package services

import (
	"context"
	"log/slog"

	"fixops/internal/gateway"
)

// ImportResult summarizes a legacy import: how many rows landed and how
// many were dropped for having no usable shape.
type ImportResult struct {
	SchedulesImported int `json:"schedules_imported"`
	EntriesImported   int `json:"entries_imported"`
	Skipped           int `json:"skipped"`
}

// ImportService loads loosely-shaped rows exported from the old system.
// Normalization (field preference order, type coercion) happens at the
// gateway boundary; rows that cannot be normalized are skipped, never
// fatal.
type ImportService struct {
	schedules *ScheduleService
	ledger    *LedgerService
}

func NewImportService(schedules *ScheduleService, ledger *LedgerService) *ImportService {
	return &ImportService{schedules: schedules, ledger: ledger}
}

func (s *ImportService) Import(ctx context.Context, rawSchedules, rawEntries []map[string]any) (ImportResult, error) {
	var res ImportResult

	for _, raw := range rawSchedules {
		rec, err := gateway.NormalizeSchedule(raw)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unusable schedule row", "error", err)
			res.Skipped++
			continue
		}
		rec.ID = 0 // ids are reassigned on import
		if _, err := s.schedules.Create(ctx, rec); err != nil {
			slog.WarnContext(ctx, "Skipping invalid schedule row", "error", err)
			res.Skipped++
			continue
		}
		res.SchedulesImported++
	}

	for _, raw := range rawEntries {
		entry, err := gateway.NormalizeLedgerEntry(raw)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unusable ledger row", "error", err)
			res.Skipped++
			continue
		}
		entry.ID = 0
		if _, err := s.ledger.Create(ctx, entry); err != nil {
			slog.WarnContext(ctx, "Skipping invalid ledger row", "error", err)
			res.Skipped++
			continue
		}
		res.EntriesImported++
	}

	slog.InfoContext(ctx, "Import completed",
		"schedules", res.SchedulesImported,
		"entries", res.EntriesImported,
		"skipped", res.Skipped)
	return res, nil
}
