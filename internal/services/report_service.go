package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"fixops/internal/core"
	"fixops/internal/gateway"
	"fixops/internal/report"
)

// ReportService materializes the record snapshot for a range and hands
// it to the pure aggregator. It owns no state between calls.
type ReportService struct {
	schedules gateway.ScheduleStore
	ledger    gateway.LedgerStore
}

func NewReportService(schedules gateway.ScheduleStore, ledger gateway.LedgerStore) *ReportService {
	return &ReportService{schedules: schedules, ledger: ledger}
}

// DailySeries is the label/value series for charting.
type DailySeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func (s *ReportService) fetch(ctx context.Context, rng core.DateRange) ([]core.ScheduleRecord, []core.LedgerEntry, error) {
	schedules, err := s.schedules.ListSchedules(ctx, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("list schedules: %w", err)
	}
	entries, err := s.ledger.ListEntries(ctx, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return schedules, entries, nil
}

func (s *ReportService) DailySeries(ctx context.Context, rng core.DateRange, toggles report.Toggles) (DailySeries, error) {
	if rng.Empty() {
		return DailySeries{}, nil
	}
	schedules, entries, err := s.fetch(ctx, rng)
	if err != nil {
		return DailySeries{}, err
	}
	labels, values := report.ComputeDailySeries(schedules, entries, rng, toggles)
	return DailySeries{Labels: labels, Values: values}, nil
}

func (s *ReportService) Totals(ctx context.Context, rng core.DateRange, toggles report.Toggles) (report.Totals, error) {
	if rng.Empty() {
		return report.Totals{}, nil
	}
	schedules, entries, err := s.fetch(ctx, rng)
	if err != nil {
		return report.Totals{}, err
	}
	return report.ComputeTotals(schedules, entries, rng, toggles), nil
}

// ExportXLSX renders a period report as a spreadsheet: one row per day
// with its net, then the per-category totals. Numbers are written raw;
// formatting is the viewer's concern.
func (s *ReportService) ExportXLSX(ctx context.Context, rng core.DateRange, toggles report.Toggles) ([]byte, error) {
	schedules, entries, err := s.fetch(ctx, rng)
	if err != nil {
		return nil, err
	}
	labels, values := report.ComputeDailySeries(schedules, entries, rng, toggles)
	totals := report.ComputeTotals(schedules, entries, rng, toggles)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetSheetRow(sheet, "A1", &[]any{"Date", "Net"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, day := range labels {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &[]any{day, values[i]}); err != nil {
			return nil, fmt.Errorf("write row %s: %w", day, err)
		}
	}

	row := len(labels) + 3
	totalRows := [][]any{
		{"Revenue", totals.Revenue},
		{"Material cost", totals.MaterialCost},
		{"Daily wage", totals.DailyWage},
		{"Extra income", totals.ExtraIncome},
		{"Fixed expense", totals.FixedExpense},
		{"Extra expense", totals.ExtraExpense},
		{"Extra cost", totals.ExtraCost},
		{"Grand total", totals.GrandTotal},
	}
	for i, r := range totalRows {
		cell := fmt.Sprintf("A%d", row+i)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, fmt.Errorf("write totals: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
