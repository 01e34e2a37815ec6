package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"fixops/internal/core"
	"fixops/internal/feed"
	"fixops/internal/report"
)

// memStore is an in-memory ScheduleStore + LedgerStore for service tests.
type memStore struct {
	nextID    int64
	schedules map[int64]core.ScheduleRecord
	entries   map[int64]core.LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		schedules: make(map[int64]core.ScheduleRecord),
		entries:   make(map[int64]core.LedgerEntry),
	}
}

func (m *memStore) CreateSchedule(_ context.Context, s core.ScheduleRecord) (int64, error) {
	id := m.nextID
	m.nextID++
	s.ID = id
	m.schedules[id] = s
	return id, nil
}

func (m *memStore) UpdateSchedule(_ context.Context, s core.ScheduleRecord) error {
	if _, ok := m.schedules[s.ID]; !ok {
		return errors.New("not found")
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *memStore) DeleteSchedule(_ context.Context, id int64) error {
	if _, ok := m.schedules[id]; !ok {
		return errors.New("not found")
	}
	delete(m.schedules, id)
	return nil
}

func (m *memStore) GetSchedule(_ context.Context, id int64) (core.ScheduleRecord, error) {
	s, ok := m.schedules[id]
	if !ok {
		return core.ScheduleRecord{}, errors.New("not found")
	}
	return s, nil
}

func (m *memStore) ListSchedules(_ context.Context, rng core.DateRange) ([]core.ScheduleRecord, error) {
	var out []core.ScheduleRecord
	for _, s := range m.schedules {
		if rng.Empty() || rng.Contains(s.DayKey()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateEntry(_ context.Context, e core.LedgerEntry) (int64, error) {
	id := m.nextID
	m.nextID++
	e.ID = id
	m.entries[id] = e
	return id, nil
}

func (m *memStore) UpdateEntry(_ context.Context, e core.LedgerEntry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return errors.New("not found")
	}
	m.entries[e.ID] = e
	return nil
}

func (m *memStore) GetEntry(_ context.Context, id int64) (core.LedgerEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return core.LedgerEntry{}, errors.New("not found")
	}
	return e, nil
}

func (m *memStore) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := m.entries[id]; !ok {
		return errors.New("not found")
	}
	delete(m.entries, id)
	return nil
}

func (m *memStore) ListEntries(_ context.Context, rng core.DateRange) ([]core.LedgerEntry, error) {
	var out []core.LedgerEntry
	for _, e := range m.entries {
		if rng.Empty() || rng.Contains(e.ItemDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	msgs []*feed.RecordChangeMessage
}

func (p *recordingPublisher) PublishRecordChange(_ context.Context, msg *feed.RecordChangeMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestScheduleServicePublishesChanges(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewScheduleService(store, pub)
	ctx := context.Background()

	id, err := svc.Create(ctx, core.ScheduleRecord{Title: "roof", StartTS: ts(t, "2025-01-01T09:00:00Z")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Action != feed.ActionCreated || pub.msgs[0].Day != "2025-01-01" {
		t.Fatalf("msgs = %+v", pub.msgs)
	}

	// Moving the schedule to another day must flag both days stale.
	moved, _ := svc.Get(ctx, id)
	moved.StartTS = ts(t, "2025-01-05T09:00:00Z")
	if err := svc.Update(ctx, moved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(pub.msgs) != 3 {
		t.Fatalf("expected 3 messages after day move, got %d", len(pub.msgs))
	}
	days := map[string]bool{pub.msgs[1].Day: true, pub.msgs[2].Day: true}
	if !days["2025-01-01"] || !days["2025-01-05"] {
		t.Fatalf("both days must be announced, got %v", days)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last := pub.msgs[len(pub.msgs)-1]
	if last.Action != feed.ActionDeleted || last.Day != "2025-01-05" {
		t.Fatalf("delete msg = %+v", last)
	}
}

func TestScheduleServiceWorksWithoutPublisher(t *testing.T) {
	svc := NewScheduleService(newMemStore(), nil)
	if _, err := svc.Create(context.Background(), core.ScheduleRecord{Title: "x", StartTS: ts(t, "2025-01-01T09:00:00Z")}); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
}

func TestLedgerServiceValidatesAndPublishes(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, pub)
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.LedgerEntry{ItemDate: "bogus", Category: core.CategoryRevenue}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("rejected entry must not publish")
	}

	id, err := svc.Create(ctx, core.LedgerEntry{ItemDate: "2025-01-02", Category: core.CategoryFixedExpense, Amount: 50})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.msgs) != 2 || pub.msgs[1].Action != feed.ActionDeleted {
		t.Fatalf("msgs = %+v", pub.msgs)
	}
}

func TestPayrollSummary(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	store.CreateSchedule(ctx, core.ScheduleRecord{Title: "a", EmployeeName: "Kim", StartTS: ts(t, "2025-01-01T08:00:00Z"), DailyWage: 120})
	store.CreateSchedule(ctx, core.ScheduleRecord{Title: "b", EmployeeName: "Kim", StartTS: ts(t, "2025-01-02T08:00:00Z"), DailyWage: 120})
	store.CreateSchedule(ctx, core.ScheduleRecord{Title: "c", EmployeeName: "Lee", StartTS: ts(t, "2025-01-02T08:00:00Z"), DailyWage: 100})
	store.CreateSchedule(ctx, core.ScheduleRecord{Title: "d", EmployeeName: "Kim", StartTS: ts(t, "2025-02-01T08:00:00Z"), DailyWage: 120}) // outside range
	store.CreateEntry(ctx, core.LedgerEntry{ItemDate: "2025-01-03", Category: core.CategoryDailyWage, Amount: 60, EmployeeName: "Kim"})
	store.CreateEntry(ctx, core.LedgerEntry{ItemDate: "2025-01-03", Category: core.CategoryFixedExpense, Amount: 999, EmployeeName: "Kim"}) // wrong category

	svc := NewPayrollService(store, store)
	lines, err := svc.Summary(ctx, core.DateRange{From: "2025-01-01", To: "2025-01-31"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	kim, lee := lines[0], lines[1]
	if kim.EmployeeName != "Kim" || kim.DaysWorked != 2 || kim.ScheduleWage != 240 || kim.LedgerWage != 60 || kim.Total != 300 {
		t.Fatalf("kim = %+v", kim)
	}
	if lee.EmployeeName != "Lee" || lee.DaysWorked != 1 || lee.Total != 100 {
		t.Fatalf("lee = %+v", lee)
	}

	if lines, _ := svc.Summary(ctx, core.DateRange{}); lines != nil {
		t.Fatalf("empty range must yield no lines, got %+v", lines)
	}
}

func TestImportServiceSkipsUnusableRows(t *testing.T) {
	store := newMemStore()
	schedules := NewScheduleService(store, nil)
	ledger := NewLedgerService(store, nil)
	svc := NewImportService(schedules, ledger)

	res, err := svc.Import(context.Background(),
		[]map[string]any{
			{"name": "boiler", "start": "2025-01-01T09:00:00Z", "revenue": float64(1000)},
			{"name": "no date at all"},
		},
		[]map[string]any{
			{"date": "2025-01-02", "category": "fixed_expense", "amount": "50"},
			{"date": "2025-01-02", "category": "not-a-category"},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.SchedulesImported != 1 || res.EntriesImported != 1 || res.Skipped != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(store.schedules) != 1 || len(store.entries) != 1 {
		t.Fatalf("store contents: %d schedules, %d entries", len(store.schedules), len(store.entries))
	}
}

func TestReportServiceMatchesAggregator(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	store.CreateSchedule(ctx, core.ScheduleRecord{
		Title: "boiler", StartTS: ts(t, "2025-01-01T09:00:00Z"),
		Revenue: 1000, MaterialCost: 200, DailyWage: 300, ExtraCost: 100,
	})
	store.CreateEntry(ctx, core.LedgerEntry{ItemDate: "2025-01-02", Category: core.CategoryFixedExpense, Amount: 50})

	svc := NewReportService(store, store)
	rng := core.DateRange{From: "2025-01-01", To: "2025-01-02"}

	series, err := svc.DailySeries(ctx, rng, report.AllOn())
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series.Labels) != 2 || series.Values[0] != 550 || series.Values[1] != -50 {
		t.Fatalf("series = %+v", series)
	}

	totals, err := svc.Totals(ctx, rng, report.AllOn())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.GrandTotal != 500 {
		t.Fatalf("grand total = %v", totals.GrandTotal)
	}

	empty, err := svc.DailySeries(ctx, core.DateRange{From: "z", To: "a"}, report.AllOn())
	if err != nil || empty.Labels != nil {
		t.Fatalf("malformed range: %+v, %v", empty, err)
	}
}

func TestExportXLSX(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	store.CreateSchedule(ctx, core.ScheduleRecord{
		Title: "boiler", StartTS: ts(t, "2025-01-01T09:00:00Z"), Revenue: 1000,
	})

	svc := NewReportService(store, store)
	data, err := svc.ExportXLSX(ctx, core.DateRange{From: "2025-01-01", To: "2025-01-02"}, report.AllOn())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	day, err := f.GetCellValue("Report", "A2")
	if err != nil || day != "2025-01-01" {
		t.Fatalf("A2 = %q, %v", day, err)
	}
	net, err := f.GetCellValue("Report", "B2")
	if err != nil || net != "1000" {
		t.Fatalf("B2 = %q, %v", net, err)
	}
}
