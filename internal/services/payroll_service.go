package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"fixops/internal/core"
	"fixops/internal/gateway"
)

// EmployeePay is one employee's payroll line for a period: schedule
// days worked, wages accrued on those schedules, plus any daily_wage
// ledger entries attributed to them by name.
type EmployeePay struct {
	EmployeeName string  `json:"employee_name"`
	DaysWorked   int     `json:"days_worked"`
	ScheduleWage float64 `json:"schedule_wage"`
	LedgerWage   float64 `json:"ledger_wage"`
	Total        float64 `json:"total"`
}

// PayrollService aggregates wage figures per employee over a range.
type PayrollService struct {
	schedules gateway.ScheduleStore
	ledger    gateway.LedgerStore
}

func NewPayrollService(schedules gateway.ScheduleStore, ledger gateway.LedgerStore) *PayrollService {
	return &PayrollService{schedules: schedules, ledger: ledger}
}

// Summary returns one line per employee, sorted by name. Schedules with
// a missing date or empty employee attribution are skipped, matching the
// report aggregator's posture toward malformed records.
func (s *PayrollService) Summary(ctx context.Context, rng core.DateRange) ([]EmployeePay, error) {
	if rng.Empty() {
		return nil, nil
	}

	schedules, err := s.schedules.ListSchedules(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	entries, err := s.ledger.ListEntries(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	byName := make(map[string]*EmployeePay)
	line := func(name string) *EmployeePay {
		p, ok := byName[name]
		if !ok {
			p = &EmployeePay{EmployeeName: name}
			byName[name] = p
		}
		return p
	}

	for _, rec := range schedules {
		if rec.EmployeeName == "" || !rng.Contains(rec.DayKey()) {
			continue
		}
		p := line(rec.EmployeeName)
		p.DaysWorked++
		if wage := rec.DailyWage; !math.IsNaN(wage) && !math.IsInf(wage, 0) {
			p.ScheduleWage += wage
		}
	}
	for _, e := range entries {
		if e.Category != core.CategoryDailyWage || e.EmployeeName == "" || !rng.Contains(e.ItemDate) {
			continue
		}
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			continue
		}
		line(e.EmployeeName).LedgerWage += e.Amount
	}

	out := make([]EmployeePay, 0, len(byName))
	for _, p := range byName {
		p.Total = p.ScheduleWage + p.LedgerWage
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeName < out[j].EmployeeName })
	return out, nil
}
