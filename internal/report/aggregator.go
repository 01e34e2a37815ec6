// Package report computes daily net series and period totals from
// schedule records and ledger entries. All functions are pure: they
// never touch storage and are safe to call concurrently.
package report

import (
	"math"

	"fixops/internal/core"
)

// Toggles controls which financial categories contribute to a computed
// net figure. Toggles are independent; there is no ordering between them.
type Toggles struct {
	Revenue       bool `json:"revenue"`
	MaterialCost  bool `json:"material_cost"`
	DailyWage     bool `json:"daily_wage"`
	ExtraIncome   bool `json:"extra_income"`
	FixedExpense  bool `json:"fixed_expense"`
	ExtraExpense  bool `json:"extra_expense"`
	ExtraCostHalf bool `json:"extra_cost_half"`
}

// AllOn returns a toggle set with every category included.
func AllOn() Toggles {
	return Toggles{
		Revenue:       true,
		MaterialCost:  true,
		DailyWage:     true,
		ExtraIncome:   true,
		FixedExpense:  true,
		ExtraExpense:  true,
		ExtraCostHalf: true,
	}
}

// Totals holds range-wide per-category sums plus the toggle-weighted
// grand total. GrandTotal always equals the sum of the daily series
// computed from the same inputs.
type Totals struct {
	Revenue      float64 `json:"revenue"`
	MaterialCost float64 `json:"material_cost"`
	DailyWage    float64 `json:"daily_wage"`
	ExtraIncome  float64 `json:"extra_income"`
	FixedExpense float64 `json:"fixed_expense"`
	ExtraExpense float64 `json:"extra_expense"`
	ExtraCost    float64 `json:"extra_cost"`
	GrandTotal   float64 `json:"grand_total"`
}

// buckets accumulates one day's (or one range's) category sums.
type buckets struct {
	revenue      float64
	materialCost float64
	dailyWage    float64
	extraIncome  float64
	fixedExpense float64
	extraExpense float64
	extraCost    float64
}

// add merges a schedule record into the buckets. Non-finite fields
// count as 0 so a half-filled record still contributes what it has.
func (b *buckets) addSchedule(s core.ScheduleRecord) {
	b.revenue += finiteOrZero(s.Revenue)
	b.materialCost += finiteOrZero(s.MaterialCost)
	b.dailyWage += finiteOrZero(s.DailyWage)
	b.extraCost += finiteOrZero(s.ExtraCost)
}

// addEntry merges a ledger entry into the matching bucket. The first
// three categories share buckets with the schedule fields of the same
// name; the remaining three accumulate separately.
func (b *buckets) addEntry(e core.LedgerEntry) {
	amount := finiteOrZero(e.Amount)
	switch e.Category {
	case core.CategoryRevenue:
		b.revenue += amount
	case core.CategoryMaterialCost:
		b.materialCost += amount
	case core.CategoryDailyWage:
		b.dailyWage += amount
	case core.CategoryExtraIncome:
		b.extraIncome += amount
	case core.CategoryFixedExpense:
		b.fixedExpense += amount
	case core.CategoryExtraExpense:
		b.extraExpense += amount
	}
}

// net combines the buckets into a single figure. Each term is gated by
// its toggle; extra cost contributes half its value, a deliberate
// business rule carried over from the original ("half of extra cost").
func (b buckets) net(t Toggles) float64 {
	var n float64
	if t.Revenue {
		n += b.revenue
	}
	if t.ExtraIncome {
		n += b.extraIncome
	}
	if t.MaterialCost {
		n -= b.materialCost
	}
	if t.DailyWage {
		n -= b.dailyWage
	}
	if t.FixedExpense {
		n -= b.fixedExpense
	}
	if t.ExtraExpense {
		n -= b.extraExpense
	}
	if t.ExtraCostHalf {
		n += b.extraCost / 2
	}
	return n
}

// ComputeDailySeries buckets schedules and ledger entries by calendar
// day and returns parallel label/value slices, one entry per day of the
// range. Days without activity yield 0, not omission. Records whose
// date is missing or unparseable are silently skipped. An empty or
// malformed range returns empty outputs; it never falls back to
// unfiltered data.
func ComputeDailySeries(schedules []core.ScheduleRecord, entries []core.LedgerEntry, rng core.DateRange, toggles Toggles) (labels []string, values []float64) {
	days := rng.Days()
	if len(days) == 0 {
		return nil, nil
	}

	byDay := bucketByDay(schedules, entries, rng)

	values = make([]float64, len(days))
	for i, day := range days {
		if b, ok := byDay[day]; ok {
			values[i] = b.net(toggles)
		}
	}
	return days, values
}

// ComputeTotals sums each category across the whole range and combines
// them with the same formula ComputeDailySeries applies per day, so the
// grand total equals the sum of the daily series for identical inputs.
func ComputeTotals(schedules []core.ScheduleRecord, entries []core.LedgerEntry, rng core.DateRange, toggles Toggles) Totals {
	var total buckets
	for _, b := range bucketByDay(schedules, entries, rng) {
		total.revenue += b.revenue
		total.materialCost += b.materialCost
		total.dailyWage += b.dailyWage
		total.extraIncome += b.extraIncome
		total.fixedExpense += b.fixedExpense
		total.extraExpense += b.extraExpense
		total.extraCost += b.extraCost
	}

	return Totals{
		Revenue:      total.revenue,
		MaterialCost: total.materialCost,
		DailyWage:    total.dailyWage,
		ExtraIncome:  total.extraIncome,
		FixedExpense: total.fixedExpense,
		ExtraExpense: total.extraExpense,
		ExtraCost:    total.extraCost,
		GrandTotal:   total.net(toggles),
	}
}

func bucketByDay(schedules []core.ScheduleRecord, entries []core.LedgerEntry, rng core.DateRange) map[string]*buckets {
	byDay := make(map[string]*buckets)
	bucket := func(day string) *buckets {
		b, ok := byDay[day]
		if !ok {
			b = &buckets{}
			byDay[day] = b
		}
		return b
	}

	for _, s := range schedules {
		day := s.DayKey()
		if !rng.Contains(day) {
			continue
		}
		bucket(day).addSchedule(s)
	}
	for _, e := range entries {
		// Bucket by the canonical key, never the raw string: a padded
		// item date must fall into the same bucket its range label names.
		day, err := core.CanonicalDay(e.ItemDate)
		if err != nil {
			continue
		}
		if !rng.Contains(day) {
			continue
		}
		bucket(day).addEntry(e)
	}
	return byDay
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
