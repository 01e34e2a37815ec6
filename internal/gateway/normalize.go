package gateway

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fixops/internal/core"
)

// The legacy system stored records as loosely-typed rows: field names
// drifted over time ("name" vs "full_name", "start" vs "start_ts"),
// amounts arrived as numbers or strings, and financials could be null.
// Normalization happens here, once, with an explicit preference order,
// so the rest of the app only ever sees the well-typed core records.

var ErrNoDate = errors.New("record has no usable date")

// NormalizeSchedule builds a ScheduleRecord from a raw legacy row.
// Preference orders: title ← "title" > "name"; employee ←
// "employee_name" > "full_name" > "employee"; start ← "start_ts" >
// "start" > "date". Missing or null financial fields become NaN so the
// aggregator can coerce them to 0 while Net stays undefined.
func NormalizeSchedule(raw map[string]any) (core.ScheduleRecord, error) {
	s := core.ScheduleRecord{
		ID:           asInt64(pick(raw, "id")),
		Title:        asString(pick(raw, "title", "name")),
		EmployeeName: asString(pick(raw, "employee_name", "full_name", "employee")),
		Revenue:      asFloat(pick(raw, "revenue")),
		MaterialCost: asFloat(pick(raw, "material_cost", "material")),
		DailyWage:    asFloat(pick(raw, "daily_wage", "wage")),
		ExtraCost:    asFloat(pick(raw, "extra_cost")),
	}

	start, err := asTime(pick(raw, "start_ts", "start", "date"))
	if err != nil {
		return core.ScheduleRecord{}, fmt.Errorf("normalize schedule: %w", err)
	}
	s.StartTS = start

	if end, err := asTime(pick(raw, "end_ts", "end")); err == nil {
		s.EndTS = &end
	}
	return s, nil
}

// NormalizeLedgerEntry builds a LedgerEntry from a raw legacy row.
// Preference orders: date ← "item_date" > "date"; label ← "label" >
// "description"; employee as for schedules.
func NormalizeLedgerEntry(raw map[string]any) (core.LedgerEntry, error) {
	e := core.LedgerEntry{
		ID:           asInt64(pick(raw, "id")),
		Category:     core.Category(strings.TrimSpace(asString(pick(raw, "category")))),
		Label:        asString(pick(raw, "label", "description")),
		EmployeeName: asString(pick(raw, "employee_name", "full_name", "employee")),
	}

	day, err := asDay(pick(raw, "item_date", "date"))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("normalize ledger entry: %w", err)
	}
	e.ItemDate = day

	amount := asFloat(pick(raw, "amount"))
	if math.IsNaN(amount) {
		amount = 0
	}
	e.Amount = amount

	if !e.Category.Valid() {
		return core.LedgerEntry{}, fmt.Errorf("normalize ledger entry: %w", core.ErrInvalidCategory)
	}
	return e, nil
}

// pick returns the first non-nil value among the named keys.
func pick(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

// asFloat coerces numbers and numeric strings; anything else is NaN,
// the in-memory marker for "absent".
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// asTime accepts RFC 3339 timestamps and bare calendar dates.
func asTime(v any) (time.Time, error) {
	s := asString(v)
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := core.ParseDay(s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// asDay reduces a timestamp or date value to a "YYYY-MM-DD" key.
func asDay(v any) (string, error) {
	ts, err := asTime(v)
	if err != nil {
		return "", err
	}
	return ts.Format(core.DayLayout), nil
}
