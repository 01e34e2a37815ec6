package http

import (
	"math"
	"time"

	"fixops/internal/core"
)

// JSON shapes for the API. Financial fields are nullable: null on the
// wire maps to the NaN "absent" marker internally, and absent values
// are rendered back as null rather than 0.

type scheduleJSON struct {
	ID           int64      `json:"id,omitempty"`
	Title        string     `json:"title"`
	EmployeeName string     `json:"employee_name,omitempty"`
	StartTS      time.Time  `json:"start_ts"`
	EndTS        *time.Time `json:"end_ts,omitempty"`
	Revenue      *float64   `json:"revenue"`
	MaterialCost *float64   `json:"material_cost"`
	DailyWage    *float64   `json:"daily_wage"`
	ExtraCost    *float64   `json:"extra_cost"`
	Net          *float64   `json:"net,omitempty"`
}

type ledgerEntryJSON struct {
	ID           int64   `json:"id,omitempty"`
	ItemDate     string  `json:"item_date"`
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	Label        string  `json:"label,omitempty"`
	EmployeeName string  `json:"employee_name,omitempty"`
}

type materialJSON struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit,omitempty"`
	Stock    float64 `json:"stock"`
	UnitCost float64 `json:"unit_cost"`
}

type employeeJSON struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone,omitempty"`
	DailyPay float64 `json:"daily_pay"`
	Active   bool    `json:"active"`
}

func floatFromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func ptrFromFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (j scheduleJSON) toRecord() core.ScheduleRecord {
	return core.ScheduleRecord{
		ID:           j.ID,
		Title:        j.Title,
		EmployeeName: j.EmployeeName,
		StartTS:      j.StartTS,
		EndTS:        j.EndTS,
		Revenue:      floatFromPtr(j.Revenue),
		MaterialCost: floatFromPtr(j.MaterialCost),
		DailyWage:    floatFromPtr(j.DailyWage),
		ExtraCost:    floatFromPtr(j.ExtraCost),
	}
}

func scheduleToJSON(rec core.ScheduleRecord) scheduleJSON {
	out := scheduleJSON{
		ID:           rec.ID,
		Title:        rec.Title,
		EmployeeName: rec.EmployeeName,
		StartTS:      rec.StartTS,
		EndTS:        rec.EndTS,
		Revenue:      ptrFromFloat(rec.Revenue),
		MaterialCost: ptrFromFloat(rec.MaterialCost),
		DailyWage:    ptrFromFloat(rec.DailyWage),
		ExtraCost:    ptrFromFloat(rec.ExtraCost),
	}
	if net, ok := rec.Net(); ok {
		out.Net = &net
	}
	return out
}

func (j ledgerEntryJSON) toEntry() core.LedgerEntry {
	return core.LedgerEntry{
		ID:           j.ID,
		ItemDate:     j.ItemDate,
		Category:     core.Category(j.Category),
		Amount:       j.Amount,
		Label:        j.Label,
		EmployeeName: j.EmployeeName,
	}
}

func entryToJSON(e core.LedgerEntry) ledgerEntryJSON {
	return ledgerEntryJSON{
		ID:           e.ID,
		ItemDate:     e.ItemDate,
		Category:     string(e.Category),
		Amount:       e.Amount,
		Label:        e.Label,
		EmployeeName: e.EmployeeName,
	}
}

func (j materialJSON) toMaterial() core.Material {
	return core.Material{
		ID:       j.ID,
		Name:     j.Name,
		Unit:     j.Unit,
		Stock:    j.Stock,
		UnitCost: j.UnitCost,
	}
}

func materialToJSON(m core.Material) materialJSON {
	return materialJSON{
		ID:       m.ID,
		Name:     m.Name,
		Unit:     m.Unit,
		Stock:    m.Stock,
		UnitCost: m.UnitCost,
	}
}

func (j employeeJSON) toEmployee() core.Employee {
	return core.Employee{
		ID:       j.ID,
		Name:     j.Name,
		Phone:    j.Phone,
		DailyPay: j.DailyPay,
		Active:   j.Active,
	}
}

func employeeToJSON(e core.Employee) employeeJSON {
	return employeeJSON{
		ID:       e.ID,
		Name:     e.Name,
		Phone:    e.Phone,
		DailyPay: e.DailyPay,
		Active:   e.Active,
	}
}
