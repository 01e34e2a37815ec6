package http

import (
	"fmt"
	"net/http"
	"net/url"

	"fixops/internal/core"
	"fixops/internal/report"
)

// togglesFromQuery reads the category toggle parameters. Every toggle
// defaults to on; ?revenue=false switches one off.
func togglesFromQuery(q url.Values) report.Toggles {
	on := func(name string) bool {
		switch q.Get(name) {
		case "false", "0", "off":
			return false
		}
		return true
	}
	return report.Toggles{
		Revenue:       on("revenue"),
		MaterialCost:  on("material_cost"),
		DailyWage:     on("daily_wage"),
		ExtraIncome:   on("extra_income"),
		FixedExpense:  on("fixed_expense"),
		ExtraExpense:  on("extra_expense"),
		ExtraCostHalf: on("extra_cost_half"),
	}
}

func cacheKey(rng core.DateRange, t report.Toggles) string {
	mask := 0
	for i, b := range []bool{
		t.Revenue, t.MaterialCost, t.DailyWage, t.ExtraIncome,
		t.FixedExpense, t.ExtraExpense, t.ExtraCostHalf,
	} {
		if b {
			mask |= 1 << i
		}
	}
	return fmt.Sprintf("%s|%s|%02x", rng.From, rng.To, mask)
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	rng := rangeFromQuery(r)
	toggles := togglesFromQuery(r.URL.Query())
	key := cacheKey(rng, toggles)

	if series, ok := s.seriesCache.Get(key); ok {
		writeJSON(w, http.StatusOK, series)
		return
	}

	series, err := s.reports.DailySeries(r.Context(), rng, toggles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleTotalsReport(w http.ResponseWriter, r *http.Request) {
	rng := rangeFromQuery(r)
	toggles := togglesFromQuery(r.URL.Query())
	key := cacheKey(rng, toggles)

	if totals, ok := s.totalsCache.Get(key); ok {
		writeJSON(w, http.StatusOK, totals)
		return
	}

	totals, err := s.reports.Totals(r.Context(), rng, toggles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.totalsCache.Set(key, totals)
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	rng := rangeFromQuery(r)
	if rng.Empty() {
		writeError(w, http.StatusBadRequest, "from and to must form a valid date range")
		return
	}

	data, err := s.reports.ExportXLSX(r.Context(), rng, togglesFromQuery(r.URL.Query()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report_%s_%s.xlsx", rng.From, rng.To)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Response already committed; nothing to send the client.
		return
	}
}
