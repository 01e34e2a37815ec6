package http

import (
	"net/http"

	"fixops/internal/services"
)

func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	rng := rangeFromQuery(r)
	if rng.Empty() {
		writeError(w, http.StatusBadRequest, "from and to must form a valid date range")
		return
	}
	lines, err := s.payroll.Summary(r.Context(), rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if lines == nil {
		lines = []services.EmployeePay{}
	}
	writeJSON(w, http.StatusOK, lines)
}
