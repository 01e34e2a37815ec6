package http

import "net/http"

type importRequest struct {
	Schedules []map[string]any `json:"schedules"`
	Ledger    []map[string]any `json:"ledger"`
}

// handleImport accepts loosely-shaped rows from the legacy system.
// Rows that cannot be normalized are counted as skipped, not fatal.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.importer.Import(r.Context(), req.Schedules, req.Ledger)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()
	writeJSON(w, http.StatusOK, res)
}
