package http

import "net/http"

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.List(r.Context(), rangeFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]ledgerEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryToJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req ledgerEntryJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = 0

	id, err := s.ledger.Create(r.Context(), req.toEntry())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()

	entry, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryToJSON(entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req ledgerEntryJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = id

	if err := s.ledger.Update(r.Context(), req.toEntry()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()

	entry, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToJSON(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()
	writeJSON(w, http.StatusNoContent, nil)
}
