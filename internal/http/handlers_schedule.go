package http

import (
	"net/http"
	"strconv"

	"fixops/internal/core"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// rangeFromQuery reads ?from and ?to. Both empty means "everything";
// a malformed pair comes back as an empty range and lists nothing,
// matching report semantics.
func rangeFromQuery(r *http.Request) core.DateRange {
	return core.DateRange{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	recs, err := s.schedules.List(r.Context(), rangeFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]scheduleJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, scheduleToJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToJSON(rec))
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = 0

	id, err := s.schedules.Create(r.Context(), req.toRecord())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()

	rec, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, scheduleToJSON(rec))
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req scheduleJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = id

	if err := s.schedules.Update(r.Context(), req.toRecord()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()

	rec, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToJSON(rec))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.schedules.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.purgeReportCaches()
	writeJSON(w, http.StatusNoContent, nil)
}
